package buttons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestDebouncer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	d := NewDebouncer(200 * time.Millisecond)
	d.now = clock.now

	up := Press{Key: "P1", Delta: 1}
	down := Press{Key: "P1", Delta: -1}
	other := Press{Key: "P2", Delta: 1}

	assert.True(t, d.Allow(up))
	assert.False(t, d.Allow(up), "repeat inside the interval")
	assert.True(t, d.Allow(down), "opposite delta is a separate button")
	assert.True(t, d.Allow(other), "other player is a separate button")

	clock.advance(150 * time.Millisecond)
	assert.False(t, d.Allow(up))

	clock.advance(50 * time.Millisecond)
	assert.True(t, d.Allow(up), "interval measured from the last accepted press")

	clock.advance(199 * time.Millisecond)
	assert.False(t, d.Allow(up))
}

func TestDebouncer_Disabled(t *testing.T) {
	d := NewDebouncer(0)

	p := Press{Key: "P1", Delta: 1}
	for range 5 {
		assert.True(t, d.Allow(p))
	}
}
