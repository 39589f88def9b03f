package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddHP(t *testing.T) {
	const maxInt = int(^uint(0) >> 1)
	const minInt = -maxInt - 1

	tests := []struct {
		name           string
		hp, delta, max int
		want           int
	}{
		{"heal", 14, 3, 18, 17},
		{"over-heal", 14, 10, 18, 18},
		{"damage", 14, -4, 18, 10},
		{"over-damage", 14, -30, 18, 0},
		{"max int", 14, maxInt, 18, 18},
		{"min int", 14, minInt, 18, 0},
		{"zero", 0, 0, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, addHP(tc.hp, tc.delta, tc.max))
		})
	}
}

func TestSeed_FailureLeavesDatabaseEmpty(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, filepath.Join(t.TempDir(), "armoury.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	party := seedParty
	t.Cleanup(func() { seedParty = party })

	// The second character's slot level is out of range, so seeding fails
	// after the first character was inserted.
	seedParty = []seedCharacter{
		party[0],
		{
			character: Character{Name: "Warlock", CurrentHP: 10, MaxHP: 10},
			slots:     []SpellSlot{{Level: 12, Current: 1, Max: 1}},
		},
	}

	seeded, err := st.Seed(ctx)
	require.ErrorIs(t, err, ErrInvalid)
	assert.False(t, seeded)

	characters, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, characters, "a failed seed must not leave part of the party behind")

	seedParty = party

	seeded, err = st.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	characters, err = st.List(ctx)
	require.NoError(t, err)
	assert.Len(t, characters, 3)
}
