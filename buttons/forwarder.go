/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buttons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

const defaultQueue = 4

var (
	okLabel   = color.New(color.FgGreen).Sprint("OK  ")
	failLabel = color.New(color.FgRed).Sprint("FAIL")
	dropLabel = color.New(color.FgYellow).Sprint("DROP")
)

// Updater applies a delta to a character on the server.
type Updater interface {
	UpdateHP(ctx context.Context, characterID int64, delta int) (HPUpdate, error)
}

type Option func(*Forwarder)

// WithQueue sets how many presses may wait per character while a request
// for that character is in flight. Presses beyond that are dropped.
func WithQueue(n int) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.queue = n
		}
	}
}

// WithOutput sets where per-press status lines are written.
func WithOutput(w io.Writer) Option {
	return func(f *Forwarder) {
		if w != nil {
			f.out = w
		}
	}
}

func WithLogf(logf func(format string, args ...any)) Option {
	return func(f *Forwarder) {
		if logf != nil {
			f.logf = logf
		}
	}
}

type job struct {
	press       Press
	characterID int64
}

// Forwarder maps presses to characters and sends them to the server, one
// request at a time per character.
type Forwarder struct {
	players  map[string]int64
	debounce *Debouncer
	client   Updater

	queue  int
	qmu    sync.RWMutex
	closed bool
	queues map[int64]chan job

	mu  sync.Mutex
	out io.Writer

	logf func(format string, args ...any)
}

func NewForwarder(client Updater, players map[string]int64, debounce *Debouncer, opts ...Option) *Forwarder {
	f := &Forwarder{
		players:  make(map[string]int64, len(players)),
		debounce: debounce,
		client:   client,
		queue:    defaultQueue,
		out:      os.Stdout,
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(f)
	}

	f.queues = make(map[int64]chan job)
	for key, id := range players {
		f.players[key] = id
		if _, ok := f.queues[id]; !ok {
			f.queues[id] = make(chan job, f.queue)
		}
	}

	return f
}

// HandleLine parses a line of controller output and handles the press.
func (f *Forwarder) HandleLine(line string) bool {
	p, err := ParseLine(line)
	if err != nil {
		f.logf("BUTTONS: Ignored %v", err)

		return false
	}

	return f.Handle(p)
}

// Handle queues p for delivery and reports whether it was accepted. It
// never blocks.
func (f *Forwarder) Handle(p Press) bool {
	id, ok := f.players[p.Key]
	if !ok {
		f.status(dropLabel, "%s (no character mapped)", p)

		return false
	}

	if f.debounce != nil && !f.debounce.Allow(p) {
		f.logf("BUTTONS: Debounced %s", p)

		return false
	}

	f.qmu.RLock()
	defer f.qmu.RUnlock()

	if f.closed {
		f.status(dropLabel, "%s (shutting down)", p)

		return false
	}

	select {
	case f.queues[id] <- job{press: p, characterID: id}:
		return true
	default:
		f.status(dropLabel, "%s -> character %d (queue full)", p, id)

		return false
	}
}

// Close stops accepting presses. Run returns once the queued ones are sent.
func (f *Forwarder) Close() {
	f.qmu.Lock()
	defer f.qmu.Unlock()

	if f.closed {
		return
	}
	f.closed = true

	for _, q := range f.queues {
		close(q)
	}
}

// Run delivers queued presses until ctx is cancelled or the forwarder is
// closed and drained.
func (f *Forwarder) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, q := range f.queues {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.work(ctx, q)
		}()
	}

	wg.Wait()

	return nil
}

func (f *Forwarder) work(ctx context.Context, q <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q:
			if !ok {
				return
			}
			f.send(ctx, j)
		}
	}
}

func (f *Forwarder) send(ctx context.Context, j job) {
	update, err := f.client.UpdateHP(ctx, j.characterID, j.press.Delta)

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		f.status(failLabel, "%s -> character %d: %v", j.press, j.characterID, statusErr)
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		f.status(failLabel, "%s -> character %d: %v", j.press, j.characterID, err)
	default:
		f.status(okLabel, "%s -> character %d now %d/%d", j.press, update.CharacterID, update.CurrentHP, update.MaxHP)
	}
}

func (f *Forwarder) status(label, format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.out, "%s %s\n", label, fmt.Sprintf(format, args...))
}
