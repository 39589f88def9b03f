/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buttons

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrExhausted is returned by a source that cannot be opened again.
var ErrExhausted = errors.New("source exhausted")

// Source produces a stream of controller output.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// DeviceSource reads from a serial device node or a named pipe, reopening
// it whenever the stream ends.
type DeviceSource struct {
	Path string
}

func (s DeviceSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(s.Path)
}

func (s DeviceSource) String() string {
	return s.Path
}

// DialSource reads from a TCP stream, e.g. a serial-to-network bridge.
type DialSource struct {
	Addr   string
	Dialer net.Dialer
}

func (s *DialSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return s.Dialer.DialContext(ctx, "tcp", s.Addr)
}

func (s *DialSource) String() string {
	return "tcp://" + s.Addr
}

// ReaderSource hands out r once, for standard input.
type ReaderSource struct {
	once sync.Once
	r    io.Reader
	name string
}

func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{r: r, name: name}
}

func (s *ReaderSource) Open(context.Context) (io.ReadCloser, error) {
	var rc io.ReadCloser
	s.once.Do(func() {
		rc = io.NopCloser(s.r)
	})
	if rc == nil {
		return nil, ErrExhausted
	}
	return rc, nil
}

func (s *ReaderSource) String() string {
	return s.name
}

// Backoff bounds the delay between attempts to reopen a source.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b Backoff) policy() retry.Backoff {
	return retry.WithCappedDuration(b.Max, retry.NewExponential(b.Base))
}

// Listen feeds every line read from src to handle until ctx is cancelled or
// src is exhausted. Failed opens and ended streams are retried with
// exponential backoff; the delay resets once a stream yields a line.
func Listen(ctx context.Context, src Source, backoff Backoff, handle func(line string), logf func(format string, args ...any)) error {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	policy := backoff.policy()

	for {
		var rc io.ReadCloser

		err := retry.Do(ctx, policy, func(ctx context.Context) error {
			r, err := src.Open(ctx)
			switch {
			case errors.Is(err, ErrExhausted):
				return err
			case err != nil:
				logf("BUTTONS: Unable to open %s: %v", src, err)

				return retry.RetryableError(err)
			}

			rc = r

			return nil
		})
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrExhausted):
			return nil
		case err != nil:
			return err
		}

		logf("BUTTONS: Reading from %s", src)

		lines, err := readLines(ctx, rc, handle)
		if ctx.Err() != nil {
			return nil
		}

		logf("BUTTONS: Lost %s after %d lines: %v", src, lines, err)

		if lines > 0 {
			policy = backoff.policy()

			continue
		}

		delay, stop := policy.Next()
		if stop {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func readLines(ctx context.Context, rc io.ReadCloser, handle func(string)) (int, error) {
	stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
	defer func() {
		if stop() {
			_ = rc.Close()
		}
	}()

	lines := 0

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		lines++
		handle(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return lines, err
	}

	return lines, io.EOF
}
