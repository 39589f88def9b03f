/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package buttons turns presses on the table's physical buttons into
// update_hp calls against the armoury server.
//
// Controllers report presses as lines of the form "P1:+1" or "P3:-1". Each
// accepted press becomes exactly one request. Failed requests are logged and
// dropped; the next press is the retry.
package buttons

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed press")

// Press is a single button event.
type Press struct {
	Key   string
	Delta int
}

func (p Press) String() string {
	return fmt.Sprintf("%s:%+d", p.Key, p.Delta)
}

// ParseLine decodes one line of controller output.
func ParseLine(line string) (Press, error) {
	key, delta, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return Press{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	key = strings.ToUpper(strings.TrimSpace(key))
	if len(key) < 2 || key[0] != 'P' {
		return Press{}, fmt.Errorf("%w: bad key %q", ErrMalformed, key)
	}
	if _, err := strconv.ParseUint(key[1:], 10, 8); err != nil {
		return Press{}, fmt.Errorf("%w: bad key %q", ErrMalformed, key)
	}

	d, err := strconv.Atoi(strings.TrimSpace(delta))
	if err != nil || (d != 1 && d != -1) {
		return Press{}, fmt.Errorf("%w: bad delta %q", ErrMalformed, delta)
	}

	return Press{Key: key, Delta: d}, nil
}
