/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package buttons

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HPUpdate is the server's answer to an accepted update_hp call.
type HPUpdate struct {
	Success     bool  `json:"success"`
	CharacterID int64 `json:"character_id"`
	CurrentHP   int   `json:"current_hp"`
	MaxHP       int   `json:"max_hp"`
}

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the server rooted at server, e.g.
// "http://armoury.local:5000". Every request is capped at timeout.
func NewClient(server string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(server, "/") + "/api/update_hp",
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) UpdateHP(ctx context.Context, characterID int64, delta int) (HPUpdate, error) {
	body, err := json.Marshal(map[string]any{
		"character_id": characterID,
		"delta":        delta,
	})
	if err != nil {
		return HPUpdate{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return HPUpdate{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return HPUpdate{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return HPUpdate{}, err
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)

		return HPUpdate{}, &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	var update HPUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return HPUpdate{}, fmt.Errorf("unable to decode response: %w", err)
	}

	return update, nil
}
