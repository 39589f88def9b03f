/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/armoury/store"
)

const maxBodySize = 64 << 10

const (
	eventHPUpdated = "hp_updated"
	eventHPDelta   = "hp_delta"
	eventSlotDelta = "slot_delta"
)

type characterStore interface {
	Get(ctx context.Context, id int64) (store.Character, error)
	List(ctx context.Context) ([]store.Character, error)
	ApplyDelta(ctx context.Context, id int64, delta int) (store.Character, error)
}

type emitter interface {
	Emit(event string, data any) error
}

// Document is an arbitrary JSON object passed through without validation.
type Document map[string]any

type updateHPRequest struct {
	CharacterID *int64 `json:"character_id"`
	Delta       *int   `json:"delta"`
}

type hpUpdated struct {
	CharacterID int64 `json:"character_id"`
	CurrentHP   int   `json:"current_hp"`
	MaxHP       int   `json:"max_hp"`
}

type updateHPResponse struct {
	Success bool `json:"success"`
	hpUpdated
}

type relayResponse struct {
	Success bool     `json:"success"`
	Sent    Document `json:"sent"`
}

// decodeBody reads a single JSON value into dst. Numbers bound for untyped
// fields are kept as json.Number so relayed documents round-trip exactly.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("unable to read request body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("malformed request body: trailing data after JSON value")
	}

	return nil
}

func emit(cfg *Config, events emitter, event string, data any) {
	if err := events.Emit(event, data); err != nil {
		errorf("unable to broadcast %s: %v", event, err)

		return
	}

	logf(cfg, "EVENT: %s %v", event, data)
}

func serveUpdateHP(cfg *Config, characters characterStore, events emitter, locks *characterLocks, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		var req updateHPRequest
		if err := decodeBody(w, r, &req); err != nil {
			if err := writeError(cfg, w, http.StatusBadRequest, err.Error()); err != nil {
				errs <- err
			}

			return
		}

		if req.CharacterID == nil || req.Delta == nil {
			if err := writeError(cfg, w, http.StatusBadRequest, "character_id and delta are required"); err != nil {
				errs <- err
			}

			return
		}

		unlock := locks.lock(*req.CharacterID)
		c, err := characters.ApplyDelta(r.Context(), *req.CharacterID, *req.Delta)
		if err == nil {
			emit(cfg, events, eventHPUpdated, hpUpdated{
				CharacterID: c.ID,
				CurrentHP:   c.CurrentHP,
				MaxHP:       c.MaxHP,
			})
		}
		unlock()

		switch {
		case errors.Is(err, store.ErrNotFound):
			logf(cfg, "UPDATE: Unknown character %d from %s", *req.CharacterID, realIP(r))

			if err := writeError(cfg, w, http.StatusNotFound, "Character not found"); err != nil {
				errs <- err
			}

			return
		case err != nil:
			errorf("unable to update character %d: %v", *req.CharacterID, err)

			if err := writeError(cfg, w, http.StatusInternalServerError, "unable to update character"); err != nil {
				errs <- err
			}

			return
		}

		if err := writeJSON(cfg, w, http.StatusOK, updateHPResponse{
			Success: true,
			hpUpdated: hpUpdated{
				CharacterID: c.ID,
				CurrentHP:   c.CurrentHP,
				MaxHP:       c.MaxHP,
			},
		}); err != nil {
			errs <- err

			return
		}

		logf(cfg, "UPDATE: Character %d %+d -> %d/%d from %s in %s",
			c.ID,
			*req.Delta,
			c.CurrentHP,
			c.MaxHP,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveRelay re-broadcasts the request body as event. The body only has to
// be a JSON object; its fields are the screens' business.
func serveRelay(cfg *Config, event string, events emitter, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var doc Document
		if err := decodeBody(w, r, &doc); err != nil || doc == nil {
			if err == nil {
				err = errors.New("request body must be a JSON object")
			}

			if err := writeError(cfg, w, http.StatusBadRequest, err.Error()); err != nil {
				errs <- err
			}

			return
		}

		emit(cfg, events, event, doc)

		if err := writeJSON(cfg, w, http.StatusOK, relayResponse{Success: true, Sent: doc}); err != nil {
			errs <- err

			return
		}

		logf(cfg, "RELAY: %s from %s", event, realIP(r))
	}
}

func serveCharacters(cfg *Config, characters characterStore, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		list, err := characters.List(r.Context())
		if err != nil {
			errorf("unable to list characters: %v", err)

			if err := writeError(cfg, w, http.StatusInternalServerError, "unable to list characters"); err != nil {
				errs <- err
			}

			return
		}

		if list == nil {
			list = []store.Character{}
		}

		if err := writeJSON(cfg, w, http.StatusOK, list); err != nil {
			errs <- err
		}
	}
}

func serveCharacter(cfg *Config, characters characterStore, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		id, err := strconv.ParseInt(p.ByName("id"), 10, 64)
		if err != nil {
			if err := writeError(cfg, w, http.StatusBadRequest, "invalid character id"); err != nil {
				errs <- err
			}

			return
		}

		c, err := characters.Get(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if err := writeError(cfg, w, http.StatusNotFound, "Character not found"); err != nil {
				errs <- err
			}

			return
		case err != nil:
			errorf("unable to get character %d: %v", id, err)

			if err := writeError(cfg, w, http.StatusInternalServerError, "unable to get character"); err != nil {
				errs <- err
			}

			return
		}

		if err := writeJSON(cfg, w, http.StatusOK, c); err != nil {
			errs <- err
		}
	}
}

func registerAPI(cfg *Config, mux *httprouter.Router, characters characterStore, events emitter, errs chan<- error) {
	locks := newCharacterLocks()

	mux.POST(cfg.prefix+"/api/update_hp", serveUpdateHP(cfg, characters, events, locks, errs))
	mux.POST(cfg.prefix+"/api/hp_delta", serveRelay(cfg, eventHPDelta, events, errs))
	mux.POST(cfg.prefix+"/api/slot_delta", serveRelay(cfg, eventSlotDelta, events, errs))

	mux.GET(cfg.prefix+"/api/characters", serveCharacters(cfg, characters, errs))
	mux.GET(cfg.prefix+"/api/characters/:id", serveCharacter(cfg, characters, errs))
}
