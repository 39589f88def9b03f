package buttons

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_UpdateHP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/table/api/update_hp", r.URL.Path)

		var body map[string]int
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]int{"character_id": 2, "delta": -1}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"character_id":2,"current_hp":13,"max_hp":18}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/table/", 2*time.Second)

	update, err := c.UpdateHP(context.Background(), 2, -1)
	require.NoError(t, err)
	assert.Equal(t, HPUpdate{Success: true, CharacterID: 2, CurrentHP: 13, MaxHP: 18}, update)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Character not found"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, 2*time.Second).UpdateHP(context.Background(), 9, 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, "server returned 404: Character not found", statusErr.Error())
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	start := time.Now()
	_, err := NewClient(srv.URL, 50*time.Millisecond).UpdateHP(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).UpdateHP(context.Background(), 1, 1)
	require.Error(t, err)
}
