package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/armoury/hub"
	"github.com/Seednode/armoury/store"
)

type testServer struct {
	cfg   *Config
	store *store.Store
	hub   *hub.Hub
	srv   *httptest.Server
	errs  chan error
}

func newTestServer(t *testing.T, prefix string) *testServer {
	t.Helper()

	ctx := context.Background()

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "armoury.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.Seed(ctx)
	require.NoError(t, err)

	cfg := &Config{
		bind:       "127.0.0.1",
		database:   "armoury.db",
		port:       5000,
		prefix:     prefix,
		sendBuffer: 64,
	}

	h := hub.New(hub.WithBuffer(cfg.sendBuffer))
	t.Cleanup(h.Close)

	errs := make(chan error, 64)

	srv := httptest.NewServer(newRouter(cfg, st, h, errs))
	t.Cleanup(srv.Close)

	return &testServer{cfg: cfg, store: st, hub: h, srv: srv, errs: errs}
}

func (ts *testServer) url(path string) string {
	return ts.srv.URL + ts.cfg.prefix + path
}

func (ts *testServer) wsURL(path string) string {
	return "ws" + strings.TrimPrefix(ts.url(path), "http")
}
