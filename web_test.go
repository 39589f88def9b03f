package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/armoury/hub"
)

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestViews(t *testing.T) {
	ts := newTestServer(t, "/table")

	tests := []struct {
		path string
		want string
	}{
		{"/", `data-view="player"`},
		{"/player", `data-view="player"`},
		{"/dm", `id="dm-apply"`},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, body := get(t, ts.url(tc.path))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
			assert.Contains(t, string(body), tc.want)
			assert.Contains(t, string(body), `data-prefix="/table"`)
		})
	}
}

func TestAssets(t *testing.T) {
	ts := newTestServer(t, "")

	resp, _ := get(t, ts.url("/assets/app.js"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/javascript; charset=utf-8", resp.Header.Get("Content-Type"))

	resp, _ = get(t, ts.url("/assets/app.css"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/css; charset=utf-8", resp.Header.Get("Content-Type"))

	resp, _ = get(t, ts.url("/assets/missing.js"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQR_EncodesPlayerURL(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := get(t, ts.url("/qr"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestPlayerURL(t *testing.T) {
	cfg := &Config{prefix: "/table"}

	r := httptest.NewRequest(http.MethodGet, "http://armoury.local:5000/qr", nil)
	assert.Equal(t, "http://armoury.local:5000/table/player", playerURL(cfg, r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://armoury.local:5000/table/player", playerURL(cfg, r))
}

func TestPlainEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	resp, body := get(t, ts.url("/healthz"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", string(body))

	resp, body = get(t, ts.url("/version"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "armoury v"+releaseVersion+"\n", string(body))

	resp, body = get(t, ts.url("/robots.txt"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Disallow: /")
}

func TestProfileHandlersOnlyWhenEnabled(t *testing.T) {
	ts := newTestServer(t, "")

	resp, _ := get(t, ts.url("/pprof/heap"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocket_EndToEnd(t *testing.T) {
	ts := newTestServer(t, "")

	dial := func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL("/ws"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var greeting hub.Frame
		require.NoError(t, conn.ReadJSON(&greeting))
		require.Equal(t, hub.EventSession, greeting.Event)

		return conn
	}

	dm := dial()
	player := dial()

	status, _ := post(t, ts.url("/api/update_hp"), `{"character_id":3,"delta":-4}`)
	require.Equal(t, http.StatusOK, status)

	for _, conn := range []*websocket.Conn{dm, player} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f hub.Frame
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, "hp_updated", f.Event)
		assert.JSONEq(t, `{"character_id":3,"current_hp":16,"max_hp":20}`, string(f.Data))
	}

	snapshot := map[string]any{"turnIndex": 2, "turnNote": "Dragon breathes"}
	require.NoError(t, dm.WriteJSON(map[string]any{"event": "state_set", "data": snapshot}))

	want, err := json.Marshal(snapshot)
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{dm, player} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f hub.Frame
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, hub.EventStateUpdated, f.Event)
		assert.JSONEq(t, string(want), string(f.Data))
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{port: 5000, database: "armoury.db", sendBuffer: 64}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, "--tls-key"},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, "--tls-cert"},
		{"port too low", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"no database", func(c *Config) { c.database = "" }, "--database"},
		{"no buffer", func(c *Config) { c.sendBuffer = 0 }, "send buffer"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)

			err := cfg.validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewCmd_ReadsEnvironment(t *testing.T) {
	t.Setenv("ARMOURY_PORT", "6123")
	t.Setenv("ARMOURY_SEND_BUFFER", "8")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NotNil(t, cmd)

	assert.Equal(t, 6123, cfg.port)
	assert.Equal(t, 8, cfg.sendBuffer)
	assert.Equal(t, "armoury.db", cfg.database)
	assert.True(t, cfg.seed)
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4000"
	assert.Equal(t, "10.0.0.5:4000", realIP(r))

	r.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7:4000", realIP(r))

	r.Header.Set("CF-Connecting-IP", "2001:db8::1")
	assert.Equal(t, "[2001:db8::1]:4000", realIP(r))
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "512 B", humanReadableSize(512))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.True(t, strings.HasSuffix(humanReadableSize(3_000_000), "MB"))
}
