/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/friendsincode/playcore/internal/auth"
	"github.com/friendsincode/playcore/internal/decoder"
	"github.com/friendsincode/playcore/internal/demux"
	"github.com/friendsincode/playcore/internal/engine"
	"github.com/friendsincode/playcore/internal/player"
	"github.com/friendsincode/playcore/internal/stream"
)

type noStreams struct{}

func (noStreams) Open(context.Context, string) (*stream.Stream, error) {
	return nil, stream.ErrUnsupportedScheme
}

func newTestServer(t *testing.T, secret []byte) *httptest.Server {
	t.Helper()
	chains, err := decoder.NewFactory("null", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	opts := player.DefaultOptions()
	opts.Idle = true
	opts.TickInterval = time.Millisecond
	eng := engine.New(opts, player.Deps{
		Streams:  noStreams{},
		Demuxers: demux.NewOpener(zerolog.Nop()),
		Chains:   chains,
	}, zerolog.Nop())

	srv, err := New(Config{JWTSecret: secret}, eng, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Initialize(); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Terminate(ctx)
	})
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
}

func TestPropertyEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/volume", "", nil)
	if status != http.StatusOK || body["error"] != "success" || body["data"] != 100.0 {
		t.Fatalf("get volume: %d %v", status, body)
	}

	status, body = doJSON(t, http.MethodPut, ts.URL+"/api/v1/properties/volume", "", map[string]any{"data": 55})
	if status != http.StatusOK {
		t.Fatalf("set volume: %d %v", status, body)
	}
	_, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/volume", "", nil)
	if body["data"] != 55.0 {
		t.Fatalf("volume after set = %v", body["data"])
	}

	status, body = doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/nope", "", nil)
	if status != http.StatusNotFound || body["error"] != "property not found" {
		t.Fatalf("unknown property: %d %v", status, body)
	}

	status, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/time-pos", "", nil)
	if status != http.StatusConflict {
		t.Fatalf("unavailable property status = %d", status)
	}
}

func TestCommandEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name    string
		command []any
		status  int
		errText string
	}{
		{"unknown", []any{"dance"}, http.StatusBadRequest, "error running command"},
		{"empty", []any{}, http.StatusBadRequest, "invalid parameter"},
		{"set", []any{"set", "mute", true}, http.StatusOK, "success"},
		{"add number", []any{"add", "volume", -10}, http.StatusOK, "success"},
		{"nested", []any{"set", map[string]any{"a": 1}}, http.StatusBadRequest, "invalid parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/command", "", map[string]any{"command": tt.command})
			if status != tt.status || body["error"] != tt.errText {
				t.Fatalf("got %d %v", status, body)
			}
		})
	}

	_, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/mute", "", nil)
	if body["data"] != true {
		t.Fatalf("mute = %v", body["data"])
	}
}

func TestAuthScopes(t *testing.T) {
	secret := []byte("ipc-secret")
	ts := newTestServer(t, secret)

	status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/volume", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", status)
	}

	reader, err := auth.Issue(secret, auth.Claims{ClientName: "panel", Scopes: []string{auth.ScopeRead}}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/properties/volume", reader, nil); status != http.StatusOK {
		t.Fatalf("reader get status = %d", status)
	}
	if status, _ := doJSON(t, http.MethodPost, ts.URL+"/api/v1/command", reader, map[string]any{"command": []any{"stop"}}); status != http.StatusForbidden {
		t.Fatalf("reader command status = %d", status)
	}

	if resp, err := http.Get(ts.URL + "/healthz"); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz must stay public: %v", err)
	} else {
		resp.Body.Close()
	}
}

func readUntil(t *testing.T, ctx context.Context, conn *ws.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	for {
		var msg map[string]any
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?client_name=remote"
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	byID := func(id float64) func(map[string]any) bool {
		return func(m map[string]any) bool { return m["request_id"] == id }
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"command": []any{"client_name"}, "request_id": 1}); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, ctx, conn, byID(1)); msg["data"] != "remote" {
		t.Fatalf("client_name = %v", msg)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"command": []any{"get_property", "speed"}, "request_id": 2}); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, ctx, conn, byID(2)); msg["error"] != "success" || msg["data"] != 1.0 {
		t.Fatalf("get_property = %v", msg)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"command": []any{"observe_property", 4, "pause"}, "request_id": 3}); err != nil {
		t.Fatal(err)
	}
	change := readUntil(t, ctx, conn, func(m map[string]any) bool { return m["event"] == "property-change" })
	if change["name"] != "pause" || change["id"] != 4.0 || change["data"] != false {
		t.Fatalf("property-change = %v", change)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"command": []any{"dance"}, "request_id": 5}); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, ctx, conn, byID(5)); msg["error"] != "error running command" {
		t.Fatalf("unknown command reply = %v", msg)
	}

	if err := wsjson.Write(ctx, conn, map[string]any{"command": []any{"observe_property", "x", "pause"}, "request_id": 6}); err != nil {
		t.Fatal(err)
	}
	if msg := readUntil(t, ctx, conn, byID(6)); msg["error"] != "invalid parameter" {
		t.Fatalf("bad observe reply = %v", msg)
	}
}
