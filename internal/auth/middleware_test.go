package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func issue(t *testing.T, secret []byte, scopes ...string) string {
	t.Helper()
	token, err := Issue(secret, Claims{ClientName: "remote", Scopes: scopes}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func TestMiddleware_AcceptsBearerToken(t *testing.T) {
	secret := []byte("test-secret")
	token := issue(t, secret, ScopeRead)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.ClientName != "remote" {
			t.Errorf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/pause", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_RejectsQueryToken(t *testing.T) {
	secret := []byte("test-secret")
	token := issue(t, secret, ScopeRead)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/pause?token="+token, nil)
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token auth, got %d", rr.Code)
	}
}

func TestMiddleware_AcceptsQueryTokenForWebSocketUpgrade(t *testing.T) {
	secret := []byte("test-secret")
	token := issue(t, secret, ScopeControl)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			t.Errorf("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()

	Middleware(secret)(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for websocket query token auth, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_DisabledWithoutSecret(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rr := httptest.NewRecorder()
	Middleware(nil)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected pass-through, got %d", rr.Code)
	}
}

func TestRequireScope(t *testing.T) {
	secret := []byte("test-secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(secret)(RequireScope(ScopeControl)(next))

	tests := []struct {
		name   string
		scopes []string
		want   int
	}{
		{"read only", []string{ScopeRead}, http.StatusForbidden},
		{"control", []string{ScopeRead, ScopeControl}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/command", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, secret, tt.scopes...))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
