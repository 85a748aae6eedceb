package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/23f3000163/healnest/internal/appointment"
)

func TestActorMiddlewarePopulatesContext(t *testing.T) {
	userID := uuid.New()

	var got appointment.Actor
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = ActorFrom(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/me/appointments", nil)
	req.Header.Set("X-User-ID", userID.String())
	req.Header.Set("X-User-Role", "patient")
	rec := httptest.NewRecorder()

	ActorMiddleware(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !ok || got.ID != userID || got.Role != appointment.RolePatient {
		t.Fatalf("actor not populated: %+v ok=%v", got, ok)
	}
}

func TestActorMiddlewareRejectsBadIdentity(t *testing.T) {
	tests := []struct {
		name string
		id   string
		role string
	}{
		{"missing headers", "", ""},
		{"missing role", uuid.NewString(), ""},
		{"malformed id", "not-a-uuid", "patient"},
		{"unknown role", uuid.NewString(), "receptionist"},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a valid identity")
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me/appointments", nil)
			if tt.id != "" {
				req.Header.Set("X-User-ID", tt.id)
			}
			if tt.role != "" {
				req.Header.Set("X-User-Role", tt.role)
			}
			rec := httptest.NewRecorder()

			ActorMiddleware(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	RequestIDMiddleware(next).ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("response header %q does not match context id %q", rec.Header().Get("X-Request-ID"), seen)
	}

	// A caller-supplied id is preserved.
	req = httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()

	RequestIDMiddleware(next).ServeHTTP(rec, req)

	if seen != "req-42" || rec.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("caller request id not preserved: context=%q header=%q", seen, rec.Header().Get("X-Request-ID"))
	}
}
