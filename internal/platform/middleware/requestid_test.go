package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func TestRequestIDGeneratesUUIDv4(t *testing.T) {
	var captured string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = chimiddleware.GetReqID(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if header := rec.Header().Get(chimiddleware.RequestIDHeader); header != captured {
		t.Fatalf("expected response header %q, got %q", captured, header)
	}
	parsed, err := uuid.Parse(captured)
	if err != nil {
		t.Fatalf("request ID %q is not a valid UUID: %v", captured, err)
	}
	if parsed.Version() != 4 {
		t.Fatalf("expected UUIDv4, got version %d", parsed.Version())
	}
}

func TestRequestIDHandlesIncomingHeaders(t *testing.T) {
	tests := []struct {
		name    string
		inputID string
		wantNew bool
	}{
		{"valid id is preserved", "external-id", false},
		{"empty generates new", "", true},
		{"too long generates new", strings.Repeat("a", maxRequestIDLength+1), true},
		{"max length is preserved", strings.Repeat("a", maxRequestIDLength), false},
		{"newline generates new", "id\ninjected", true},
		{"non-ascii generates new", "id-ä", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header[chimiddleware.RequestIDHeader] = []string{tt.inputID}

			var captured string
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				captured = chimiddleware.GetReqID(r.Context())
			}))
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantNew {
				if captured == tt.inputID {
					t.Fatalf("expected a new request ID, got the incoming one")
				}
				if _, err := uuid.Parse(captured); err != nil {
					t.Fatalf("expected generated UUID, got %q", captured)
				}
				return
			}
			if captured != tt.inputID {
				t.Fatalf("expected %q to be preserved, got %q", tt.inputID, captured)
			}
		})
	}
}
