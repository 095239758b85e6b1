package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var ctxID string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	headerID := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("generated id %q is not a UUID: %v", headerID, err)
	}
	if ctxID != headerID {
		t.Errorf("context id = %q, header id = %q", ctxID, headerID)
	}
}

func TestRequestIDMiddleware_PropagatesClientID(t *testing.T) {
	var ctxID string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-req-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if ctxID != "client-req-1" {
		t.Errorf("context id = %q, want %q", ctxID, "client-req-1")
	}
	if got := w.Header().Get(RequestIDHeader); got != "client-req-1" {
		t.Errorf("header id = %q, want %q", got, "client-req-1")
	}
}

func TestRequestIDMiddleware_ReplacesOverlongID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	w := httptest.NewRecorder()

	NewRequestIDMiddleware()(okHandler()).ServeHTTP(w, req)

	if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
		t.Errorf("overlong id should be replaced with a UUID, got %q", w.Header().Get(RequestIDHeader))
	}
}
