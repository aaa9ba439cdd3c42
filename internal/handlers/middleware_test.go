package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := TimeoutMiddleware(50*time.Millisecond, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !hasDeadline {
		t.Error("Expected request context to carry a deadline")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected handler response to pass through, got %d", rec.Code)
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	var captured *responseWriter
	h := LoggingMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if captured == nil || captured.statusCode != http.StatusTeapot {
		t.Errorf("Expected wrapped writer to record 418, got %+v", captured)
	}
}

func TestSSEWriter_FlushesThroughWrapper(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	sse := NewSSEWriter(wrapped)
	if err := sse.SendEvent("state", map[string]int{"n": 1}); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}

	if got := rec.Body.String(); got != "event: state\ndata: {\"n\":1}\n\n" {
		t.Errorf("Unexpected frame: %q", got)
	}
	if !rec.Flushed {
		t.Error("Expected the recorder to be flushed")
	}
}
