package webui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pdf_summarizer/logging"
)

func observedMiddleware(config LoggingMiddlewareConfig) (*LoggingMiddleware, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewLoggingMiddleware(config, logging.FromZap(zap.New(core))), logs
}

func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	m, logs := observedMiddleware(LoggingMiddlewareConfig{LogUserAgent: true})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if RequestIDFromContext(r.Context()) == "" {
			t.Error("request id missing from context")
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if logs.Len() != 1 {
		t.Fatalf("logged %d entries, want 1", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("level = %v, want info", entry.Level)
	}

	fields := entry.ContextMap()
	if fields["method"] != "POST" || fields["path"] != "/api/summarize" {
		t.Errorf("method/path = %v %v", fields["method"], fields["path"])
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Errorf("status = %v, want 201", fields["status"])
	}
	if fields["bytes"] != int64(5) {
		t.Errorf("bytes = %v, want 5", fields["bytes"])
	}
	if fields["user_agent"] != "test-agent" {
		t.Errorf("user_agent = %v", fields["user_agent"])
	}
	if fields["request_id"] != rec.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %v, header = %q", fields["request_id"], rec.Header().Get(RequestIDHeader))
	}
}

func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusBadRequest, zapcore.WarnLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		m, logs := observedMiddleware(LoggingMiddlewareConfig{})
		handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if got := logs.All()[0].Level; got != tt.want {
			t.Errorf("status %d logged at %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggingMiddleware_SkipPaths(t *testing.T) {
	m, logs := observedMiddleware(LoggingMiddlewareConfig{SkipPaths: []string{"/health"}})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if logs.Len() != 0 {
		t.Errorf("logged %d entries for skipped path", logs.Len())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("skipped path still needs a request id")
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	m, _ := observedMiddleware(LoggingMiddlewareConfig{})
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"forwarded for", "192.0.2.1:1234", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", "192.0.2.1:1234", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"no port", "unix", nil, "unix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
