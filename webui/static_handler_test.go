package webui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
)

func testStaticFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":  {Data: []byte("<html>index</html>")},
		"css/app.css": {Data: []byte("body{}")},
		"js/app.js":   {Data: []byte("console.log(1)")},
	}
}

func TestStaticAssetHandler(t *testing.T) {
	h := NewStaticAssetHandlerWithFS(testStaticFS(), DefaultStaticAssetConfig())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantType   string
		wantCache  string
		wantBody   string
	}{
		{http.MethodGet, "/", http.StatusOK, "text/html; charset=utf-8", "no-cache", "<html>index</html>"},
		{http.MethodGet, "/static/css/app.css", http.StatusOK, "text/css; charset=utf-8", "public, max-age=3600", "body{}"},
		{http.MethodGet, "/static/js/app.js", http.StatusOK, "application/javascript; charset=utf-8", "public, max-age=3600", "console.log(1)"},
		{http.MethodHead, "/static/js/app.js", http.StatusOK, "application/javascript; charset=utf-8", "public, max-age=3600", ""},
		{http.MethodGet, "/static/", http.StatusNotFound, "", "", ""},
		{http.MethodGet, "/static/js", http.StatusNotFound, "", "", ""},
		{http.MethodGet, "/other", http.StatusNotFound, "", "", ""},
		{http.MethodPost, "/static/js/app.js", http.StatusMethodNotAllowed, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if got := rec.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", got, tt.wantType)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control = %q, want %q", got, tt.wantCache)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := map[string]string{
		"a.html": "text/html; charset=utf-8",
		"a.CSS":  "text/css; charset=utf-8",
		"a.js":   "application/javascript; charset=utf-8",
		"a.svg":  "image/svg+xml",
		"a.png":  "image/png",
		"a.zzz":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := detectContentType(name); got != want {
			t.Errorf("detectContentType(%q) = %q, want %q", name, got, want)
		}
	}
}
