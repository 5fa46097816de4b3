package webui

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"pdf_summarizer/webui/static"
)

// StaticAssetHandler serves the embedded browser UI with content types
// and cache headers.
type StaticAssetHandler struct {
	fs          fs.FS
	prefix      string
	indexFile   string
	enableCache bool
	cacheMaxAge int
}

// StaticAssetConfig configures the StaticAssetHandler.
type StaticAssetConfig struct {
	// Prefix is the URL prefix for static assets (default: "/static")
	Prefix string

	// IndexFile is served for "/" (default: "index.html")
	IndexFile string

	// EnableCache enables cache headers (default: true)
	EnableCache bool

	// CacheMaxAge is the max-age in seconds for cache headers (default: 3600)
	CacheMaxAge int
}

// DefaultStaticAssetConfig returns a default configuration.
func DefaultStaticAssetConfig() StaticAssetConfig {
	return StaticAssetConfig{
		Prefix:      "/static",
		IndexFile:   "index.html",
		EnableCache: true,
		CacheMaxAge: 3600,
	}
}

// NewStaticAssetHandler creates a handler over the embedded filesystem.
func NewStaticAssetHandler(config StaticAssetConfig) *StaticAssetHandler {
	return NewStaticAssetHandlerWithFS(static.GetFS(), config)
}

// NewStaticAssetHandlerWithFS creates a handler with a custom filesystem.
func NewStaticAssetHandlerWithFS(fsys fs.FS, config StaticAssetConfig) *StaticAssetHandler {
	if config.Prefix == "" {
		config.Prefix = "/static"
	}
	if config.IndexFile == "" {
		config.IndexFile = "index.html"
	}
	if config.CacheMaxAge == 0 {
		config.CacheMaxAge = 3600
	}

	return &StaticAssetHandler{
		fs:          fsys,
		prefix:      config.Prefix,
		indexFile:   config.IndexFile,
		enableCache: config.EnableCache,
		cacheMaxAge: config.CacheMaxAge,
	}
}

// ServeHTTP serves a file under the prefix. Directory requests and paths
// escaping the root answer 404.
func (h *StaticAssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := strings.TrimPrefix(r.URL.Path, h.prefix)
	urlPath = strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if urlPath == "" || urlPath == "." {
		http.NotFound(w, r)
		return
	}

	h.serveFile(w, r, urlPath, h.enableCache)
}

// ServeIndex serves the index file for "/" and 404 for any other path
// that reached it.
func (h *StaticAssetHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.serveFile(w, r, h.indexFile, false)
}

func (h *StaticAssetHandler) serveFile(w http.ResponseWriter, r *http.Request, name string, cache bool) {
	data, err := fs.ReadFile(h.fs, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", detectContentType(name))
	if cache {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(h.cacheMaxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}

// RegisterRoutes registers the index and asset routes on a ServeMux.
func (h *StaticAssetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(h.prefix+"/", h)
	mux.HandleFunc("/", h.ServeIndex)
}

// detectContentType determines the MIME type based on file extension.
func detectContentType(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
