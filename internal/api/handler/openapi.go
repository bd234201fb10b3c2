package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
)

// OpenAPIHandler serves the API description as JSON. The YAML source is
// converted once; clients revalidate with the document's ETag.
type OpenAPIHandler struct {
	source []byte

	once sync.Once
	doc  []byte
	etag string
	err  error
}

// NewOpenAPIHandler creates a handler for the given YAML document.
func NewOpenAPIHandler(source []byte) *OpenAPIHandler {
	return &OpenAPIHandler{source: source}
}

func (h *OpenAPIHandler) load() {
	h.doc, h.err = yaml.YAMLToJSON(h.source)
	if h.err != nil {
		return
	}
	sum := sha256.Sum256(h.doc)
	h.etag = `"` + hex.EncodeToString(sum[:12]) + `"`
}

// ServeHTTP handles GET /openapi.json.
func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.once.Do(h.load)

	if h.err != nil {
		middleware.Logger(r.Context()).Error("failed to convert OpenAPI document to JSON", "error", h.err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load API description", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("ETag", h.etag)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if r.Header.Get("If-None-Match") == h.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(h.doc); err != nil {
		slog.Error("failed to write OpenAPI response", "error", err)
	}
}
