package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/api/response"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	backend string
	version string
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when
// sessions are kept in memory.
func NewHealthHandler(db, redis Pinger, backend, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		backend: backend,
		version: version,
	}
}

type dependencyStatus struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

type healthData struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Docstore string           `json:"docstore"`
	Database dependencyStatus `json:"database"`
	Redis    dependencyStatus `json:"redis"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Docstore: h.backend,
		Database: check(ctx, h.db),
		Redis:    check(ctx, h.redis),
	}
	if (data.Database.Enabled && !data.Database.Connected) || (data.Redis.Enabled && !data.Redis.Connected) {
		data.Status = "degraded"
	}

	response.Success(w, http.StatusOK, data, requestID)
}

func check(ctx context.Context, p Pinger) dependencyStatus {
	if p == nil {
		return dependencyStatus{}
	}
	return dependencyStatus{Enabled: true, Connected: p.Ping(ctx) == nil}
}
