// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratavisit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratavisit/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// TableCounter reports how many visitor tables are live.
type TableCounter interface {
	Len() int
}

// Handler provides health check endpoints.
type Handler struct {
	mongoClient *mongo.Client // nil when no audit database is configured
	tables      TableCounter
	logger      *zap.Logger
}

// NewHandler creates a new health check Handler. mongoClient may be nil.
func NewHandler(mongoClient *mongo.Client, tables TableCounter, logger *zap.Logger) *Handler {
	return &Handler{
		mongoClient: mongoClient,
		tables:      tables,
		logger:      logger,
	}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
	Tables   int               `json:"tables"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds /ready, /readyz and /livez directly on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) pingMongo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	return h.mongoClient.Ping(ctx, readpref.Primary())
}

// Check reports overall health, including the audit database when configured.
// The visitor table lives in memory, so a missing database only degrades
// auditing and never fails the check outright.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:   "ok",
		Services: map[string]string{"visitor_tables": "ok"},
	}
	if h.tables != nil {
		resp.Tables = h.tables.Len()
	}

	switch {
	case h.mongoClient == nil:
		resp.Services["mongodb"] = "disabled"
	default:
		if err := h.pingMongo(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Services["mongodb"] = "unavailable"
			h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
		} else {
			resp.Services["mongodb"] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready checks if the service is ready to accept requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.mongoClient != nil {
		if err := h.pingMongo(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", zap.Error(err))
			jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live checks if the process is alive.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
