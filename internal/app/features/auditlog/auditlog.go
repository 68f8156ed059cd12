// internal/app/features/auditlog/auditlog.go
package auditlog

import (
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratavisit/internal/app/features/errors"
	"github.com/dalemusser/stratavisit/internal/app/store/audit"
	visitoraudit "github.com/dalemusser/stratavisit/internal/app/system/auditlog"
	"github.com/dalemusser/stratavisit/internal/app/system/auth"
	"github.com/dalemusser/stratavisit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratavisit/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const historyLimit = 50

// Handler serves the stored audit trail of a visitor record.
type Handler struct {
	auditStore *audit.Store // nil when MongoDB is not configured
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a new audit log Handler.
func NewHandler(
	auditStore *audit.Store,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		auditStore: auditStore,
		errLog:     errLog,
		logger:     logger,
	}
}

// historyItem is one event in a record's history.
type historyItem struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	BadgeID   string            `json:"badge_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// historyResponse is returned by GET /api/visitors/{id}/history.
type historyResponse struct {
	RecordID string        `json:"record_id"`
	Events   []historyItem `json:"events"`
}

// History handles GET /api/visitors/{id}/history, newest event first.
// Only events logged by the caller's own session are returned, so the history
// of a deleted row stays readable.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.auditStore == nil {
		jsonutil.Error(w, http.StatusServiceUnavailable, "audit storage is not configured")
		return
	}

	key, ok := auth.TableKey(r)
	if !ok {
		jsonutil.InternalError(w, "visitor table unavailable")
		return
	}

	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "audit history")
	defer cancel()

	events, err := h.auditStore.ForRecord(ctx, visitoraudit.SessionHash(key), id, historyLimit)
	if err != nil {
		h.errLog.Log(r, "failed to load audit history", err)
		jsonutil.InternalError(w, "failed to load history")
		return
	}
	if len(events) == 0 {
		jsonutil.NotFound(w, "visitor not found")
		return
	}

	resp := historyResponse{RecordID: id, Events: make([]historyItem, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, historyItem{
			Timestamp: e.CreatedAt,
			EventType: e.EventType,
			BadgeID:   e.BadgeID,
			Details:   e.Details,
		})
	}
	jsonutil.OK(w, resp)
}
