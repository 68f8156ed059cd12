// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/dalemusser/stratavisit/internal/app/store/audit"
	"github.com/dalemusser/stratavisit/internal/app/system/network"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"go.uber.org/zap"
)

// Audit destinations accepted by New.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// ValidMode reports whether mode is one of the accepted destinations.
func ValidMode(mode string) bool {
	switch mode {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Logger records visitor table changes.
// The MongoDB leg is skipped when store is nil (no database configured).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	mode   string
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, mode string) *Logger {
	if !ValidMode(mode) {
		mode = ModeLog
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		mode:   mode,
	}
}

// Mode returns the effective destination setting.
func (l *Logger) Mode() string {
	if l == nil {
		return ModeOff
	}
	return l.mode
}

// SessionHash returns the identifier written to audit records in place of
// the raw table key, which doubles as a bearer credential for the table.
func SessionHash(tableKey string) string {
	if tableKey == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(tableKey))
	return hex.EncodeToString(sum[:8])
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.String("session", event.SessionHash),
		zap.String("ip", event.IP),
	}
	if event.RecordID != "" {
		fields = append(fields, zap.String("record_id", event.RecordID))
	}
	if event.BadgeID != "" {
		fields = append(fields, zap.String("badge_id", event.BadgeID))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)
}

// Log records an audit event according to the configured mode.
// A nil Logger is a no-op so handlers can run without auditing in tests.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.mode == ModeOff {
		return
	}

	if l.mode == ModeAll || l.mode == ModeLog {
		l.logToZap(event)
	}

	if (l.mode == ModeAll || l.mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) visitorEvent(r *http.Request, eventType, tableKey string, rec models.VisitorRecord, details map[string]string) audit.Event {
	return audit.Event{
		Category:    audit.CategoryVisitor,
		EventType:   eventType,
		SessionHash: SessionHash(tableKey),
		RecordID:    rec.ID,
		BadgeID:     rec.BadgeID,
		IP:          network.ClientIP(r),
		UserAgent:   r.UserAgent(),
		Details:     details,
	}
}

// CheckedIn logs a new visitor row.
func (l *Logger) CheckedIn(ctx context.Context, r *http.Request, tableKey string, rec models.VisitorRecord) {
	if l == nil {
		return
	}
	l.Log(ctx, l.visitorEvent(r, audit.EventCheckedIn, tableKey, rec, map[string]string{
		"time_in":     rec.TimeIn,
		"guest_count": strconv.Itoa(rec.GuestCount),
	}))
}

// CheckedOut logs a visitor leaving.
func (l *Logger) CheckedOut(ctx context.Context, r *http.Request, tableKey string, rec models.VisitorRecord) {
	if l == nil {
		return
	}
	l.Log(ctx, l.visitorEvent(r, audit.EventCheckedOut, tableKey, rec, map[string]string{
		"time_out": rec.TimeOut,
	}))
}

// Updated logs an edit of an existing row.
func (l *Logger) Updated(ctx context.Context, r *http.Request, tableKey string, rec models.VisitorRecord) {
	if l == nil {
		return
	}
	l.Log(ctx, l.visitorEvent(r, audit.EventUpdated, tableKey, rec, map[string]string{
		"status": string(rec.Status),
	}))
}

// Deleted logs removal of a row.
func (l *Logger) Deleted(ctx context.Context, r *http.Request, tableKey string, rec models.VisitorRecord) {
	if l == nil {
		return
	}
	l.Log(ctx, l.visitorEvent(r, audit.EventDeleted, tableKey, rec, map[string]string{
		"no": strconv.Itoa(rec.No),
	}))
}
