// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/stratavisit/internal/app/store/audit"
	"github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"go.uber.org/zap"
)

// Job names.
const (
	JobTableSweep     = "visitor-table-sweep"
	JobAuditRetention = "audit-retention"
)

// TableSweepJob evicts visitor tables whose session has been idle for longer
// than idle.
func TableSweepJob(reg *visitors.Registry, idle, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     JobTableSweep,
		Interval: interval,
		Run: func(ctx context.Context) error {
			if n := reg.Sweep(idle); n > 0 {
				logger.Info("evicted idle visitor tables",
					zap.Int("evicted", n),
					zap.Int("remaining", reg.Len()),
					zap.Duration("idle", idle))
			}
			return nil
		},
	}
}

// AuditRetentionJob removes audit events older than retention.
func AuditRetentionJob(store *audit.Store, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     JobAuditRetention,
		Interval: 6 * time.Hour,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			deleted, err := store.DeleteBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("removed old audit events",
					zap.Int64("deleted", deleted),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
