// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratavisit/internal/app/resources"
	"github.com/dalemusser/stratavisit/internal/app/store/audit"
	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/app/system/tasks"
	"github.com/dalemusser/stratavisit/internal/app/system/timeouts"
	"github.com/dalemusser/stratavisit/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after backends and schema setup are complete, but before
// the HTTP handler is built and requests are served.
//
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	timeouts.Configure(timeouts.Config{
		Ping:  appCfg.TimeoutPing,
		Short: appCfg.TimeoutShort,
	})

	clk := siteClock(appCfg)
	viewdata.Init(appCfg.SiteName, appCfg.FooterHTML, clk)
	logger.Info("site configured",
		zap.String("site_name", viewdata.SiteName()),
		zap.String("timezone", clk.Location().String()),
	)

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// siteClock returns the clock for the configured site zone.
func siteClock(appCfg AppConfig) *clock.Clock {
	return clock.New(clock.Location(appCfg.SiteTimezone))
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the background jobs and starts them.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.TableSweepJob(deps.Visitors, appCfg.TableIdleTimeout, appCfg.TableSweepInterval, logger))

	if deps.HasMongo() && appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.AuditRetentionJob(audit.New(deps.MongoDatabase), appCfg.AuditRetention, logger))
	}

	taskRunner.Start()
}
