// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/stratavisit/internal/app/system/auditlog"
	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATAVISIT"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, site_name, etc.
//   - Environment variables: STRATAVISIT_MONGO_URI, STRATAVISIT_SITE_NAME, etc.
//   - Command-line flags: --mongo_uri, --site_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "", Desc: "MongoDB connection URI (blank runs without a database)"},
	{Name: "mongo_database", Default: "stratavisit", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 20, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 2, Desc: "MongoDB min connection pool size"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratavisit-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Site presentation
	{Name: "site_name", Default: models.DefaultSiteName, Desc: "Site name shown in the header"},
	{Name: "site_timezone", Default: clock.DefaultZone, Desc: "IANA time zone used for today's date"},
	{Name: "footer_html", Default: "", Desc: "Footer text or HTML (sanitized)"},

	// Visitor tables
	{Name: "table_idle_timeout", Default: "12h", Desc: "Drop visitor tables idle for this long"},
	{Name: "table_sweep_interval", Default: "15m", Desc: "How often to sweep idle visitor tables"},

	// Audit logging
	{Name: "audit_log_visitor", Default: "log", Desc: "Visitor event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "Delete stored audit events older than this (0 keeps them)"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Timeout for health check pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single audit writes"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATAVISIT_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		// Site
		SiteName:     appValues.String("site_name"),
		SiteTimezone: appValues.String("site_timezone"),
		FooterHTML:   appValues.String("footer_html"),

		// Visitor tables
		TableIdleTimeout:   appValues.Duration("table_idle_timeout", 12*time.Hour),
		TableSweepInterval: appValues.Duration("table_sweep_interval", 15*time.Minute),

		// Audit logging
		AuditLogVisitor: appValues.String("audit_log_visitor"),
		AuditRetention:  appValues.Duration("audit_retention", 90*24*time.Hour),

		// Timeouts
		TimeoutPing:  appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutShort: appValues.Duration("timeout_short", 5*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if appCfg.MongoURI != "" {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	}

	if !auditlog.ValidMode(appCfg.AuditLogVisitor) {
		return fmt.Errorf("invalid audit_log_visitor %q: want all, db, log or off", appCfg.AuditLogVisitor)
	}
	if appCfg.MongoURI == "" && (appCfg.AuditLogVisitor == auditlog.ModeAll || appCfg.AuditLogVisitor == auditlog.ModeDB) {
		logger.Warn("audit_log_visitor stores events in MongoDB but mongo_uri is empty; only log output will be written",
			zap.String("audit_log_visitor", appCfg.AuditLogVisitor))
	}

	if !clock.ValidZone(appCfg.SiteTimezone) {
		return fmt.Errorf("invalid site_timezone %q", appCfg.SiteTimezone)
	}

	if appCfg.TableIdleTimeout <= 0 {
		return fmt.Errorf("table_idle_timeout must be positive, got %s", appCfg.TableIdleTimeout)
	}

	return nil
}
