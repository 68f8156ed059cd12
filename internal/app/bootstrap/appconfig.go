// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging, CORS and body limits.
// Everything specific to the visitor log lives here and is passed to each
// lifecycle hook.
type AppConfig struct {
	// MongoDB is optional. When MongoURI is empty the app runs without a
	// database and audit events can only go to the log.
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie carrying the visitor table key
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name (default: stratavisit-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime (default: 24h)

	// CSRF protection
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Site presentation
	SiteName     string // shown in the header and page title
	SiteTimezone string // IANA zone for "today" (default: Asia/Jakarta)
	FooterHTML   string // sanitized before display

	// Visitor tables
	TableIdleTimeout   time.Duration // drop tables untouched for this long (default: 12h)
	TableSweepInterval time.Duration // how often to look for idle tables (default: 15m)

	// Audit logging
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	AuditLogVisitor string
	AuditRetention  time.Duration // delete stored audit events older than this; 0 keeps them

	// Operation timeouts
	TimeoutPing  time.Duration
	TimeoutShort time.Duration
}
