// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/stratavisit/internal/app/features/auditlog"
	errorsfeature "github.com/dalemusser/stratavisit/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratavisit/internal/app/features/health"
	visitorsfeature "github.com/dalemusser/stratavisit/internal/app/features/visitors"
	appresources "github.com/dalemusser/stratavisit/internal/app/resources"
	"github.com/dalemusser/stratavisit/internal/app/store/audit"
	"github.com/dalemusser/stratavisit/internal/app/system/auditlog"
	"github.com/dalemusser/stratavisit/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// Every browser gets its own visitor table, keyed by a value stored in a
// signed session cookie. All form posts are CSRF protected; the read-only
// JSON API shares the same session.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	// Audit events go to zap, MongoDB, both or nowhere.
	var auditStore *audit.Store
	if deps.HasMongo() {
		auditStore = audit.New(deps.MongoDatabase)
	}
	auditLogger := auditlog.New(auditStore, logger, appCfg.AuditLogVisitor)
	logger.Info("visitor audit logging", zap.String("mode", auditLogger.Mode()))

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Health checks and static assets do not need a session or CSRF token.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Visitors, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// /static/* serves optional files from disk, e.g. a logo for the footer
	r.Handle("/static/*", fileserver.Handler("/static", "static"))

	// Cookie name is "stratavisit_csrf" to avoid collisions with other
	// services on the same domain.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratavisit_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			if req.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			errorsHandler.Forbidden(w, req)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	trustedOrigins := []string{
		"localhost:8080",
		"localhost:3000",
		"127.0.0.1:8080",
		"127.0.0.1:3000",
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins(trustedOrigins))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	csrfProtect := csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...)

	// ─────────────────────────────────────────────────────────────────────────────
	// Visitor log
	// ─────────────────────────────────────────────────────────────────────────────

	visitorsHandler := visitorsfeature.NewHandler(
		deps.Visitors,
		siteClock(appCfg),
		auditLogger,
		errLog,
		logger,
	)
	historyHandler := auditlogfeature.NewHandler(auditStore, errLog, logger)

	r.Group(func(sr chi.Router) {
		sr.Use(csrfProtect)
		sr.Use(sessionMgr.LoadVisitorSession)
		sr.Get("/api/visitors/{id}/history", historyHandler.History)
		sr.Mount("/", visitorsfeature.Routes(visitorsHandler))
	})

	// 404 catch-all for unmatched routes
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
