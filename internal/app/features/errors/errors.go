// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/stratavisit/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the request path, method and request ID.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.LogWithFields(r, msg, err)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	all := append(requestFields(r, err), fields...)
	e.logger.Error(msg, all...)
}

func requestFields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}
	if id := chimw.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	return fields
}

type errorVM struct {
	viewdata.BaseVM
	Heading string
	Message string
}

// Handler provides error page handlers.
type Handler struct{}

// NewHandler creates a new error Handler.
func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	vm := errorVM{
		BaseVM:  viewdata.NewBaseVM(r, title, "/"),
		Heading: title,
		Message: message,
	}
	w.WriteHeader(status)
	templates.Render(w, r, "errors/page", vm)
}

// Forbidden renders the 403 page. CSRF failures land here.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "Access Denied",
		"The form could not be verified. Reload the page and try again.")
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "Not Found",
		"That page or visitor record does not exist.")
}

// InternalError renders the 500 page.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "Server Error",
		"Something went wrong. Please try again.")
}
