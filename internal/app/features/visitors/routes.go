// internal/app/features/visitors/routes.go
package visitors

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a chi.Router with the visitor log mounted at its root.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/", h.index)
	r.Post("/checkin", h.checkIn)
	r.Post("/checkout", h.checkOut)
	r.Post("/reset", h.reset)

	r.Get("/visitors/export.csv", h.exportCSV)
	r.Get("/visitors/export.json", h.exportJSON)
	r.Post("/visitors/{id}", h.update)
	r.Post("/visitors/{id}/delete", h.delete)

	r.Get("/api/visitors", h.apiList)
	r.Get("/api/visitors/{id}", h.apiGet)

	return r
}
