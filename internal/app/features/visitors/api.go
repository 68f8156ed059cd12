// internal/app/features/visitors/api.go
package visitors

import (
	"net/http"

	"github.com/dalemusser/stratavisit/internal/app/system/auth"
	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
)

// apiList handles GET /api/visitors?ktp=&date=.
func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	key, ok := auth.TableKey(r)
	if !ok {
		h.errLog.Log(r, "visitor table unavailable", errNoTableKey)
		jsonutil.InternalError(w, "visitor table unavailable")
		return
	}
	tbl := h.registry.Table(key)
	f := queryFilter(r)

	day, _ := h.clock.ParseFormDate(f.Date)
	label := clock.VisitDate(day)

	jsonutil.OK(w, APIResponse{
		Visitors:  tbl.FilterByID(f.KTP),
		Stats:     tbl.Stats(),
		Active:    tbl.ActiveNames(),
		Filter:    f.KTP,
		Date:      label,
		DateCount: tbl.CountByDate(label),
	})
}

// apiGet handles GET /api/visitors/{id}.
func (h *Handler) apiGet(w http.ResponseWriter, r *http.Request) {
	key, ok := auth.TableKey(r)
	if !ok {
		h.errLog.Log(r, "visitor table unavailable", errNoTableKey)
		jsonutil.InternalError(w, "visitor table unavailable")
		return
	}

	rec, err := h.registry.Table(key).Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.NotFound(w, "visitor not found")
		return
	}
	jsonutil.OK(w, rec)
}
