// internal/app/features/visitors/handler.go
package visitors

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/stratavisit/internal/app/features/errors"
	visitorstore "github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"github.com/dalemusser/stratavisit/internal/app/system/auditlog"
	"github.com/dalemusser/stratavisit/internal/app/system/auth"
	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratavisit/internal/app/system/inputval"
	"github.com/dalemusser/stratavisit/internal/app/system/timeouts"
	"github.com/dalemusser/stratavisit/internal/app/system/viewdata"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errNoTableKey = errors.New("request has no visitor table key")

// Handler serves the visitor log page, its forms, exports and JSON API.
type Handler struct {
	registry *visitorstore.Registry
	clock    *clock.Clock
	audit    *auditlog.Logger // nil disables auditing
	errLog   *errorsfeature.ErrorLogger
	errPages *errorsfeature.Handler
	logger   *zap.Logger
}

// NewHandler creates a new visitors Handler.
func NewHandler(
	registry *visitorstore.Registry,
	clk *clock.Clock,
	audit *auditlog.Logger,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		registry: registry,
		clock:    clk,
		audit:    audit,
		errLog:   errLog,
		errPages: errorsfeature.NewHandler(),
		logger:   logger,
	}
}

// table returns the caller's visitor table. On failure it has already
// written an error page.
func (h *Handler) table(w http.ResponseWriter, r *http.Request) (*visitorstore.Table, string, bool) {
	key, ok := auth.TableKey(r)
	if !ok {
		h.errLog.Log(r, "visitor table unavailable", errNoTableKey)
		h.errPages.InternalError(w, r)
		return nil, "", false
	}
	return h.registry.Table(key), key, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| Filters and redirects                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func queryFilter(r *http.Request) Filter {
	return Filter{
		KTP:  strings.TrimSpace(query.Get(r, "ktp")),
		Date: strings.TrimSpace(query.Get(r, "date")),
	}
}

// formFilter reads the filter carried in hidden fields of a POSTed form.
func formFilter(r *http.Request) Filter {
	return Filter{
		KTP:  strings.TrimSpace(r.PostFormValue("ktp")),
		Date: strings.TrimSpace(r.PostFormValue("date")),
	}
}

func (f Filter) values() url.Values {
	v := url.Values{}
	if f.KTP != "" {
		v.Set("ktp", f.KTP)
	}
	if f.Date != "" {
		v.Set("date", f.Date)
	}
	return v
}

func exportURL(ext string, f Filter) string {
	u := "/visitors/export." + ext
	if q := f.values().Encode(); q != "" {
		u += "?" + q
	}
	return u
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, f Filter, success string) {
	v := f.values()
	v.Set("success", success)
	http.Redirect(w, r, "/?"+v.Encode(), http.StatusSeeOther)
}

func parseGuestCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

/*─────────────────────────────────────────────────────────────────────────────*
| Page                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// buildIndex assembles the page for tbl under filter f.
func (h *Handler) buildIndex(r *http.Request, tbl *visitorstore.Table, f Filter) IndexVM {
	day, ok := h.clock.ParseFormDate(f.Date)
	if !ok {
		f.Date = clock.FormDate(day)
	}
	label := clock.VisitDate(day)
	rows := tbl.FilterByID(f.KTP)

	vm := IndexVM{
		BaseVM:    viewdata.NewBaseVM(r, "Visitor Log", "/"),
		Stats:     tbl.Stats(),
		Rows:      rows,
		AllRows:   tbl.All(),
		TotalRows: tbl.Len(),
		Filter:    f,
		DateLabel: label,
		DateCount: tbl.CountByDate(label),
		CheckIn: CheckInForm{
			GuestCount: 1,
			VisitDate:  clock.FormDate(h.clock.Today()),
		},
		Statuses:   models.AllStatusValues(),
		Invalid:    map[string]bool{},
		ExportCSV:  exportURL("csv", f),
		ExportJSON: exportURL("json", f),
	}

	if f.KTP != "" && len(rows) > 0 {
		vm.Match = &MatchSummary{Name: rows[0].Name, Visits: len(rows)}
	}
	for _, rec := range tbl.Active() {
		vm.Active = append(vm.Active, ActiveGuest{
			ID:    rec.ID,
			Label: rec.Name + " (" + rec.BadgeID + ")",
		})
	}
	return vm
}

// index renders the visitor log. HTMX requests from the filter form target
// #visitor-log and get only that fragment.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	tbl, _, ok := h.table(w, r)
	if !ok {
		return
	}

	vm := h.buildIndex(r, tbl, queryFilter(r))
	vm.Success = successMessages[query.Get(r, "success")]

	if r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Target") == "visitor-log" {
		templates.RenderSnippet(w, "visitors/log", vm)
		return
	}
	templates.Render(w, r, "visitors/index", vm)
}

// renderFormError re-renders the page with an inline error for form.
func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, vm IndexVM, form, msg string, invalid map[string]bool) {
	vm.Form = form
	vm.Error = msg
	if invalid != nil {
		vm.Invalid = invalid
	}
	templates.Render(w, r, "visitors/index", vm)
}

func (h *Handler) auditCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "visitor audit")
}

/*─────────────────────────────────────────────────────────────────────────────*
| Forms                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// checkIn handles POST /checkin.
func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	tbl, key, ok := h.table(w, r)
	if !ok {
		return
	}
	f := formFilter(r)

	form := CheckInForm{
		Name:       htmlsanitize.StripTags(r.PostFormValue("name")),
		IDNumber:   htmlsanitize.StripTags(r.PostFormValue("id_number")),
		Purpose:    htmlsanitize.StripTags(r.PostFormValue("purpose")),
		GuestCount: parseGuestCount(r.PostFormValue("guest_count")),
		BadgeID:    htmlsanitize.StripTags(r.PostFormValue("badge_id")),
		TimeIn:     strings.TrimSpace(r.PostFormValue("time_in")),
		VisitDate:  strings.TrimSpace(r.PostFormValue("visit_date")),
	}

	res := inputval.Validate(inputval.CheckInInput{
		Name:     form.Name,
		IDNumber: form.IDNumber,
		BadgeID:  form.BadgeID,
		TimeIn:   form.TimeIn,
	}.Trimmed())
	if res.HasErrors() {
		vm := h.buildIndex(r, tbl, f)
		vm.CheckIn = form
		h.renderFormError(w, r, vm, "checkin", res.First(), res.Fields())
		return
	}

	day, _ := h.clock.ParseFormDate(form.VisitDate)
	rec := tbl.CheckIn(visitorstore.CheckInInput{
		VisitDate:  clock.VisitDate(day),
		Name:       form.Name,
		IDNumber:   form.IDNumber,
		Purpose:    form.Purpose,
		GuestCount: form.GuestCount,
		BadgeID:    form.BadgeID,
		TimeIn:     form.TimeIn,
	})

	ctx, cancel := h.auditCtx(r)
	defer cancel()
	h.audit.CheckedIn(ctx, r, key, rec)

	h.redirect(w, r, f, "checked_in")
}

// checkOut handles POST /checkout. The visitor field carries a record ID from
// the selector; a plain name is also accepted and checks out the most recent
// guest with that name who is still in.
func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	tbl, key, ok := h.table(w, r)
	if !ok {
		return
	}
	f := formFilter(r)

	form := CheckOutForm{
		VisitorID: strings.TrimSpace(r.PostFormValue("visitor")),
		TimeOut:   strings.TrimSpace(r.PostFormValue("time_out")),
	}

	res := inputval.Validate(inputval.CheckOutInput{
		VisitorID: form.VisitorID,
		TimeOut:   form.TimeOut,
	}.Trimmed())
	if res.HasErrors() {
		vm := h.buildIndex(r, tbl, f)
		vm.CheckOut = form
		h.renderFormError(w, r, vm, "checkout", res.First(), res.Fields())
		return
	}

	rec, err := tbl.CheckOut(form.VisitorID, form.TimeOut)
	if errors.Is(err, visitorstore.ErrNotFound) {
		rec, err = tbl.CheckOutByName(form.VisitorID, form.TimeOut)
	}
	if err != nil {
		msg := "That guest is not checked in."
		if errors.Is(err, visitorstore.ErrAlreadyOut) {
			msg = "That guest has already checked out."
		}
		vm := h.buildIndex(r, tbl, f)
		vm.CheckOut = form
		h.renderFormError(w, r, vm, "checkout", msg, map[string]bool{"VisitorID": true})
		return
	}

	ctx, cancel := h.auditCtx(r)
	defer cancel()
	h.audit.CheckedOut(ctx, r, key, rec)

	h.redirect(w, r, f, "checked_out")
}

// update handles POST /visitors/{id}.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	tbl, key, ok := h.table(w, r)
	if !ok {
		return
	}
	f := formFilter(r)
	id := chi.URLParam(r, "id")

	if _, err := tbl.Get(id); err != nil {
		h.errPages.NotFound(w, r)
		return
	}

	form := EditForm{
		ID:         id,
		VisitDate:  htmlsanitize.StripTags(r.PostFormValue("visit_date")),
		Name:       htmlsanitize.StripTags(r.PostFormValue("name")),
		IDNumber:   htmlsanitize.StripTags(r.PostFormValue("id_number")),
		Purpose:    htmlsanitize.StripTags(r.PostFormValue("purpose")),
		GuestCount: parseGuestCount(r.PostFormValue("guest_count")),
		BadgeID:    htmlsanitize.StripTags(r.PostFormValue("badge_id")),
		TimeIn:     strings.TrimSpace(r.PostFormValue("time_in")),
		TimeOut:    strings.TrimSpace(r.PostFormValue("time_out")),
		Status:     strings.ToUpper(strings.TrimSpace(r.PostFormValue("status"))),
	}

	res := inputval.Validate(inputval.EditInput{
		Name:     form.Name,
		IDNumber: form.IDNumber,
		BadgeID:  form.BadgeID,
		TimeIn:   form.TimeIn,
		Status:   form.Status,
	}.Trimmed())
	if res.HasErrors() {
		vm := h.buildIndex(r, tbl, f)
		vm.Edit = form
		h.renderFormError(w, r, vm, "edit", res.First(), res.Fields())
		return
	}

	status := models.VisitorStatus(form.Status)
	in := visitorstore.UpdateInput{
		Name:     &form.Name,
		IDNumber: &form.IDNumber,
		Purpose:  &form.Purpose,
		BadgeID:  &form.BadgeID,
		TimeIn:   &form.TimeIn,
		TimeOut:  &form.TimeOut,
		Status:   &status,
	}
	if strings.TrimSpace(r.PostFormValue("guest_count")) != "" {
		in.GuestCount = &form.GuestCount
	}
	// A blank date keeps the stored one; a date picker value is reformatted.
	if form.VisitDate != "" {
		visitDate := form.VisitDate
		if day, ok := h.clock.ParseFormDate(visitDate); ok {
			visitDate = clock.VisitDate(day)
		}
		in.VisitDate = &visitDate
	}
	rec, err := tbl.Update(id, in)
	if err != nil {
		// deleted between Get and Update by another tab
		h.errPages.NotFound(w, r)
		return
	}

	ctx, cancel := h.auditCtx(r)
	defer cancel()
	h.audit.Updated(ctx, r, key, rec)

	h.redirect(w, r, f, "updated")
}

// delete handles POST /visitors/{id}/delete.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	tbl, key, ok := h.table(w, r)
	if !ok {
		return
	}

	rec, err := tbl.Delete(chi.URLParam(r, "id"))
	if err != nil {
		h.errPages.NotFound(w, r)
		return
	}

	ctx, cancel := h.auditCtx(r)
	defer cancel()
	h.audit.Deleted(ctx, r, key, rec)

	h.redirect(w, r, formFilter(r), "deleted")
}

// reset handles POST /reset: the session starts a fresh, empty log.
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	key, ok := auth.TableKey(r)
	if !ok {
		h.errLog.Log(r, "visitor table unavailable", errNoTableKey)
		h.errPages.InternalError(w, r)
		return
	}
	h.registry.Drop(key)
	h.logger.Info("visitor log reset", zap.String("session", auditlog.SessionHash(key)))
	h.redirect(w, r, formFilter(r), "reset")
}
