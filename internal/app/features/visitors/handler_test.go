package visitors

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratavisit/internal/app/features/errors"
	visitorstore "github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"github.com/dalemusser/stratavisit/internal/app/system/auditlog"
	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"github.com/dalemusser/stratavisit/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	reg    *visitorstore.Registry
	router http.Handler
	logs   *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	testutil.MustBootTemplates(t)

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	loc := clock.Location(clock.DefaultZone)
	clk := clock.Fixed(loc, time.Date(2026, 3, 5, 8, 0, 0, 0, loc))
	reg := visitorstore.NewRegistry()

	h := NewHandler(reg, clk,
		auditlog.New(nil, logger, auditlog.ModeLog),
		errorsfeature.NewErrorLogger(logger),
		logger,
	)
	return &testEnv{reg: reg, router: Routes(h), logs: logs}
}

func (e *testEnv) table() *visitorstore.Table {
	return e.reg.Table(testutil.TestTableKey)
}

func (e *testEnv) serve(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(name, idNumber, badge, timeIn string) models.VisitorRecord {
	return e.table().CheckIn(visitorstore.CheckInInput{
		VisitDate:  "05-Mar",
		Name:       name,
		IDNumber:   idNumber,
		Purpose:    "Meeting",
		GuestCount: 1,
		BadgeID:    badge,
		TimeIn:     timeIn,
	})
}

func TestCheckIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(testutil.NewFormRequest("/checkin", url.Values{
		"name":        {"Budi Santoso"},
		"id_number":   {"3201010101010001"},
		"purpose":     {"Delivery"},
		"guest_count": {"2"},
		"badge_id":    {"V-01"},
		"time_in":     {"0930"},
	}))

	rec.AssertRedirect(t, "/?success=checked_in")

	rows := env.table().All()
	if len(rows) != 1 {
		t.Fatalf("table has %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.No != 1 || got.Status != models.StatusIn {
		t.Errorf("row = %+v, want No 1 with status IN", got)
	}
	if got.TimeIn != "09.30" {
		t.Errorf("TimeIn = %q, want 09.30", got.TimeIn)
	}
	if got.TimeOut != models.NoTimeOut {
		t.Errorf("TimeOut = %q, want %q", got.TimeOut, models.NoTimeOut)
	}
	if got.VisitDate != "05-Mar" {
		t.Errorf("VisitDate = %q, want 05-Mar", got.VisitDate)
	}
	if got.GuestCount != 2 {
		t.Errorf("GuestCount = %d, want 2", got.GuestCount)
	}

	if env.logs.FilterMessage("audit event").FilterField(zap.String("event_type", "visitor_checked_in")).Len() != 1 {
		t.Error("expected one visitor_checked_in audit log entry")
	}
}

func TestCheckIn_KeepsFilterAndDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(testutil.NewFormRequest("/checkin", url.Values{
		"name":       {"Siti"},
		"id_number":  {"3201"},
		"badge_id":   {"V-02"},
		"time_in":    {"10:15"},
		"visit_date": {"2026-03-04"},
		"ktp":        {"3201"},
	}))

	rec.AssertRedirect(t, "/?ktp=3201&success=checked_in")

	got := env.table().All()[0]
	if got.VisitDate != "04-Mar" {
		t.Errorf("VisitDate = %q, want 04-Mar", got.VisitDate)
	}
	if got.TimeIn != "10.15" {
		t.Errorf("TimeIn = %q, want 10.15", got.TimeIn)
	}
	if got.GuestCount != 1 {
		t.Errorf("GuestCount = %d, want default 1", got.GuestCount)
	}
}

func TestCheckIn_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "missing name",
			form:    url.Values{"id_number": {"1"}, "badge_id": {"V"}, "time_in": {"0900"}},
			message: "Name is required.",
		},
		{
			name:    "blank badge",
			form:    url.Values{"name": {"A"}, "id_number": {"1"}, "badge_id": {"   "}, "time_in": {"0900"}},
			message: "Visitor badge is required.",
		},
		{
			name:    "tags only name",
			form:    url.Values{"name": {"<b></b>"}, "id_number": {"1"}, "badge_id": {"V"}, "time_in": {"0900"}},
			message: "Name is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.serve(testutil.NewFormRequest("/checkin", tt.form))

			rec.AssertStatus(t, http.StatusOK)
			rec.AssertContains(t, tt.message)
			if env.table().Len() != 0 {
				t.Errorf("table has %d rows after invalid check-in, want 0", env.table().Len())
			}
		})
	}
}

func TestCheckIn_StripsMarkup(t *testing.T) {
	env := newTestEnv(t)

	env.serve(testutil.NewFormRequest("/checkin", url.Values{
		"name":      {"<script>alert(1)</script>Rina"},
		"id_number": {"77"},
		"badge_id":  {"V-03"},
		"time_in":   {"0800"},
	}))

	got := env.table().All()[0]
	if got.Name != "Rina" {
		t.Errorf("Name = %q, want markup stripped", got.Name)
	}
}

func TestCheckOut(t *testing.T) {
	env := newTestEnv(t)
	first := env.seed("Budi", "1", "V-01", "0900")
	env.seed("Budi", "2", "V-02", "0915")

	rec := env.serve(testutil.NewFormRequest("/checkout", url.Values{
		"visitor":  {first.ID},
		"time_out": {"1700"},
	}))
	rec.AssertRedirect(t, "/?success=checked_out")

	got, err := env.table().Get(first.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.StatusOut || got.TimeOut != "17.00" {
		t.Errorf("row = %+v, want OUT at 17.00", got)
	}
	if stats := env.table().Stats(); stats.In != 1 || stats.Out != 1 {
		t.Errorf("Stats() = %+v, want 1 in and 1 out", stats)
	}
}

func TestCheckOut_ByName(t *testing.T) {
	env := newTestEnv(t)
	env.seed("Ani", "1", "V-01", "0900")
	later := env.seed("Ani", "2", "V-02", "1000")

	rec := env.serve(testutil.NewFormRequest("/checkout", url.Values{
		"visitor":  {"Ani"},
		"time_out": {"1100"},
	}))
	rec.AssertRedirect(t, "/?success=checked_out")

	got, _ := env.table().Get(later.ID)
	if got.Status != models.StatusOut {
		t.Errorf("most recent Ani status = %s, want OUT", got.Status)
	}
}

func TestCheckOut_Errors(t *testing.T) {
	env := newTestEnv(t)
	rec := env.seed("Budi", "1", "V-01", "0900")
	if _, err := env.table().CheckOut(rec.ID, "1000"); err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"already out", url.Values{"visitor": {rec.ID}, "time_out": {"1100"}}, "That guest has already checked out."},
		{"unknown guest", url.Values{"visitor": {"Nobody"}, "time_out": {"1100"}}, "That guest is not checked in."},
		{"missing time", url.Values{"visitor": {rec.ID}}, "Time out is required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.serve(testutil.NewFormRequest("/checkout", tt.form))
			resp.AssertStatus(t, http.StatusOK)
			resp.AssertContains(t, tt.message)
		})
	}
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.seed("Budi", "1", "V-01", "0900")

	resp := env.serve(testutil.NewFormRequest("/visitors/"+rec.ID, url.Values{
		"name":      {"Budi S."},
		"id_number": {"1"},
		"purpose":   {"Interview"},
		"badge_id":  {"V-09"},
		"time_in":   {"0905"},
		"time_out":  {"1200"},
		"status":    {"out"},
	}))
	resp.AssertRedirect(t, "/?success=updated")

	got, _ := env.table().Get(rec.ID)
	if got.Name != "Budi S." || got.BadgeID != "V-09" || got.Purpose != "Interview" {
		t.Errorf("row = %+v, want edited fields", got)
	}
	if got.TimeIn != "09.05" || got.TimeOut != "12.00" || got.Status != models.StatusOut {
		t.Errorf("row = %+v, want 09.05-12.00 OUT", got)
	}
	if got.VisitDate != "05-Mar" || got.GuestCount != 1 {
		t.Errorf("row = %+v, want date and guest count kept when not posted", got)
	}
}

func TestUpdate_DateAndGuests(t *testing.T) {
	tests := []struct {
		name      string
		visitDate string
		wantDate  string
	}{
		{"date picker value", "2026-03-01", "01-Mar"},
		{"stored label", "02-Mar", "02-Mar"},
		{"blank keeps stored date", "", "05-Mar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.seed("Budi", "1", "V-01", "0900")

			resp := env.serve(testutil.NewFormRequest("/visitors/"+rec.ID, url.Values{
				"visit_date":  {tt.visitDate},
				"name":        {"Budi"},
				"id_number":   {"1"},
				"guest_count": {"4"},
				"badge_id":    {"V-01"},
				"time_in":     {"0900"},
				"status":      {"IN"},
			}))
			resp.AssertRedirect(t, "/?success=updated")

			got, _ := env.table().Get(rec.ID)
			if got.VisitDate != tt.wantDate {
				t.Errorf("VisitDate = %q, want %q", got.VisitDate, tt.wantDate)
			}
			if got.GuestCount != 4 {
				t.Errorf("GuestCount = %d, want 4", got.GuestCount)
			}
		})
	}
}

func TestUpdate_Errors(t *testing.T) {
	env := newTestEnv(t)
	rec := env.seed("Budi", "1", "V-01", "0900")

	resp := env.serve(testutil.NewFormRequest("/visitors/"+rec.ID, url.Values{
		"name": {"Budi"}, "id_number": {"1"}, "badge_id": {"V-01"}, "time_in": {"0900"},
		"status": {"GONE"},
	}))
	resp.AssertStatus(t, http.StatusOK)
	resp.AssertContains(t, "Status must be one of")

	resp = env.serve(testutil.NewFormRequest("/visitors/missing", url.Values{"name": {"x"}}))
	resp.AssertStatus(t, http.StatusNotFound)
}

func TestDelete_Renumbers(t *testing.T) {
	env := newTestEnv(t)
	env.seed("A", "1", "V-01", "0900")
	b := env.seed("B", "2", "V-02", "0910")
	env.seed("C", "3", "V-03", "0920")

	resp := env.serve(testutil.NewFormRequest("/visitors/"+b.ID+"/delete", url.Values{"ktp": {"3"}}))
	resp.AssertRedirect(t, "/?ktp=3&success=deleted")

	rows := env.table().All()
	if len(rows) != 2 {
		t.Fatalf("table has %d rows, want 2", len(rows))
	}
	if rows[0].Name != "A" || rows[0].No != 1 || rows[1].Name != "C" || rows[1].No != 2 {
		t.Errorf("rows = %+v, want A#1 then C#2", rows)
	}

	resp = env.serve(testutil.NewFormRequest("/visitors/"+b.ID+"/delete", nil))
	resp.AssertStatus(t, http.StatusNotFound)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.seed("A", "1", "V-01", "0900")

	resp := env.serve(testutil.NewFormRequest("/reset", nil))
	resp.AssertRedirect(t, "/?success=reset")

	if env.table().Len() != 0 {
		t.Errorf("table has %d rows after reset, want 0", env.table().Len())
	}

	resp = env.serve(testutil.NewFormRequest("/reset", url.Values{"ktp": {"32"}, "date": {"2026-03-04"}}))
	resp.AssertRedirect(t, "/?date=2026-03-04&ktp=32&success=reset")
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t)
	env.seed("Budi", "3201", "V-01", "0900")
	env.seed("Siti", "KTP-7700", "V-02", "0930")

	t.Run("full page", func(t *testing.T) {
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/?success=checked_in"))
		resp.AssertStatus(t, http.StatusOK)
		resp.AssertContains(t, "<!DOCTYPE html>")
		resp.AssertContains(t, "Guest checked in.")
		resp.AssertContains(t, "Budi")
		resp.AssertContains(t, "Siti")
		resp.AssertContains(t, "Total visitors on 05-Mar")
	})

	t.Run("id filter", func(t *testing.T) {
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/?ktp=320"))
		resp.AssertStatus(t, http.StatusOK)

		body := resp.Body.String()
		table, manage, found := strings.Cut(body, `id="manage"`)
		if !found {
			t.Fatal("page has no manage section")
		}
		if !strings.Contains(table, "Budi") || strings.Contains(table, "KTP-7700") {
			t.Error("visitor table should list only the matching row")
		}
		if !strings.Contains(manage, "KTP-7700") {
			t.Error("manage section should list every row")
		}
	})

	t.Run("htmx filter fragment", func(t *testing.T) {
		req := testutil.NewSessionRequest(http.MethodGet, "/?ktp=3201&date=2026-03-05")
		req.Header.Set("HX-Request", "true")
		req.Header.Set("HX-Target", "visitor-log")

		resp := env.serve(req)
		resp.AssertStatus(t, http.StatusOK)
		resp.AssertNotContains(t, "<!DOCTYPE html>")
		resp.AssertContains(t, `id="visitor-log"`)
		resp.AssertContains(t, `id="visitor-table"`)
		resp.AssertContains(t, "Total visitors on 05-Mar</dt><dd>2</dd>")
		resp.AssertContains(t, "<dt>Visits</dt><dd>1</dd>")
		resp.AssertContains(t, `id="manage"`)
		resp.AssertContains(t, "/visitors/export.csv?date=2026-03-05&amp;ktp=3201")
		resp.AssertContains(t, `name="ktp" value="3201"`)
	})

	t.Run("no active guests", func(t *testing.T) {
		env := newTestEnv(t)
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/"))
		resp.AssertContains(t, "No active guests.")
		resp.AssertContains(t, "No visitors yet.")
	})
}

func TestMissingTableKey(t *testing.T) {
	env := newTestEnv(t)

	paths := []string{"/", "/visitors/export.csv", "/api/visitors"}
	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			req := testutil.WithCSRFToken(httptest.NewRequest(http.MethodGet, p, nil))
			resp := env.serve(req)
			resp.AssertStatus(t, http.StatusInternalServerError)
		})
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.seed("=HYPERLINK(\"x\")", "3201", "V-01", "0900")
	env.seed("Siti", "7700", "V-02", "0930")

	resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/visitors/export.csv?ktp=3201"))
	resp.AssertStatus(t, http.StatusOK)

	if ct := resp.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "visitors_20260305.csv") {
		t.Errorf("Content-Disposition = %q, want dated filename", cd)
	}

	body := resp.Body.Bytes()
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("CSV export is missing the UTF-8 BOM")
	}
	text := string(body[3:])
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("CSV has %d lines, want header plus 1 row:\n%s", len(lines), text)
	}
	if lines[0] != strings.Join(csvHeader, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], `"'=HYPERLINK(""x"")"`) {
		t.Errorf("row = %q, want formula neutralized", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",09.00,-,IN") {
		t.Errorf("row = %q, want time-out dash left as is", lines[1])
	}
}

func TestExportCSV_FreeTextTimes(t *testing.T) {
	env := newTestEnv(t)

	env.serve(testutil.NewFormRequest("/checkin", url.Values{
		"name":      {"A"},
		"id_number": {"1"},
		"badge_id":  {"B"},
		"time_in":   {`=HYPERLINK("http://x")`},
	}))
	if env.table().Len() != 1 {
		t.Fatalf("table has %d rows, want 1", env.table().Len())
	}

	resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/visitors/export.csv"))
	resp.AssertStatus(t, http.StatusOK)

	lines := strings.Split(strings.TrimRight(string(resp.Body.Bytes()[3:]), "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("CSV has %d lines, want 2", len(lines))
	}
	if !strings.HasSuffix(lines[1], `,"'=HYPERLINK(""http://x"")",-,IN`) {
		t.Errorf("row = %q, want time in neutralized and time-out dash kept", lines[1])
	}
}

func TestSanitizeCSVTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"09.30", "09.30"},
		{models.NoTimeOut, models.NoTimeOut},
		{"-0900", "'-0900"},
		{"=1+1", "'=1+1"},
	}
	for _, tt := range tests {
		if got := sanitizeCSVTime(tt.in); got != tt.want {
			t.Errorf("sanitizeCSVTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExportJSON(t *testing.T) {
	env := newTestEnv(t)
	env.seed("Budi", "3201", "V-01", "0900")

	resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/visitors/export.json"))
	resp.AssertStatus(t, http.StatusOK)

	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "visitors_20260305.json") {
		t.Errorf("Content-Disposition = %q, want dated filename", cd)
	}
	var rows []models.VisitorRecord
	if err := json.Unmarshal(resp.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Budi" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestAPI(t *testing.T) {
	env := newTestEnv(t)
	budi := env.seed("Budi", "3201", "V-01", "0900")
	siti := env.seed("Siti", "7700", "V-02", "0930")
	if _, err := env.table().CheckOut(siti.ID, "1000"); err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}

	t.Run("list", func(t *testing.T) {
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/api/visitors?date=2026-03-05"))
		resp.AssertStatus(t, http.StatusOK)

		var got APIResponse
		if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got.Visitors) != 2 {
			t.Errorf("Visitors has %d rows, want 2", len(got.Visitors))
		}
		if got.Stats.In != 1 || got.Stats.Out != 1 || got.Stats.Total != 2 {
			t.Errorf("Stats = %+v", got.Stats)
		}
		if len(got.Active) != 1 || got.Active[0] != "Budi" {
			t.Errorf("Active = %v, want [Budi]", got.Active)
		}
		if got.Date != "05-Mar" || got.DateCount != 2 {
			t.Errorf("Date = %q DateCount = %d, want 05-Mar and 2", got.Date, got.DateCount)
		}
	})

	t.Run("filtered list is never null", func(t *testing.T) {
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/api/visitors?ktp=nomatch"))
		resp.AssertContains(t, `"visitors":[]`)
	})

	t.Run("get", func(t *testing.T) {
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/api/visitors/"+budi.ID))
		resp.AssertStatus(t, http.StatusOK)
		resp.AssertContains(t, `"Budi"`)
	})

	t.Run("get unknown", func(t *testing.T) {
		resp := env.serve(testutil.NewSessionRequest(http.MethodGet, "/api/visitors/nope"))
		resp.AssertStatus(t, http.StatusNotFound)
	})
}

func TestSanitizeCSVField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Budi", "Budi"},
		{"=1+1", "'=1+1"},
		{"+62", "'+62"},
		{"-5", "'-5"},
		{"@SUM", "'@SUM"},
	}
	for _, tt := range tests {
		if got := sanitizeCSVField(tt.in); got != tt.want {
			t.Errorf("sanitizeCSVField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
