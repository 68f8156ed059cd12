// internal/app/features/visitors/export.go
package visitors

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/stratavisit/internal/app/system/jsonutil"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"go.uber.org/zap"
)

var csvHeader = []string{"No", "Date", "Name", "ID Number", "Purpose", "Guests", "Badge", "Time In", "Time Out", "Status"}

func (h *Handler) exportFilename(ext string) string {
	return fmt.Sprintf("visitors_%s.%s", h.clock.Today().Format("20060102"), ext)
}

// exportCSV handles GET /visitors/export.csv for the rows matching ?ktp=.
func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	tbl, _, ok := h.table(w, r)
	if !ok {
		return
	}
	rows := tbl.FilterByID(queryFilter(r).KTP)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(h.exportFilename("csv"))))

	// UTF-8 BOM for Excel
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		h.logger.Error("CSV write failed (BOM)", zap.Error(err))
		return
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		h.logger.Error("CSV write failed (header)", zap.Error(err))
		return
	}

	for _, rec := range rows {
		if err := cw.Write([]string{
			strconv.Itoa(rec.No),
			rec.VisitDate,
			sanitizeCSVField(rec.Name),
			sanitizeCSVField(rec.IDNumber),
			sanitizeCSVField(rec.Purpose),
			strconv.Itoa(rec.GuestCount),
			sanitizeCSVField(rec.BadgeID),
			sanitizeCSVTime(rec.TimeIn),
			sanitizeCSVTime(rec.TimeOut),
			string(rec.Status),
		}); err != nil {
			h.logger.Error("CSV write failed (row)", zap.Error(err))
			return
		}
	}

	h.logger.Info("visitors CSV exported", zap.Int("rows", len(rows)))
}

// exportJSON handles GET /visitors/export.json for the rows matching ?ktp=.
func (h *Handler) exportJSON(w http.ResponseWriter, r *http.Request) {
	tbl, _, ok := h.table(w, r)
	if !ok {
		return
	}
	rows := tbl.FilterByID(queryFilter(r).KTP)

	if err := jsonutil.Attachment(w, h.exportFilename("json"), rows); err != nil {
		h.errLog.Log(r, "visitors JSON export failed", err)
		return
	}
	h.logger.Info("visitors JSON exported", zap.Int("rows", len(rows)))
}

// sanitizeCSVField prevents spreadsheet formula injection by prefixing
// cells that start with a formula character.
func sanitizeCSVField(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

// sanitizeCSVTime is sanitizeCSVField for time cells, which are free text
// when the input was not a 4-digit clock. The NoTimeOut placeholder stays as is.
func sanitizeCSVTime(s string) string {
	if s == models.NoTimeOut {
		return s
	}
	return sanitizeCSVField(s)
}
