// internal/app/features/visitors/types.go
package visitors

import (
	visitorstore "github.com/dalemusser/stratavisit/internal/app/store/visitors"
	"github.com/dalemusser/stratavisit/internal/app/system/viewdata"
	"github.com/dalemusser/stratavisit/internal/domain/models"
)

// Flash messages keyed by the ?success= value set after a redirect.
var successMessages = map[string]string{
	"checked_in":  "Guest checked in.",
	"checked_out": "Guest checked out.",
	"updated":     "Visitor record updated.",
	"deleted":     "Visitor record deleted.",
	"reset":       "Started a new visitor log.",
}

// Filter holds the sidebar filter values carried through forms and redirects.
type Filter struct {
	KTP  string // ID number substring
	Date string // yyyy-mm-dd, site time zone
}

// MatchSummary describes the first guest matching the ID filter.
type MatchSummary struct {
	Name   string
	Visits int
}

// ActiveGuest is one entry of the check-out selector.
type ActiveGuest struct {
	ID    string
	Label string
}

// CheckInForm echoes check-in values back after a validation error.
type CheckInForm struct {
	Name       string
	IDNumber   string
	Purpose    string
	GuestCount int
	BadgeID    string
	TimeIn     string
	VisitDate  string // yyyy-mm-dd
}

// CheckOutForm echoes check-out values back after a validation error.
type CheckOutForm struct {
	VisitorID string
	TimeOut   string
}

// EditForm echoes an edit back after a validation error.
type EditForm struct {
	ID         string
	VisitDate  string // dd-Mon as stored, or yyyy-mm-dd
	Name       string
	IDNumber   string
	Purpose    string
	GuestCount int
	BadgeID    string
	TimeIn     string
	TimeOut    string
	Status     string
}

// IndexVM is the view model for the visitor log page.
type IndexVM struct {
	viewdata.BaseVM

	Stats     visitorstore.Stats
	Rows      []models.VisitorRecord
	AllRows   []models.VisitorRecord // the manage section lists every row
	TotalRows int                    // rows before the ID filter
	Active    []ActiveGuest

	Filter    Filter
	DateLabel string // dd-Mon for the selected date
	DateCount int
	Match     *MatchSummary

	CheckIn  CheckInForm
	CheckOut CheckOutForm
	Edit     EditForm
	Statuses []models.VisitorStatus

	// Invalid marks form fields that failed validation.
	Invalid map[string]bool
	// Form names the form an Error belongs to: checkin, checkout or edit.
	Form string

	Success string
	Error   string

	// Export links carry the current filter.
	ExportCSV  string
	ExportJSON string
}

// APIResponse is returned by GET /api/visitors.
type APIResponse struct {
	Visitors  []models.VisitorRecord `json:"visitors"`
	Stats     visitorstore.Stats     `json:"stats"`
	Active    []string               `json:"active"`
	Filter    string                 `json:"filter,omitempty"`
	Date      string                 `json:"date"`
	DateCount int                    `json:"date_count"`
}
