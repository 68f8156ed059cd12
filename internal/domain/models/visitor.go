// internal/domain/models/visitor.go
package models

// VisitorStatus is the presence state of a guest.
type VisitorStatus string

const (
	StatusIn  VisitorStatus = "IN"
	StatusOut VisitorStatus = "OUT"
)

// NoTimeOut is shown in the time-out column until the guest checks out.
const NoTimeOut = "-"

// DefaultSiteName is used when no site name is configured.
const DefaultSiteName = "Visitor Management"

// Valid reports whether s is a known status.
func (s VisitorStatus) Valid() bool {
	return s == StatusIn || s == StatusOut
}

// AllStatusValues returns every status in display order.
func AllStatusValues() []VisitorStatus {
	return []VisitorStatus{StatusIn, StatusOut}
}

// VisitorRecord is one row of the visitor log.
//
// No is the 1-based position of the row in its table and is renumbered
// whenever a row is removed. ID is stable for the lifetime of the row and is
// what edit and delete requests address.
type VisitorRecord struct {
	ID         string        `json:"id"`
	No         int           `json:"no"`
	VisitDate  string        `json:"visit_date"` // e.g. "05-Mar"
	Name       string        `json:"name"`
	IDNumber   string        `json:"id_number"` // national ID (KTP) number
	Purpose    string        `json:"purpose"`
	GuestCount int           `json:"guest_count"`
	BadgeID    string        `json:"badge_id"`
	TimeIn     string        `json:"time_in"`  // "HH.MM" when entered as four digits
	TimeOut    string        `json:"time_out"` // NoTimeOut until checked out
	Status     VisitorStatus `json:"status"`
}

// IsIn reports whether the guest is still on site.
func (v VisitorRecord) IsIn() bool {
	return v.Status == StatusIn
}
