// internal/app/store/visitors/table.go
package visitors

import (
	"errors"
	"strings"
	"sync"

	"github.com/dalemusser/stratavisit/internal/app/system/clock"
	"github.com/dalemusser/stratavisit/internal/domain/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record has the requested ID.
	ErrNotFound = errors.New("visitors: record not found")
	// ErrAlreadyOut is returned when checking out a guest who already left.
	ErrAlreadyOut = errors.New("visitors: guest already checked out")
)

// CheckInInput contains the fields captured at the front desk on arrival.
// VisitDate is already formatted (see clock.VisitDate); TimeIn is raw.
type CheckInInput struct {
	VisitDate  string
	Name       string
	IDNumber   string
	Purpose    string
	GuestCount int
	BadgeID    string
	TimeIn     string
}

// UpdateInput contains optional fields for editing a record.
// Only non-nil fields are applied. TimeIn and TimeOut are raw and get the
// same clock formatting as check-in and check-out.
type UpdateInput struct {
	VisitDate  *string
	Name       *string
	IDNumber   *string
	Purpose    *string
	GuestCount *int
	BadgeID    *string
	TimeIn     *string
	TimeOut    *string
	Status     *models.VisitorStatus
}

// Stats summarizes a table.
type Stats struct {
	In    int `json:"in"`
	Out   int `json:"out"`
	Total int `json:"total"`
}

// Table is an ordered, in-memory visitor log.
//
// Rows keep insertion order and their No field is always 1..N in that order.
// All methods return copies so callers never alias table state.
type Table struct {
	mu    sync.RWMutex
	rows  []models.VisitorRecord
	newID func() string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{newID: func() string { return uuid.New().String() }}
}

// CheckIn appends a new IN record and returns it.
func (t *Table) CheckIn(in CheckInInput) models.VisitorRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := in.GuestCount
	if count < 1 {
		count = 1
	}

	rec := models.VisitorRecord{
		ID:         t.newID(),
		No:         len(t.rows) + 1,
		VisitDate:  in.VisitDate,
		Name:       in.Name,
		IDNumber:   in.IDNumber,
		Purpose:    in.Purpose,
		GuestCount: count,
		BadgeID:    in.BadgeID,
		TimeIn:     clock.FormatClock(in.TimeIn),
		TimeOut:    models.NoTimeOut,
		Status:     models.StatusIn,
	}
	t.rows = append(t.rows, rec)
	return rec
}

// CheckOut records the departure of the IN record with the given ID.
func (t *Table) CheckOut(id, timeOut string) (models.VisitorRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return models.VisitorRecord{}, ErrNotFound
	}
	if !t.rows[i].IsIn() {
		return t.rows[i], ErrAlreadyOut
	}

	t.rows[i].TimeOut = clock.FormatClock(timeOut)
	t.rows[i].Status = models.StatusOut
	return t.rows[i], nil
}

// CheckOutByName checks out the most recent IN record whose name matches.
// Names are compared exactly, as they appear in the check-out list.
func (t *Table) CheckOutByName(name, timeOut string) (models.VisitorRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.rows) - 1; i >= 0; i-- {
		if t.rows[i].IsIn() && t.rows[i].Name == name {
			t.rows[i].TimeOut = clock.FormatClock(timeOut)
			t.rows[i].Status = models.StatusOut
			return t.rows[i], nil
		}
	}
	return models.VisitorRecord{}, ErrNotFound
}

// Update applies the non-nil fields of in to the record with the given ID.
func (t *Table) Update(id string, in UpdateInput) (models.VisitorRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return models.VisitorRecord{}, ErrNotFound
	}

	rec := &t.rows[i]
	if in.VisitDate != nil {
		rec.VisitDate = *in.VisitDate
	}
	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.IDNumber != nil {
		rec.IDNumber = *in.IDNumber
	}
	if in.Purpose != nil {
		rec.Purpose = *in.Purpose
	}
	if in.GuestCount != nil && *in.GuestCount >= 1 {
		rec.GuestCount = *in.GuestCount
	}
	if in.BadgeID != nil {
		rec.BadgeID = *in.BadgeID
	}
	if in.TimeIn != nil {
		rec.TimeIn = clock.FormatClock(*in.TimeIn)
	}
	if in.TimeOut != nil {
		if strings.TrimSpace(*in.TimeOut) == "" {
			rec.TimeOut = models.NoTimeOut
		} else {
			rec.TimeOut = clock.FormatClock(*in.TimeOut)
		}
	}
	if in.Status != nil && in.Status.Valid() {
		rec.Status = *in.Status
	}
	return *rec, nil
}

// Delete removes the record with the given ID and renumbers the rest.
func (t *Table) Delete(id string) (models.VisitorRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(id)
	if i < 0 {
		return models.VisitorRecord{}, ErrNotFound
	}

	removed := t.rows[i]
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	for j := range t.rows {
		t.rows[j].No = j + 1
	}
	return removed, nil
}

// Get returns the record with the given ID.
func (t *Table) Get(id string) (models.VisitorRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i := t.indexOf(id)
	if i < 0 {
		return models.VisitorRecord{}, ErrNotFound
	}
	return t.rows[i], nil
}

// All returns every record in table order.
func (t *Table) All() []models.VisitorRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.VisitorRecord, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// FilterByID returns the records whose ID number contains sub.
// An empty sub matches every record.
func (t *Table) FilterByID(sub string) []models.VisitorRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.VisitorRecord, 0, len(t.rows))
	for _, rec := range t.rows {
		if strings.Contains(rec.IDNumber, sub) {
			out = append(out, rec)
		}
	}
	return out
}

// CountByDate returns how many records carry the given visit date.
func (t *Table) CountByDate(visitDate string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, rec := range t.rows {
		if rec.VisitDate == visitDate {
			n++
		}
	}
	return n
}

// Stats counts IN, OUT and total records.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Stats{Total: len(t.rows)}
	for _, rec := range t.rows {
		switch rec.Status {
		case models.StatusIn:
			s.In++
		case models.StatusOut:
			s.Out++
		}
	}
	return s
}

// Active returns the records still checked in, in table order.
func (t *Table) Active() []models.VisitorRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []models.VisitorRecord
	for _, rec := range t.rows {
		if rec.IsIn() {
			out = append(out, rec)
		}
	}
	return out
}

// ActiveNames returns the names of guests still checked in, in table order.
func (t *Table) ActiveNames() []string {
	active := t.Active()
	names := make([]string, len(active))
	for i, rec := range active {
		names[i] = rec.Name
	}
	return names
}

// indexOf must be called with t.mu held.
func (t *Table) indexOf(id string) int {
	for i := range t.rows {
		if t.rows[i].ID == id {
			return i
		}
	}
	return -1
}
