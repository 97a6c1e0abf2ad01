package reconcile

import (
	"strings"

	"github.com/neighbourhood-events/portal/internal/apperr"
	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/validation"
)

var ErrDateRange = apperr.New(apperr.Invalid, "The start date must not be after the end date")

// Filter narrows an event list. Zero fields match everything.
type Filter struct {
	Query    string `json:"q" form:"q" validate:"max=100"`
	Location string `json:"location" form:"location" validate:"max=100"`
	Status   string `json:"status" form:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED CANCELLED"`
	From     string `json:"dateFrom" form:"dateFrom" validate:"omitempty,date"`
	To       string `json:"dateTo" form:"dateTo" validate:"omitempty,date"`
}

// Normalize trims every field and upper-cases the status.
func (f *Filter) Normalize() {
	f.Query = strings.TrimSpace(f.Query)
	f.Location = strings.TrimSpace(f.Location)
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.From = strings.TrimSpace(f.From)
	f.To = strings.TrimSpace(f.To)
}

// Check normalizes f and validates it.
func (f *Filter) Check() error {
	f.Normalize()
	if err := validation.Struct(f); err != nil {
		return err
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return ErrDateRange
	}
	return nil
}

// Empty reports whether f matches every event.
func (f Filter) Empty() bool {
	return f == Filter{}
}

// Match reports whether e passes every set criterion. Query looks at title, description,
// location and category; Location only at the location. Text matching ignores case. The
// date range is inclusive and excludes undated events.
func (f Filter) Match(e models.Event) bool {
	if q := strings.ToLower(f.Query); q != "" {
		hit := false
		for _, field := range []string{e.Title, e.Description, e.Location, e.Category} {
			if strings.Contains(strings.ToLower(field), q) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(e.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.Status != "" {
		st, _ := models.ParseEventStatus(string(e.Status))
		if string(st) != f.Status {
			return false
		}
	}
	if f.From != "" || f.To != "" {
		day := e.Date
		if len(day) > len(models.DateLayout) {
			day = day[:len(models.DateLayout)]
		}
		if day == "" {
			return false
		}
		// YYYY-MM-DD orders lexically.
		if f.From != "" && day < f.From {
			return false
		}
		if f.To != "" && day > f.To {
			return false
		}
	}
	return true
}

// Search keeps the events matching f, in order.
func Search(events []models.Event, f Filter) []models.Event {
	if f.Empty() {
		return events
	}
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
