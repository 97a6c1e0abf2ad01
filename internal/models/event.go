package models

import (
	"encoding/json"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used for event dates.
const DateLayout = "2006-01-02"

// EventStatus is the moderation state of an event.
type EventStatus string

const (
	EventPending   EventStatus = "PENDING"
	EventApproved  EventStatus = "APPROVED"
	EventRejected  EventStatus = "REJECTED"
	EventCancelled EventStatus = "CANCELLED"
)

// ParseEventStatus normalizes s to a known status.
func ParseEventStatus(s string) (EventStatus, bool) {
	st := EventStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case EventPending, EventApproved, EventRejected, EventCancelled:
		return st, true
	}
	return st, false
}

// UnmarshalJSON accepts any casing.
func (s *EventStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = EventStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return nil
}

// Event is a neighbourhood event.
type Event struct {
	ID            ID          `json:"id,omitempty"`
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	Date          string      `json:"date"`
	Time          string      `json:"time,omitempty"`
	Location      string      `json:"location,omitempty"`
	Category      string      `json:"category,omitempty"`
	ContactNumber string      `json:"contactNumber,omitempty"`
	OrganizerName string      `json:"organizerName,omitempty"`
	Status        EventStatus `json:"status,omitempty"`
	Attendees     int         `json:"attendees,omitempty"`
}

// Complete reports whether the event carries everything a listing needs.
func (e Event) Complete() bool {
	return e.Title != "" && e.Date != "" && e.Time != "" && e.Location != ""
}

// Day parses the event date. Only the leading YYYY-MM-DD part is considered.
func (e Event) Day() (time.Time, error) {
	return ParseDay(e.Date)
}

// IsUpcoming reports whether the event takes place today or later, relative to now.
func (e Event) IsUpcoming(now time.Time) bool {
	d, err := e.Day()
	if err != nil {
		return false
	}
	return !d.Before(Today(now))
}

// ParseDay parses a YYYY-MM-DD date, ignoring any trailing time component.
func ParseDay(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

// Today truncates now to a UTC calendar day comparable with ParseDay results.
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
