// Package reconcile merges a user's server-side registrations with the locally recorded
// ones into the single list of events the user is considered joined to. Everything here
// is pure: the same inputs always produce the same output.
package reconcile

import (
	"sort"
	"time"

	"github.com/neighbourhood-events/portal/internal/models"
)

// Status is the effective state of a joined event.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Source tells where a joined entry came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// JoinedEvent is the display record for one event the user joined. ID is the event id.
type JoinedEvent struct {
	ID             models.ID `json:"id"`
	RegistrationID models.ID `json:"registrationId,omitempty"`
	Title          string    `json:"title"`
	Date           string    `json:"date"`
	Time           string    `json:"time,omitempty"`
	Location       string    `json:"location,omitempty"`
	Category       string    `json:"category,omitempty"`
	Description    string    `json:"description,omitempty"`
	OrganizerName  string    `json:"organizerName,omitempty"`
	Status         Status    `json:"status"`
	Source         Source    `json:"source"`
}

// Cancelled reports whether the entry is cancelled.
func (j JoinedEvent) Cancelled() bool { return j.Status == StatusCancelled }

// Event rebuilds an event from the snapshot.
func (j JoinedEvent) Event() models.Event {
	return models.Event{
		ID:            j.ID,
		Title:         j.Title,
		Date:          j.Date,
		Time:          j.Time,
		Location:      j.Location,
		Category:      j.Category,
		Description:   j.Description,
		OrganizerName: j.OrganizerName,
		Status:        models.EventApproved,
	}
}

func display(r models.Registration, cat Catalog, src Source) JoinedEvent {
	j := JoinedEvent{
		ID:             r.EventID,
		RegistrationID: r.ID,
		Title:          r.EventTitle,
		Date:           r.EventDate,
		Time:           r.EventTime,
		Location:       r.EventLocation,
		Category:       r.EventCategory,
		Description:    r.EventDescription,
		OrganizerName:  r.OrganizerUsername,
		Status:         StatusConfirmed,
		Source:         src,
	}
	if r.Cancelled {
		j.Status = StatusCancelled
	}
	if e, ok := cat.Lookup(r.EventID); ok {
		fill(&j.Title, e.Title)
		fill(&j.Date, e.Date)
		fill(&j.Time, e.Time)
		fill(&j.Location, e.Location)
		fill(&j.Category, e.Category)
		fill(&j.Description, e.Description)
		fill(&j.OrganizerName, e.OrganizerName)
	}
	return j
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Merge builds the joined list for username. Remote registrations are mapped first, then
// local registrations recorded for this user; missing snapshot fields are filled from the
// catalog. Entries still lacking a title or date are dropped. Duplicates by event id keep
// the first occurrence, so remote data wins over local data.
func Merge(username string, remote, local []models.Registration, cat Catalog) []JoinedEvent {
	candidates := make([]JoinedEvent, 0, len(remote)+len(local))
	for _, r := range remote {
		candidates = append(candidates, display(r, cat, SourceRemote))
	}
	for _, r := range local {
		if r.Username != username {
			continue
		}
		candidates = append(candidates, display(r, cat, SourceLocal))
	}

	seen := make(map[models.ID]bool, len(candidates))
	out := make([]JoinedEvent, 0, len(candidates))
	for _, j := range candidates {
		if j.ID == "" || j.Title == "" || j.Date == "" {
			continue
		}
		if seen[j.ID] {
			continue
		}
		seen[j.ID] = true
		out = append(out, j)
	}
	return out
}

// ApplyCancellations marks entries cancelled when username holds a cancellation marker for
// the event.
func ApplyCancellations(joined []JoinedEvent, username string, markers []models.CancelMarker) []JoinedEvent {
	cancelled := make(map[models.ID]bool, len(markers))
	for _, m := range markers {
		if m.Username == username {
			cancelled[m.EventID] = true
		}
	}
	out := make([]JoinedEvent, len(joined))
	for i, j := range joined {
		if cancelled[j.ID] {
			j.Status = StatusCancelled
		}
		out[i] = j
	}
	return out
}

// Active drops cancelled entries.
func Active(joined []JoinedEvent) []JoinedEvent {
	out := make([]JoinedEvent, 0, len(joined))
	for _, j := range joined {
		if !j.Cancelled() {
			out = append(out, j)
		}
	}
	return out
}

// ActiveRecords keeps the local registration records that are neither flagged cancelled nor
// covered by a cancellation marker.
func ActiveRecords(regs []models.Registration, markers []models.CancelMarker) []models.Registration {
	cancelled := make(map[models.CancelMarker]bool, len(markers))
	for _, m := range markers {
		cancelled[m] = true
	}
	out := make([]models.Registration, 0, len(regs))
	for _, r := range regs {
		if r.Cancelled || cancelled[models.CancelMarker{Username: r.Username, EventID: r.EventID}] {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Upcoming keeps complete events that are not moderated away and take place today or later.
func Upcoming(events []models.Event, now time.Time) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.Status != "" && e.Status != models.EventApproved {
			continue
		}
		if e.Complete() && e.IsUpcoming(now) {
			out = append(out, e)
		}
	}
	return out
}

// Partition splits upcoming events into the ones the user actively joined and the ones
// still available to join.
func Partition(upcoming []models.Event, joined []JoinedEvent) (mine, available []models.Event) {
	active := make(map[models.ID]bool, len(joined))
	for _, j := range Active(joined) {
		active[j.ID] = true
	}
	for _, e := range upcoming {
		if active[e.ID] {
			mine = append(mine, e)
		} else {
			available = append(available, e)
		}
	}
	return mine, available
}

// CalendarState annotates an event in the calendar view.
type CalendarState string

const (
	CalendarAvailable  CalendarState = "available"
	CalendarRegistered CalendarState = "registered"
	CalendarCancelled  CalendarState = "cancelled"
)

// CalendarEntry is an event with the user's state for it.
type CalendarEntry struct {
	models.Event
	State CalendarState `json:"state"`
}

// Calendar annotates every catalog event and appends joined events the catalog does not
// know, ordered by date. Cancelled entries stay visible so they can be struck through.
func Calendar(catalog []models.Event, joined []JoinedEvent) []CalendarEntry {
	byID := make(map[models.ID]JoinedEvent, len(joined))
	for _, j := range joined {
		byID[j.ID] = j
	}

	out := make([]CalendarEntry, 0, len(catalog)+len(joined))
	listed := make(map[models.ID]bool, len(catalog))
	for _, e := range catalog {
		if e.ID != "" && listed[e.ID] {
			continue
		}
		listed[e.ID] = true
		state := CalendarAvailable
		if j, ok := byID[e.ID]; ok && e.ID != "" {
			state = CalendarRegistered
			if j.Cancelled() {
				state = CalendarCancelled
			}
		}
		out = append(out, CalendarEntry{Event: e, State: state})
	}
	for _, j := range joined {
		if listed[j.ID] {
			continue
		}
		state := CalendarRegistered
		if j.Cancelled() {
			state = CalendarCancelled
		}
		out = append(out, CalendarEntry{Event: j.Event(), State: state})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Date < out[b].Date
	})
	return out
}
