package reconcile

import (
	"strings"

	"github.com/neighbourhood-events/portal/internal/models"
)

// Catalog indexes known events by id for backfilling registration snapshots.
type Catalog struct {
	byID map[models.ID]models.Event
}

// NewCatalog indexes events. When two events share an id the first one is kept.
func NewCatalog(events []models.Event) Catalog {
	c := Catalog{byID: make(map[models.ID]models.Event, len(events))}
	for _, e := range events {
		if e.ID == "" {
			continue
		}
		if _, dup := c.byID[e.ID]; !dup {
			c.byID[e.ID] = e
		}
	}
	return c
}

// Lookup returns the event with the given id.
func (c Catalog) Lookup(id models.ID) (models.Event, bool) {
	e, ok := c.byID[id]
	return e, ok
}

// MergeCatalog combines the remote approved catalog with locally cached events. Remote
// events come first; local events are considered only when APPROVED. An event is skipped
// when an earlier one has the same id or the same title.
func MergeCatalog(remote, local []models.Event) []models.Event {
	seenID := make(map[models.ID]bool, len(remote)+len(local))
	seenTitle := make(map[string]bool, len(remote)+len(local))
	out := make([]models.Event, 0, len(remote)+len(local))

	add := func(e models.Event) {
		title := strings.TrimSpace(e.Title)
		if (e.ID != "" && seenID[e.ID]) || (title != "" && seenTitle[title]) {
			return
		}
		if e.ID != "" {
			seenID[e.ID] = true
		}
		if title != "" {
			seenTitle[title] = true
		}
		out = append(out, e)
	}
	for _, e := range remote {
		add(e)
	}
	for _, e := range local {
		if e.Status == models.EventApproved {
			add(e)
		}
	}
	return out
}
