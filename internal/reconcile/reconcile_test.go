package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbourhood-events/portal/internal/models"
	"github.com/neighbourhood-events/portal/internal/validation"
)

var blockParty = models.Event{
	ID: "42", Title: "Block Party", Date: "2030-01-01", Time: "18:00",
	Location: "Elm Street", Category: "Community", OrganizerName: "olga",
	Status: models.EventApproved,
}

func TestMerge_Idempotent(t *testing.T) {
	cat := NewCatalog([]models.Event{blockParty})
	remote := []models.Registration{
		{Username: "alice", EventID: "42"},
		{Username: "alice", EventID: "42"},
	}
	local := []models.Registration{
		models.NewRegistration("alice", blockParty),
		{Username: "alice", EventID: "7", EventTitle: "Garden Day", EventDate: "2030-02-01"},
	}

	first := Merge("alice", remote, local, cat)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Merge("alice", remote, local, cat))
	}
	require.Len(t, first, 2)
	assert.Equal(t, models.ID("42"), first[0].ID)
	assert.Equal(t, models.ID("7"), first[1].ID)
}

func TestMerge_RemoteWinsOnConflict(t *testing.T) {
	remote := []models.Registration{{Username: "alice", EventID: "42", EventTitle: "Block Party", EventDate: "2030-01-01", EventLocation: "Elm Street"}}
	local := []models.Registration{{Username: "alice", EventID: "42", EventTitle: "Old title", EventDate: "2029-12-31", EventLocation: "Oak Road"}}

	got := Merge("alice", remote, local, Catalog{})
	require.Len(t, got, 1)
	assert.Equal(t, "Block Party", got[0].Title)
	assert.Equal(t, "Elm Street", got[0].Location)
	assert.Equal(t, SourceRemote, got[0].Source)
}

func TestMerge_BackfillsFromCatalog(t *testing.T) {
	cat := NewCatalog([]models.Event{blockParty})
	got := Merge("alice", []models.Registration{{Username: "alice", EventID: "42"}}, nil, cat)
	require.Len(t, got, 1)
	assert.Equal(t, "Block Party", got[0].Title)
	assert.Equal(t, "2030-01-01", got[0].Date)
	assert.Equal(t, "Elm Street", got[0].Location)
	assert.Equal(t, "olga", got[0].OrganizerName)
}

func TestMerge_SnapshotIsNotRefreshed(t *testing.T) {
	edited := blockParty
	edited.Location = "Town Hall"
	cat := NewCatalog([]models.Event{edited})

	got := Merge("alice", nil, []models.Registration{models.NewRegistration("alice", blockParty)}, cat)
	require.Len(t, got, 1)
	assert.Equal(t, "Elm Street", got[0].Location)
}

func TestMerge_FiltersOtherUsersAndIncompleteEntries(t *testing.T) {
	local := []models.Registration{
		{Username: "bob", EventID: "1", EventTitle: "Bob's", EventDate: "2030-01-01"},
		{Username: "alice", EventID: "2", EventTitle: "No date"},
		{Username: "alice", EventID: "3", EventDate: "2030-01-01"},
		{Username: "alice", EventTitle: "No id", EventDate: "2030-01-01"},
	}
	assert.Empty(t, Merge("alice", nil, local, Catalog{}))
}

func TestApplyCancellationsAndActive(t *testing.T) {
	joined := Merge("alice", nil, []models.Registration{
		models.NewRegistration("alice", blockParty),
		{Username: "alice", EventID: "7", EventTitle: "Garden Day", EventDate: "2030-02-01", Cancelled: true},
		{Username: "alice", EventID: "8", EventTitle: "Book Swap", EventDate: "2030-03-01"},
	}, Catalog{})

	markers := []models.CancelMarker{{Username: "alice", EventID: "42"}, {Username: "bob", EventID: "8"}}
	got := ApplyCancellations(joined, "alice", markers)
	require.Len(t, got, 3)
	assert.Equal(t, StatusCancelled, got[0].Status)
	assert.Equal(t, StatusCancelled, got[1].Status)
	assert.Equal(t, StatusConfirmed, got[2].Status)
	assert.Equal(t, StatusConfirmed, joined[0].Status, "input is not modified")

	active := Active(got)
	require.Len(t, active, 1)
	assert.Equal(t, models.ID("8"), active[0].ID)
}

func TestUpcomingAndPartition(t *testing.T) {
	now := time.Date(2030, 1, 1, 23, 0, 0, 0, time.UTC)
	past := models.Event{ID: "1", Title: "Past", Date: "2029-12-31", Time: "10:00", Location: "Park", Status: models.EventApproved}
	pending := models.Event{ID: "2", Title: "Pending", Date: "2030-05-01", Time: "10:00", Location: "Park", Status: models.EventPending}
	incomplete := models.Event{ID: "3", Title: "No place", Date: "2030-05-01", Time: "10:00"}
	later := models.Event{ID: "4", Title: "Later", Date: "2030-06-01", Time: "10:00", Location: "Park", Status: models.EventApproved}

	upcoming := Upcoming([]models.Event{past, pending, incomplete, blockParty, later}, now)
	require.Len(t, upcoming, 2)
	assert.Equal(t, models.ID("42"), upcoming[0].ID, "today counts as upcoming")

	joined := []JoinedEvent{{ID: "42", Title: "Block Party", Date: "2030-01-01", Status: StatusConfirmed}}
	mine, available := Partition(upcoming, joined)
	require.Len(t, mine, 1)
	require.Len(t, available, 1)
	assert.Equal(t, models.ID("4"), available[0].ID)

	joined[0].Status = StatusCancelled
	mine, available = Partition(upcoming, joined)
	assert.Empty(t, mine)
	assert.Len(t, available, 2)
}

func TestMergeCatalog(t *testing.T) {
	remote := []models.Event{blockParty}
	local := []models.Event{
		{ID: "42", Title: "Renamed", Status: models.EventApproved},
		{ID: "99", Title: "Block Party", Status: models.EventApproved},
		{ID: "5", Title: "Pending local", Status: models.EventPending},
		{ID: "6", Title: "Approved local", Status: models.EventApproved},
	}
	got := MergeCatalog(remote, local)
	require.Len(t, got, 2)
	assert.Equal(t, "Block Party", got[0].Title)
	assert.Equal(t, models.ID("6"), got[1].ID)
	assert.Equal(t, got, MergeCatalog(remote, local))
}

func TestCalendar(t *testing.T) {
	later := models.Event{ID: "4", Title: "Later", Date: "2030-06-01", Time: "10:00", Location: "Park"}
	joined := []JoinedEvent{
		{ID: "42", Title: "Block Party", Date: "2030-01-01", Status: StatusConfirmed},
		{ID: "9", Title: "Gone from catalog", Date: "2029-01-01", Status: StatusCancelled},
	}
	got := Calendar([]models.Event{later, blockParty}, joined)
	require.Len(t, got, 3)

	assert.Equal(t, models.ID("9"), got[0].ID)
	assert.Equal(t, CalendarCancelled, got[0].State)
	assert.Equal(t, models.ID("42"), got[1].ID)
	assert.Equal(t, CalendarRegistered, got[1].State)
	assert.Equal(t, models.ID("4"), got[2].ID)
	assert.Equal(t, CalendarAvailable, got[2].State)
}

func TestActiveRecords(t *testing.T) {
	regs := []models.Registration{
		{Username: "alice", EventID: "1"},
		{Username: "alice", EventID: "2", Cancelled: true},
		{Username: "bob", EventID: "1"},
		{Username: "alice", EventID: "3"},
	}
	got := ActiveRecords(regs, []models.CancelMarker{{Username: "bob", EventID: "1"}})
	require.Len(t, got, 2)
	assert.Equal(t, models.ID("1"), got[0].EventID)
	assert.Equal(t, models.ID("3"), got[1].EventID)
}

func TestSearch(t *testing.T) {
	garden := models.Event{ID: "7", Title: "Garden Day", Description: "Planting bulbs", Date: "2030-03-15T09:00:00",
		Location: "Oak Park", Category: "Environment", Status: models.EventPending}
	undated := models.Event{ID: "8", Title: "Someday", Location: "Elm Street"}
	all := []models.Event{blockParty, garden, undated}

	ids := func(events []models.Event) []models.ID {
		out := []models.ID{}
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	assert.Equal(t, all, Search(all, Filter{}))
	assert.Equal(t, []models.ID{"42", "8"}, ids(Search(all, Filter{Query: "elm"})))
	assert.Equal(t, []models.ID{"7"}, ids(Search(all, Filter{Query: "BULBS"})))
	assert.Equal(t, []models.ID{"7"}, ids(Search(all, Filter{Query: "environ"})))
	assert.Equal(t, []models.ID{"42", "8"}, ids(Search(all, Filter{Location: "elm street"})))
	assert.Equal(t, []models.ID{"7"}, ids(Search(all, Filter{Status: "PENDING"})))
	assert.Equal(t, []models.ID{"7"}, ids(Search(all, Filter{From: "2030-02-01"})))
	assert.Equal(t, []models.ID{"42"}, ids(Search(all, Filter{To: "2030-01-01"})))
	assert.Equal(t, []models.ID{"7"}, ids(Search(all, Filter{From: "2030-03-15", To: "2030-03-15"})))
	assert.Empty(t, Search(all, Filter{Query: "party", Location: "oak"}))

	f := Filter{Query: "  garden ", Status: " approved "}
	f.Normalize()
	assert.Equal(t, Filter{Query: "garden", Status: "APPROVED"}, f)
}

func TestFilter_Check(t *testing.T) {
	ok := Filter{Query: " party ", From: "2030-01-01", To: "2030-01-31", Status: "approved"}
	require.NoError(t, ok.Check())
	assert.Equal(t, "party", ok.Query)
	assert.Equal(t, "APPROVED", ok.Status)

	bad := Filter{From: "next week", Status: "DRAFT"}
	var fields validation.FieldErrors
	require.ErrorAs(t, bad.Check(), &fields)
	assert.Contains(t, fields, "dateFrom")
	assert.Contains(t, fields, "status")

	reversed := Filter{From: "2030-02-01", To: "2030-01-01"}
	assert.ErrorIs(t, reversed.Check(), ErrDateRange)
}
