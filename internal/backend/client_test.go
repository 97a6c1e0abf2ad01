package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbourhood-events/portal/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", 2*time.Second, nil)
}

func TestClient_ErrorMessageFromBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"message":"Already registered for this event"}`)
	})

	_, err := c.RegisterForEvent(context.Background(), models.Registration{Username: "alice", EventID: "42"})
	require.Error(t, err)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Equal(t, "Already registered for this event", be.Error())
	assert.False(t, be.Unreachable())
}

func TestClient_ErrorFieldAndGenericMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/forgot-password/send-reset-link" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Email not found"}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SendResetLink(context.Background(), "nobody@example.com")
	assert.EqualError(t, err, "Email not found")

	_, err = c.ListEvents(context.Background())
	assert.EqualError(t, err, "Request failed with status 500")
}

func TestClient_SuccessFalseWithOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Category not found"}`)
	})

	err := c.DeleteCategory(context.Background(), "9")
	assert.EqualError(t, err, "Category not found")
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url+"/api", time.Second, nil)
	_, err := c.UserRegistrations(context.Background(), "alice")
	require.Error(t, err)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.True(t, be.Unreachable())
	assert.Equal(t, "Unable to reach the server. Please try again.", Message(err, "fallback"))
}

func TestClient_UpdateEventStatusSendsQuotedString(t *testing.T) {
	var gotBody, gotPath, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotPath, gotMethod = string(b), r.URL.Path, r.Method
		_, _ = io.WriteString(w, `{"id":7,"title":"Picnic","date":"2030-05-01","status":"APPROVED"}`)
	})

	ev, err := c.UpdateEventStatus(context.Background(), "7", models.EventApproved)
	require.NoError(t, err)
	assert.Equal(t, `"APPROVED"`, gotBody)
	assert.Equal(t, "/api/events/7/status", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, models.ID("7"), ev.ID)
	assert.Equal(t, models.EventApproved, ev.Status)
}

func TestClient_PathSegmentsEscaped(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"success":true,"message":"Successfully unregistered from event"}`)
	})

	err := c.UnregisterFromEvent(context.Background(), "jo ann/x", "42")
	require.NoError(t, err)
	assert.Equal(t, "/api/event-registrations/unregister/jo%20ann%2Fx/42", gotPath)
}

func TestClient_RegistrationsDecodeNumericIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/event-registrations/user/alice", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":3,"username":"alice","eventId":42,"eventTitle":"Block Party","eventDate":"2030-01-01"}]`)
	})

	regs, err := c.UserRegistrations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, models.ID("3"), regs[0].ID)
	assert.Equal(t, models.ID("42"), regs[0].EventID)
	assert.Equal(t, "Block Party", regs[0].EventTitle)
}

func TestClient_CountsAndCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/event-registrations/count/event/42":
			_, _ = io.WriteString(w, `{"count":12}`)
		case "/api/event-registrations/count/organizer/bob":
			_, _ = io.WriteString(w, `{"count":30}`)
		case "/api/event-registrations/check/alice/42":
			_, _ = io.WriteString(w, `{"isRegistered":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	n, err := c.EventRegistrationCount(ctx, "42")
	require.NoError(t, err)
	assert.EqualValues(t, 12, n)

	n, err = c.OrganizerRegistrationCount(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 30, n)

	ok, err := c.CheckRegistration(ctx, "alice", "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_StatsDerivesRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalEvents":    10,
			"approvedEvents": 6,
			"pendingEvents":  3,
			"usersByRole":    map[string]int{"ADMIN": 1, "ORGANIZER": 2, "PARTICIPANT": 7},
		})
	})

	s, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.RejectedEvents)
	assert.EqualValues(t, 7, s.UsersByRole[models.RoleParticipant])
}

func TestClient_SubmitReviewReturnsText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var rv models.Review
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rv))
		assert.Equal(t, 5, rv.Rating)
		_, _ = io.WriteString(w, "Review submitted successfully")
	})

	msg, err := c.SubmitReview(context.Background(), models.Review{Username: "alice", EventID: "42", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, "Review submitted successfully", msg)
}

func TestClient_LoginNormalizesRole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":1,"username":"alice","email":"a@example.com","role":"Participant"}`)
	})

	u, err := c.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleParticipant, u.Role)
}

func TestClient_UpdateAndDeleteEvent(t *testing.T) {
	var seen []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var e models.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		e.ID = "7"
		_ = json.NewEncoder(w).Encode(e)
	})

	updated, err := c.UpdateEvent(context.Background(), "7", models.Event{Title: "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	require.NoError(t, c.DeleteEvent(context.Background(), "7"))

	assert.Equal(t, []string{"PUT /api/events/7", "DELETE /api/events/7"}, seen)
}
