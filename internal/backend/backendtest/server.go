// Package backendtest runs an in-memory REST backend for tests.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neighbourhood-events/portal/internal/backend"
	"github.com/neighbourhood-events/portal/internal/models"
)

type account struct {
	models.User
	Password string
}

// Server is a fake backend. Seed it through the exported helpers; inspect calls with Hits.
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	users         []account
	events        []models.Event
	registrations []models.Registration
	categories    []models.Category
	hits          map[string]int
	nextID        int
	down          bool
	failWrites    bool
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := &Server{hits: make(map[string]int), nextID: 100}
	for _, name := range []string{"Community", "Sports", "Music", "Food"} {
		s.categories = append(s.categories, models.Category{ID: s.id(), Name: name})
	}
	s.srv = httptest.NewServer(s.router())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL.
func (s *Server) URL() string { return s.srv.URL + "/api" }

// Client returns a backend client for the server.
func (s *Server) Client() *backend.Client {
	return backend.New(s.URL(), 2*time.Second, nil)
}

// Close stops the server so every call fails as unreachable.
func (s *Server) Close() { s.srv.Close() }

// SetDown makes every request answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// FailWrites makes POST, PUT and DELETE requests answer 500.
func (s *Server) FailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// Hits returns how often a route such as "POST /api/events" was called.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.hits {
		n += v
	}
	return n
}

// AddEvent seeds an event and returns it with its id.
func (s *Server) AddEvent(e models.Event) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = s.id()
	}
	s.events = append(s.events, e)
	return e
}

// AddUser seeds an account.
func (s *Server) AddUser(u models.User, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.id()
	}
	s.users = append(s.users, account{User: u, Password: password})
	return u
}

// AddRegistration seeds a registration.
func (s *Server) AddRegistration(r models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.id()
	}
	s.registrations = append(s.registrations, r)
}

// SetCategories replaces the category list.
func (s *Server) SetCategories(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = nil
	for _, n := range names {
		s.categories = append(s.categories, models.Category{ID: s.id(), Name: n})
	}
}

// Registrations returns a copy of the stored registrations.
func (s *Server) Registrations() []models.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Registration(nil), s.registrations...)
}

// Events returns a copy of the stored events.
func (s *Server) Events() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.events...)
}

// caller holds s.mu
func (s *Server) id() models.ID {
	s.nextID++
	return models.ID(strconv.Itoa(s.nextID))
}

func fail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "message": msg})
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		s.mu.Lock()
		s.hits[c.Request.Method+" "+c.FullPath()]++
		down := s.down
		failWrites := s.failWrites && c.Request.Method != http.MethodGet
		s.mu.Unlock()
		switch {
		case down:
			fail(c, http.StatusServiceUnavailable, "Service unavailable")
		case failWrites:
			fail(c, http.StatusInternalServerError, "Internal server error")
		default:
			c.Next()
		}
	})

	api := r.Group("/api")
	api.POST("/users/register", s.register)
	api.POST("/users/login", s.login)
	api.GET("/users", s.listUsers)
	api.GET("/users/role/:role", s.listUsers)
	api.PUT("/users/:id", s.updateUser)

	api.GET("/events", s.listEvents(func(models.Event) bool { return true }))
	api.GET("/events/approved", s.listEvents(func(e models.Event) bool { return e.Status == models.EventApproved }))
	api.GET("/events/pending", s.listEvents(func(e models.Event) bool { return e.Status == models.EventPending }))
	api.GET("/events/organizer/:name", s.organizerEvents)
	api.POST("/events", s.createEvent)
	api.PUT("/events/:id", s.updateEvent)
	api.DELETE("/events/:id", s.deleteEvent)
	api.PUT("/events/:id/status", s.updateStatus)

	reg := api.Group("/event-registrations")
	reg.POST("/register", s.registerForEvent)
	reg.DELETE("/unregister/:username/:eventId", s.unregister)
	reg.GET("/user/:username", s.listRegistrations(func(c *gin.Context, r models.Registration) bool {
		return r.Username == c.Param("username")
	}))
	reg.GET("/event/:eventId", s.listRegistrations(func(c *gin.Context, r models.Registration) bool {
		return r.EventID == models.ID(c.Param("eventId"))
	}))
	reg.GET("/organizer/:name", s.listRegistrations(func(c *gin.Context, r models.Registration) bool {
		return r.OrganizerUsername == c.Param("name")
	}))
	reg.GET("/count/event/:id", s.countRegistrations(func(c *gin.Context, r models.Registration) bool {
		return r.EventID == models.ID(c.Param("id"))
	}))
	reg.GET("/count/organizer/:name", s.countRegistrations(func(c *gin.Context, r models.Registration) bool {
		return r.OrganizerUsername == c.Param("name")
	}))
	reg.GET("/check/:username/:eventId", s.check)

	api.GET("/analytics/stats", s.stats)
	api.GET("/analytics/top-organizers", s.topOrganizers)

	api.GET("/categories", s.listCategories)
	api.POST("/categories", s.addCategory)
	api.DELETE("/categories/:id", s.deleteCategory)

	api.POST("/forgot-password/send-reset-link", s.sendResetLink)
	api.POST("/forgot-password/reset-password", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
	})
	api.POST("/reviews/submit", func(c *gin.Context) {
		var rv models.Review
		if err := c.ShouldBindJSON(&rv); err != nil {
			c.String(http.StatusBadRequest, "Invalid review")
			return
		}
		c.String(http.StatusOK, "Review submitted successfully")
	})
	return r
}

func (s *Server) register(c *gin.Context) {
	var req backend.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if a.Username == req.Username {
			fail(c, http.StatusBadRequest, "Username already exists")
			return
		}
		if strings.EqualFold(a.Email, req.Email) {
			fail(c, http.StatusBadRequest, "Email already exists")
			return
		}
	}
	u := models.User{ID: s.id(), Username: req.Username, Email: req.Email, Role: req.Role, ContactNumber: req.ContactNumber}
	s.users = append(s.users, account{User: u, Password: req.Password})
	c.JSON(http.StatusOK, u)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = c.ShouldBindJSON(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if a.Username == req.Username && a.Password == req.Password {
			c.JSON(http.StatusOK, a.User)
			return
		}
	}
	fail(c, http.StatusUnauthorized, "Invalid username or password")
}

func (s *Server) listUsers(c *gin.Context) {
	role, filtered := models.ParseRole(c.Param("role"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, a := range s.users {
		if c.Param("role") != "" && (!filtered || a.Role != role) {
			continue
		}
		out = append(out, a.User)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateUser(c *gin.Context) {
	var req backend.UpdateUserRequest
	_ = c.ShouldBindJSON(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == models.ID(c.Param("id")) {
			if req.Username != "" {
				s.users[i].Username = req.Username
			}
			if req.Password != "" {
				s.users[i].Password = req.Password
			}
			c.JSON(http.StatusOK, s.users[i].User)
			return
		}
	}
	fail(c, http.StatusNotFound, "User not found")
}

func (s *Server) listEvents(keep func(models.Event) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []models.Event{}
		for _, e := range s.events {
			if keep(e) {
				out = append(out, e)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) organizerEvents(c *gin.Context) {
	name := c.Param("name")
	s.listEvents(func(e models.Event) bool { return e.OrganizerName == name })(c)
}

func (s *Server) createEvent(c *gin.Context) {
	var e models.Event
	if err := c.ShouldBindJSON(&e); err != nil {
		fail(c, http.StatusBadRequest, "Invalid event")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.Status = models.EventPending
	s.events = append(s.events, e)
	c.JSON(http.StatusOK, e)
}

func (s *Server) updateEvent(c *gin.Context) {
	var in models.Event
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid event")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == models.ID(c.Param("id")) {
			in.ID = s.events[i].ID
			in.Status = s.events[i].Status
			s.events[i] = in
			c.JSON(http.StatusOK, in)
			return
		}
	}
	fail(c, http.StatusNotFound, "Event not found")
}

func (s *Server) deleteEvent(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == models.ID(c.Param("id")) {
			s.events = append(s.events[:i], s.events[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	fail(c, http.StatusNotFound, "Event not found")
}

func (s *Server) updateStatus(c *gin.Context) {
	var raw string
	if err := c.ShouldBindJSON(&raw); err != nil {
		fail(c, http.StatusBadRequest, "Status must be a JSON string")
		return
	}
	st, ok := models.ParseEventStatus(raw)
	if !ok {
		fail(c, http.StatusBadRequest, "Unknown status")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == models.ID(c.Param("id")) {
			s.events[i].Status = st
			c.JSON(http.StatusOK, s.events[i])
			return
		}
	}
	fail(c, http.StatusNotFound, "Event not found")
}

func (s *Server) registerForEvent(c *gin.Context) {
	var reg models.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		fail(c, http.StatusBadRequest, "Invalid registration")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.Username == reg.Username && r.EventID == reg.EventID {
			fail(c, http.StatusBadRequest, "Already registered for this event")
			return
		}
	}
	reg.ID = s.id()
	s.registrations = append(s.registrations, reg)
	c.JSON(http.StatusOK, gin.H{"success": true, "registration": reg})
}

func (s *Server) unregister(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.registrations {
		if r.Username == c.Param("username") && r.EventID == models.ID(c.Param("eventId")) {
			s.registrations = append(s.registrations[:i], s.registrations[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Unregistered successfully"})
			return
		}
	}
	fail(c, http.StatusNotFound, "Registration not found")
}

func (s *Server) listRegistrations(keep func(*gin.Context, models.Registration) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := []models.Registration{}
		for _, r := range s.registrations {
			if keep(c, r) {
				out = append(out, r)
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Server) countRegistrations(keep func(*gin.Context, models.Registration) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := 0
		for _, r := range s.registrations {
			if keep(c, r) {
				n++
			}
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
	}
}

func (s *Server) check(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.registrations {
		if r.Username == c.Param("username") && r.EventID == models.ID(c.Param("eventId")) {
			c.JSON(http.StatusOK, gin.H{"isRegistered": true})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"isRegistered": false})
}

func (s *Server) stats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.Stats{
		TotalEvents:        int64(len(s.events)),
		TotalUsers:         int64(len(s.users)),
		TotalRegistrations: int64(len(s.registrations)),
		UsersByRole:        map[models.Role]int64{},
	}
	for _, e := range s.events {
		switch e.Status {
		case models.EventApproved:
			st.ApprovedEvents++
		case models.EventPending:
			st.PendingEvents++
		}
	}
	for _, a := range s.users {
		st.UsersByRole[a.Role]++
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) topOrganizers(c *gin.Context) {
	s.mu.Lock()
	counts := map[string]int64{}
	for _, e := range s.events {
		counts[e.OrganizerName]++
	}
	s.mu.Unlock()
	out := make([]models.OrganizerCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.OrganizerCount{Organizer: name, EventCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventCount != out[j].EventCount {
			return out[i].EventCount > out[j].EventCount
		}
		return out[i].Organizer < out[j].Organizer
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) listCategories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, append([]models.Category{}, s.categories...))
}

func (s *Server) addCategory(c *gin.Context) {
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil || strings.TrimSpace(cat.Name) == "" {
		fail(c, http.StatusBadRequest, "Category name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, cat.Name) {
			fail(c, http.StatusBadRequest, "Category already exists")
			return
		}
	}
	cat.ID = s.id()
	s.categories = append(s.categories, cat)
	c.JSON(http.StatusOK, gin.H{"success": true, "category": cat})
}

func (s *Server) deleteCategory(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cat := range s.categories {
		if cat.ID == models.ID(c.Param("id")) {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	fail(c, http.StatusNotFound, "Category not found")
}

func (s *Server) sendResetLink(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.ShouldBindJSON(&req)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if strings.EqualFold(a.Email, req.Email) {
			c.JSON(http.StatusOK, gin.H{"message": "Reset link sent", "resetLink": "/reset-password?token=test-token"})
			return
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Email not found"})
}
