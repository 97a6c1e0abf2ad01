package categories

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neighbourhood-events/portal/internal/backend/backendtest"
	"github.com/neighbourhood-events/portal/internal/models"
)

type recorder struct{ events []string }

func (r *recorder) Publish(topic, event string, _ interface{}) {
	r.events = append(r.events, topic+"/"+event)
}

func TestRemove_FloorRejectsWithoutDeleteCall(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetCategories("Community", "Sports", "Music")
	rec := &recorder{}
	svc := NewService(srv.Client(), rec, nil)

	err := svc.Remove(context.Background(), "Music")
	assert.ErrorIs(t, err, ErrCategoryFloor)
	assert.Zero(t, srv.Hits("DELETE /api/categories/:id"))
	assert.Empty(t, rec.events)
}

func TestRemove_AboveFloor(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetCategories("Community", "Sports", "Music", "Food")
	rec := &recorder{}
	svc := NewService(srv.Client(), rec, nil)
	ctx := context.Background()

	require.NoError(t, svc.Remove(ctx, "food"))
	assert.Equal(t, 1, srv.Hits("DELETE /api/categories/:id"))
	assert.Len(t, svc.List(ctx), 3)
	assert.Equal(t, []string{"catalog/category_updated"}, rec.events)

	assert.ErrorIs(t, svc.Remove(ctx, "Music"), ErrCategoryFloor)
}

func TestRemove_UnknownName(t *testing.T) {
	srv := backendtest.New(t)
	svc := NewService(srv.Client(), nil, nil)
	assert.ErrorIs(t, svc.Remove(context.Background(), "Knitting"), ErrNotFound)
}

func TestAdd(t *testing.T) {
	srv := backendtest.New(t)
	svc := NewService(srv.Client(), nil, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, "   ")
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.Add(ctx, "sports")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Zero(t, srv.Hits("POST /api/categories"))

	cat, err := svc.Add(ctx, " Gardening ")
	require.NoError(t, err)
	assert.Equal(t, "Gardening", cat.Name)
	assert.NotEmpty(t, cat.ID)
}

func TestList_FallsBackToDefaults(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetDown(true)
	list := NewService(srv.Client(), nil, nil).List(context.Background())
	require.Len(t, list, len(models.DefaultCategories))
	assert.Equal(t, models.DefaultCategories[0], list[0].Name)
}

func TestHandler_FloorIsBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := backendtest.New(t)
	srv.SetCategories("Community", "Sports", "Music")
	h := NewHandler(NewService(srv.Client(), nil, nil))

	r := gin.New()
	r.DELETE("/admin/categories/:name", h.Remove)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin/categories/Music", strings.NewReader("")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "At least 3 categories must remain")
}
