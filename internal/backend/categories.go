package backend

import (
	"context"
	"net/http"

	"github.com/neighbourhood-events/portal/internal/models"
)

// ListCategories returns the category list.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var list []models.Category
	if err := c.do(ctx, "list_categories", http.MethodGet, "/categories", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AddCategory creates a category named name.
func (c *Client) AddCategory(ctx context.Context, name string) (*models.Category, error) {
	var resp struct {
		Category *models.Category `json:"category"`
	}
	if err := c.do(ctx, "add_category", http.MethodPost, "/categories", models.Category{Name: name}, &resp); err != nil {
		return nil, err
	}
	if resp.Category == nil {
		return &models.Category{Name: name}, nil
	}
	return resp.Category, nil
}

// DeleteCategory removes category id.
func (c *Client) DeleteCategory(ctx context.Context, id models.ID) error {
	return c.do(ctx, "delete_category", http.MethodDelete, "/categories/"+seg(id.String()), nil, nil)
}
