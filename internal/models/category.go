package models

// MinCategories is the number of categories that must always remain.
const MinCategories = 3

// Category is an admin-managed event category.
type Category struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
}

// DefaultCategories is used when neither the backend nor the cache has a list.
var DefaultCategories = []string{"Community", "Sports", "Music", "Food", "Art", "Education"}
