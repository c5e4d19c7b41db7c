package domain

import "github.com/google/uuid"

// CategoryRef is the identifying pair of a category attached to a site,
// hydrated in batch after the main grid query.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
