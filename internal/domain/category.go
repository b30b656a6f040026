package domain

import "github.com/google/uuid"

// Category labels tasks. Names are unique.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
