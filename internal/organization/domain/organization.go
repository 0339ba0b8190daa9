package domain

import (
	"errors"
	"strings"
	"time"
)

// Org represents an organization/tenant.
type Org struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if len(o.Name) < 3 {
		return errors.New("name must be at least 3 characters")
	}
	return nil
}
