package domain

import (
	"errors"
	"time"
)

// AdminInvitation is a pending promise of the SUPERADMIN role for an email.
// Created by admin tooling; consumed (deleted) exactly once by the session
// reconciler at the moment it upgrades the matching user's role.
type AdminInvitation struct {
	ID           string
	InvitedEmail string
	CreatedAt    time.Time
}

// Validate validates the invitation for persistence.
func (a *AdminInvitation) Validate() error {
	if a.InvitedEmail == "" {
		return errors.New("invited_email is required")
	}
	return nil
}
