package handler

import (
	"time"

	"github.com/google/uuid"

	userdomain "tenant-admin-plane/internal/user/domain"
)

// newUser materializes the user record for a first accepted sign-in.
func newUser(email, name string, emailVerified bool) *userdomain.User {
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      name,
		Role:      userdomain.GlobalRoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if emailVerified {
		u.EmailVerified = &now
	}
	return u
}
