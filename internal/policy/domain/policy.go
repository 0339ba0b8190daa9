package domain

import "time"

// AccessPolicy is an org-level Rego override for admin-access decisions. At
// most one per organization; absence means the platform default applies.
type AccessPolicy struct {
	OrgID     string
	Rego      string
	UpdatedAt time.Time
}
