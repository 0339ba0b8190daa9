package domain

import "time"

// AccountType is the kind of identity-provider account completing a sign-in.
type AccountType string

const (
	AccountTypeOAuth AccountType = "oauth"
	AccountTypeEmail AccountType = "email"
)

// VerificationToken is a pending email sign-in token. Only the SHA-256 digest
// of the token is stored; the raw token travels in the magic link.
type VerificationToken struct {
	Identifier string // canonical email the token was issued for
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
