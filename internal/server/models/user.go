package models

import "time"

// User is the local mirror of an identity registered with the provider.
// ProviderSubjectID is set once, at creation, from the provider's sign-up
// response.
type User struct {
	ID                int64
	Name              string
	Email             string
	ProviderSubjectID string
	PasswordHash      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
