package models

import "time"

// Orphan resolutions.
const (
	ResolutionAdopted    = "adopted"
	ResolutionAbsent     = "absent"
	ResolutionSuperseded = "superseded"
	ResolutionDeleted    = "deleted"
)

// OrphanedIdentity records a provider identity that was created without a
// matching local user record.
type OrphanedIdentity struct {
	ID                int64
	Email             string
	ProviderSubjectID string
	Reason            string
	Attempts          int
	LastError         string
	Resolution        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}
