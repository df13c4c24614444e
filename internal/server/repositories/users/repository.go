package users

import (
	"context"

	"github.com/dmitrijs2005/authbridge/internal/server/models"
)

// Repository persists the local user mirror.
//
// Create is the authoritative uniqueness check: it fails with
// common.ErrConstraintViolation when the email or provider subject id is
// already taken. Lookups fail with common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserBySubject(ctx context.Context, subjectID string) (*models.User, error)
}
