// Package orphans stores provider identities that were created without a
// matching local user, so they can be resolved later.
package orphans

import (
	"context"

	"github.com/dmitrijs2005/authbridge/internal/server/models"
)

type Repository interface {
	// Create records an orphan. Recording the same subject id twice returns
	// the existing row.
	Create(ctx context.Context, orphan *models.OrphanedIdentity) (*models.OrphanedIdentity, error)
	ListPending(ctx context.Context, limit int) ([]models.OrphanedIdentity, error)
	MarkResolved(ctx context.Context, id int64, resolution string) error
	RecordFailure(ctx context.Context, id int64, lastError string) error
}
