package orphans

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authbridge/internal/common"
	"github.com/dmitrijs2005/authbridge/internal/dbx"
	"github.com/dmitrijs2005/authbridge/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, orphan *models.OrphanedIdentity) (*models.OrphanedIdentity, error) {

	query :=
		`INSERT INTO orphaned_identities (email, provider_subject_id, reason)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (provider_subject_id) DO UPDATE SET reason = EXCLUDED.reason
		 RETURNING id, attempts, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, orphan.Email, orphan.ProviderSubjectID, orphan.Reason).
		Scan(&orphan.ID, &orphan.Attempts, &orphan.CreatedAt, &orphan.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return orphan, nil
}

func (r *PostgresRepository) ListPending(ctx context.Context, limit int) ([]models.OrphanedIdentity, error) {

	query :=
		`SELECT id, email, provider_subject_id, reason, attempts, last_error, created_at, updated_at
		 FROM orphaned_identities
		 WHERE resolved_at IS NULL
		 ORDER BY created_at
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.OrphanedIdentity
	for rows.Next() {
		var o models.OrphanedIdentity
		if err := rows.Scan(&o.ID, &o.Email, &o.ProviderSubjectID, &o.Reason, &o.Attempts, &o.LastError, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// MarkResolved closes a pending orphan. Resolving an unknown or already
// resolved orphan returns common.ErrorNotFound.
func (r *PostgresRepository) MarkResolved(ctx context.Context, id int64, resolution string) error {

	query :=
		`UPDATE orphaned_identities
		 SET resolution = $2, resolved_at = now()
		 WHERE id = $1 AND resolved_at IS NULL
		 `

	res, err := r.db.ExecContext(ctx, query, id, resolution)
	return checkAffected(res, err)
}

func (r *PostgresRepository) RecordFailure(ctx context.Context, id int64, lastError string) error {

	query :=
		`UPDATE orphaned_identities
		 SET attempts = attempts + 1, last_error = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, lastError)
	return checkAffected(res, err)
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
