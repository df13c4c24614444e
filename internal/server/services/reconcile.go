package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/authbridge/internal/common"
	"github.com/dmitrijs2005/authbridge/internal/logging"
	"github.com/dmitrijs2005/authbridge/internal/server/config"
	"github.com/dmitrijs2005/authbridge/internal/server/identity"
	"github.com/dmitrijs2005/authbridge/internal/server/models"
	"github.com/dmitrijs2005/authbridge/internal/server/repositories/repomanager"
)

// IdentityAdmin is the admin part of the identity client.
type IdentityAdmin interface {
	LookupSubject(ctx context.Context, username string) (string, error)
	DeleteUser(ctx context.Context, username string) error
}

// deleteBackoff returns the backoff used for provider deletes: exponential,
// three attempts in total.
var deleteBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
}

// Reconciler resolves orphaned provider identities.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	admin       IdentityAdmin
	interval    time.Duration
	batchSize   int
	log         logging.Logger
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, admin IdentityAdmin, cfg *config.Config, log logging.Logger) *Reconciler {
	interval := cfg.ReconcileInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	batch := cfg.ReconcileBatchSize
	if batch <= 0 {
		batch = 50
	}

	return &Reconciler{
		db:          db,
		repomanager: m,
		admin:       admin,
		interval:    interval,
		batchSize:   batch,
		log:         log.With("module", "reconciler"),
	}
}

// Run reconciles once immediately and then every interval until ctx is
// cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if n, err := r.ReconcileOnce(ctx); err != nil {
			r.log.Error(ctx, "reconcile pass failed", "error", err)
		} else if n > 0 {
			r.log.Info(ctx, "reconcile pass done", "resolved", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ReconcileOnce processes one batch of pending orphans and returns how many
// were resolved. Failures on single orphans are recorded on the orphan and
// do not stop the batch.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	pending, err := r.repomanager.Orphans(r.db).ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("error listing orphans: %w", err)
	}

	resolved := 0
	for _, o := range pending {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		if _, err := r.Resolve(ctx, o); err == nil {
			resolved++
		}
	}

	return resolved, nil
}

// Resolve decides what to do with one orphan and records the outcome.
//
// A provider identity is only deleted when no local user references it and
// the provider still binds the orphan's email to the same subject id.
func (r *Reconciler) Resolve(ctx context.Context, o models.OrphanedIdentity) (string, error) {
	resolution, err := r.resolve(ctx, o)

	orphans := r.repomanager.Orphans(r.db)
	if err != nil {
		r.log.Warn(ctx, "orphan not resolved", "orphan_id", o.ID, "subject", o.ProviderSubjectID, "error", err)
		if ferr := orphans.RecordFailure(ctx, o.ID, err.Error()); ferr != nil {
			r.log.Error(ctx, "orphan failure not recorded", "orphan_id", o.ID, "error", ferr)
		}
		return "", err
	}

	if err := orphans.MarkResolved(ctx, o.ID, resolution); err != nil {
		return "", fmt.Errorf("error resolving orphan %d: %w", o.ID, err)
	}

	r.log.Info(ctx, "orphan resolved", "orphan_id", o.ID, "subject", o.ProviderSubjectID, "resolution", resolution)
	return resolution, nil
}

func (r *Reconciler) resolve(ctx context.Context, o models.OrphanedIdentity) (string, error) {
	_, err := r.repomanager.Users(r.db).GetUserBySubject(ctx, o.ProviderSubjectID)
	switch {
	case err == nil:
		return models.ResolutionAdopted, nil
	case !errors.Is(err, common.ErrorNotFound):
		return "", err
	}

	current, err := r.admin.LookupSubject(ctx, o.Email)
	if err != nil {
		if identity.HasCode(err, identity.CodeUserNotFound) {
			return models.ResolutionAbsent, nil
		}
		return "", err
	}

	if current != o.ProviderSubjectID {
		return models.ResolutionSuperseded, nil
	}

	err = retry.Do(ctx, deleteBackoff(), func(ctx context.Context) error {
		err := r.admin.DeleteUser(ctx, o.Email)
		if err != nil && retryableDelete(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		if identity.HasCode(err, identity.CodeUserNotFound) {
			return models.ResolutionAbsent, nil
		}
		return "", err
	}

	return models.ResolutionDeleted, nil
}

// retryableDelete reports whether a failed delete is worth another attempt:
// transport or provider side failures and throttling.
func retryableDelete(err error) bool {
	var pe *identity.ProviderError
	if !errors.As(err, &pe) {
		return !errors.Is(err, identity.ErrAdminDisabled)
	}
	return !pe.Rejected() || pe.Code == identity.CodeTooManyRequests
}
