package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/authbridge/internal/common"
	"github.com/dmitrijs2005/authbridge/internal/dbx"
	"github.com/dmitrijs2005/authbridge/internal/server/identity"
	"github.com/dmitrijs2005/authbridge/internal/server/models"
	"github.com/dmitrijs2005/authbridge/internal/server/repositories/orphans"
	"github.com/dmitrijs2005/authbridge/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func rejected(code, msg string) error {
	return &identity.ProviderError{Op: "test", Code: code, Message: msg, Fault: smithy.FaultClient}
}

func unavailable() error {
	return &identity.ProviderError{Op: "test", Err: fmt.Errorf("dial tcp: i/o timeout"), Fault: smithy.FaultUnknown}
}

// fakeUsersRepo enforces unique email and subject id like the real table.
type fakeUsersRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	nextID    int64
	getErr    error
	createErr error
	subErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byEmail: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, fmt.Errorf("%w: users_email_key", common.ErrConstraintViolation)
	}
	for _, existing := range f.byEmail {
		if existing.ProviderSubjectID == u.ProviderSubjectID {
			return nil, fmt.Errorf("%w: users_provider_subject_id_key", common.ErrConstraintViolation)
		}
	}
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byEmail[u.Email] = &cp
	return &cp, nil
}

func (f *fakeUsersRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetUserBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	for _, u := range f.byEmail {
		if u.ProviderSubjectID == subjectID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEmail)
}

type fakeOrphansRepo struct {
	mu         sync.Mutex
	items      []models.OrphanedIdentity
	createErr  error
	listErr    error
	resolveErr error
	resolved   map[int64]string
	failures   map[int64][]string
	createCtx  error
}

func newFakeOrphansRepo() *fakeOrphansRepo {
	return &fakeOrphansRepo{resolved: map[int64]string{}, failures: map[int64][]string{}}
}

func (f *fakeOrphansRepo) Create(ctx context.Context, o *models.OrphanedIdentity) (*models.OrphanedIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCtx = ctx.Err()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.items {
		if existing.ProviderSubjectID == o.ProviderSubjectID {
			cp := existing
			return &cp, nil
		}
	}
	cp := *o
	cp.ID = int64(len(f.items) + 1)
	f.items = append(f.items, cp)
	return &cp, nil
}

func (f *fakeOrphansRepo) ListPending(ctx context.Context, limit int) ([]models.OrphanedIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.OrphanedIdentity
	for _, o := range f.items {
		if _, done := f.resolved[o.ID]; done {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrphansRepo) MarkResolved(ctx context.Context, id int64, resolution string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.resolved[id] = resolution
	return nil
}

func (f *fakeOrphansRepo) RecordFailure(ctx context.Context, id int64, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id] = append(f.failures[id], lastError)
	return nil
}

func (f *fakeOrphansRepo) resolution(id int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved[id]
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	o *fakeOrphansRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), o: newFakeOrphansRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository           { return m.u }
func (m *fakeRepoManager) Orphans(db dbx.DBTX) orphans.Repository       { return m.o }

// fakeProvider answers with the configured funcs and counts calls.
type fakeProvider struct {
	signUp       func(ctx context.Context, email, password, name string) (*identity.SignUpResult, error)
	confirm      func(ctx context.Context, email, code string) error
	authenticate func(ctx context.Context, email, password string) (*identity.Tokens, error)
	refresh      func(ctx context.Context, refreshToken, username string) (*identity.Tokens, error)
	getUser      func(ctx context.Context, accessToken string) (map[string]string, error)

	signUpCalls atomic.Int32
	authCalls   atomic.Int32
	refreshUser atomic.Value
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password, name string) (*identity.SignUpResult, error) {
	p.signUpCalls.Add(1)
	if p.signUp == nil {
		return &identity.SignUpResult{SubjectID: "sub-" + email}, nil
	}
	return p.signUp(ctx, email, password, name)
}

func (p *fakeProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	if p.confirm == nil {
		return nil
	}
	return p.confirm(ctx, email, code)
}

func (p *fakeProvider) Authenticate(ctx context.Context, email, password string) (*identity.Tokens, error) {
	p.authCalls.Add(1)
	if p.authenticate == nil {
		return &identity.Tokens{AccessToken: "at", RefreshToken: "rt"}, nil
	}
	return p.authenticate(ctx, email, password)
}

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken, username string) (*identity.Tokens, error) {
	p.refreshUser.Store(username)
	if p.refresh == nil {
		return &identity.Tokens{AccessToken: "at-new"}, nil
	}
	return p.refresh(ctx, refreshToken, username)
}

func (p *fakeProvider) GetUser(ctx context.Context, accessToken string) (map[string]string, error) {
	if p.getUser == nil {
		return map[string]string{"email": "a@x.com", "username": "sub-1"}, nil
	}
	return p.getUser(ctx, accessToken)
}

// fakeAdmin maps emails to their current provider subject id.
type fakeAdmin struct {
	mu          sync.Mutex
	subjects    map[string]string
	lookupErr   error
	deleteErrs  []error
	deleteCalls int
	deleted     []string
}

func (a *fakeAdmin) LookupSubject(ctx context.Context, username string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lookupErr != nil {
		return "", a.lookupErr
	}
	sub, ok := a.subjects[username]
	if !ok {
		return "", rejected(identity.CodeUserNotFound, "User does not exist.")
	}
	return sub, nil
}

func (a *fakeAdmin) DeleteUser(ctx context.Context, username string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleteCalls++
	if len(a.deleteErrs) > 0 {
		err := a.deleteErrs[0]
		a.deleteErrs = a.deleteErrs[1:]
		if err != nil {
			return err
		}
	}
	delete(a.subjects, username)
	a.deleted = append(a.deleted, username)
	return nil
}

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := deleteBackoff
	deleteBackoff = func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
	}
	t.Cleanup(func() { deleteBackoff = orig })
}
