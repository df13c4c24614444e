// Package services contains the server business logic: the auth flows that
// coordinate the identity provider with the local user mirror, and the
// reconciler that cleans up provider identities left without a local user.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/authbridge/internal/common"
	"github.com/dmitrijs2005/authbridge/internal/cryptox"
	"github.com/dmitrijs2005/authbridge/internal/logging"
	"github.com/dmitrijs2005/authbridge/internal/server/auth"
	"github.com/dmitrijs2005/authbridge/internal/server/identity"
	"github.com/dmitrijs2005/authbridge/internal/server/models"
	"github.com/dmitrijs2005/authbridge/internal/server/repositories/repomanager"
)

// IdentityProvider is the part of the identity client used by the auth flows.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, name string) (*identity.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	Authenticate(ctx context.Context, email, password string) (*identity.Tokens, error)
	Refresh(ctx context.Context, refreshToken, username string) (*identity.Tokens, error)
	GetUser(ctx context.Context, accessToken string) (map[string]string, error)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	// SubjectID is the provider username, needed again on refresh.
	SubjectID string
}

// compensationTimeout bounds orphan recording after a failed local write.
const compensationTimeout = 30 * time.Second

// AuthService implements sign-up, email verification, login, token refresh
// and current-user lookup.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    IdentityProvider
	reconciler  *Reconciler
	log         logging.Logger
}

// NewAuthService builds the service. reconciler may be nil, in which case
// orphans are only recorded, not resolved.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, provider IdentityProvider,
	reconciler *Reconciler, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		provider:    provider,
		reconciler:  reconciler,
		log:         log.With("module", "auth"),
	}
}

// SignUp registers the user with the provider, then mirrors it locally.
//
// The local pre-check only avoids an irreversible provider call for a known
// email; the unique constraints on users remain authoritative. When the
// local insert fails after the provider accepted the user, the provider
// identity is recorded as an orphan and handed to the reconciler.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, newError(KindValidation, "email, password and name are required", nil)
	}

	users := s.repomanager.Users(s.db)

	_, err := users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, newError(KindAlreadyExists, msgUserExists, nil)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, newError(KindInternal, msgInternal, err)
	}

	// hashed before the provider call so a failure here has no side effects
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}

	res, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil {
		if identity.HasCode(err, identity.CodeUsernameExists) {
			return nil, newError(KindAlreadyExists, msgUserExists, err)
		}
		return nil, providerError(err)
	}

	if res == nil || res.SubjectID == "" {
		return nil, newError(KindInternalInconsistency, msgNoSubject, nil)
	}

	user, err := users.Create(ctx, &models.User{
		Name:              name,
		Email:             email,
		ProviderSubjectID: res.SubjectID,
		PasswordHash:      hash,
	})
	if err != nil {
		s.compensate(ctx, email, res.SubjectID, err)
		if errors.Is(err, common.ErrConstraintViolation) {
			return nil, newError(KindConstraintViolation, msgUserExists, err)
		}
		return nil, newError(KindInternal, msgInternal, err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "subject", user.ProviderSubjectID)
	return user, nil
}

// compensate records the provider identity created for email as an orphan
// and tries to resolve it right away. It runs detached from ctx so a caller
// going away does not skip it.
func (s *AuthService) compensate(ctx context.Context, email, subjectID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	orphan, err := s.repomanager.Orphans(s.db).Create(ctx, &models.OrphanedIdentity{
		Email:             email,
		ProviderSubjectID: subjectID,
		Reason:            cause.Error(),
	})
	if err != nil {
		s.log.Error(ctx, "orphaned provider identity not recorded",
			"email", email, "subject", subjectID, "cause", cause, "error", err)
		return
	}

	s.log.Warn(ctx, "provider identity without local user recorded",
		"orphan_id", orphan.ID, "subject", subjectID, "cause", cause)

	if s.reconciler == nil {
		return
	}

	if _, err := s.reconciler.Resolve(ctx, *orphan); err != nil {
		s.log.Warn(ctx, "orphan left for background reconciliation", "orphan_id", orphan.ID, "error", err)
	}
}

// VerifyEmail confirms the sign-up code sent by the provider.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return newError(KindValidation, "email and code are required", nil)
	}

	if err := s.provider.ConfirmSignUp(ctx, email, code); err != nil {
		return providerError(err)
	}

	return nil
}

// Login authenticates with the provider. The local record must exist and
// contributes the subject id; the local password hash is not consulted.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(KindValidation, "email and password are required", nil)
	}

	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, newError(KindNotFound, msgUserNotFound, err)
		}
		return nil, newError(KindInternal, msgInternal, err)
	}

	tokens, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		if identity.HasCode(err, identity.CodeNotAuthorized) || identity.HasCode(err, identity.CodeUserNotFound) {
			return nil, newError(KindInvalidCredentials, msgInvalidCredentials, err)
		}
		return nil, providerError(err)
	}

	if tokens == nil || tokens.AccessToken == "" {
		return nil, newError(KindInvalidCredentials, msgInvalidCredentials, nil)
	}

	return &Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SubjectID:    user.ProviderSubjectID,
	}, nil
}

// RefreshToken exchanges a refresh token for a new access token. username
// is the provider username; when empty it is read from previousAccessToken.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken, username, previousAccessToken string) (string, error) {
	if refreshToken == "" {
		return "", newError(KindInvalidToken, msgRefreshTokenMissing, nil)
	}

	if username == "" {
		sub, err := auth.SubjectFromAccessToken(previousAccessToken)
		if err != nil {
			return "", newError(KindInvalidToken, msgUnknownUser, err)
		}
		username = sub
	}

	tokens, err := s.provider.Refresh(ctx, refreshToken, username)
	if err != nil {
		if identity.HasCode(err, identity.CodeNotAuthorized) {
			return "", newError(KindInvalidToken, msgRefreshTokenInvalid, err)
		}
		return "", providerError(err)
	}

	if tokens == nil || tokens.AccessToken == "" {
		return "", newError(KindInvalidToken, msgRefreshTokenInvalid, nil)
	}

	return tokens.AccessToken, nil
}

// CurrentUser returns the provider attributes of the access token owner.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (map[string]string, error) {
	if accessToken == "" {
		return nil, newError(KindNotFound, msgAccessTokenMissing, nil)
	}

	attrs, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		if identity.HasCode(err, identity.CodeNotAuthorized) {
			return nil, newError(KindInvalidToken, msgAccessTokenInvalid, err)
		}
		return nil, providerError(err)
	}

	return attrs, nil
}

// normalizeEmail trims and lower-cases email; provider usernames are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
