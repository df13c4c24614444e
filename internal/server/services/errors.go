package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authbridge/internal/server/identity"
)

// Kind classifies a service failure. The HTTP layer maps kinds to statuses.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAlreadyExists
	KindNotFound
	KindInvalidCredentials
	KindInvalidToken
	KindProviderError
	KindProviderUnavailable
	KindInternalInconsistency
	KindConstraintViolation
)

var kindNames = map[Kind]string{
	KindInternal:              "internal",
	KindValidation:            "validation",
	KindAlreadyExists:         "already_exists",
	KindNotFound:              "not_found",
	KindInvalidCredentials:    "invalid_credentials",
	KindInvalidToken:          "invalid_token",
	KindProviderError:         "provider_error",
	KindProviderUnavailable:   "provider_unavailable",
	KindInternalInconsistency: "internal_inconsistency",
	KindConstraintViolation:   "constraint_violation",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every service operation. Message is safe to show to
// the caller; Err keeps the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// User-facing messages.
const (
	MsgSignUpSuccess      = "User account created successfully! Please verify your email!"
	MsgVerifyEmailSuccess = "User email confirmed successfully"
	MsgLoginSuccess       = "User logged in successfully"
	MsgRefreshSuccess     = "Access token refreshed successfully"

	msgUserExists          = "User already exists"
	msgUserNotFound        = "User with this email not found"
	msgNoSubject           = "provider did not return a valid subject id"
	msgInvalidCredentials  = "Incorrect email or password"
	msgAccessTokenMissing  = "Access token not found in cookies"
	msgAccessTokenInvalid  = "Invalid or expired access token"
	msgRefreshTokenMissing = "Refresh token not found in cookies"
	msgRefreshTokenInvalid = "Invalid or expired refresh token"
	msgUnknownUser         = "Unable to determine the user for this session"
	msgProviderUnavailable = "Identity provider is unavailable, please try again later"
	msgInternal            = "An unexpected error occurred"
)

// providerError turns a failed provider call into a service error: requests
// the provider rejected keep its message, anything else is reported as the
// provider being unavailable.
func providerError(err error) *Error {
	var pe *identity.ProviderError
	if errors.As(err, &pe) && pe.Rejected() {
		msg := pe.Message
		if msg == "" {
			msg = pe.Code
		}
		return newError(KindProviderError, msg, err)
	}
	return newError(KindProviderUnavailable, msgProviderUnavailable, err)
}
