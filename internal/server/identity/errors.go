package identity

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Cognito error codes the auth flows branch on.
const (
	CodeUsernameExists   = "UsernameExistsException"
	CodeNotAuthorized    = "NotAuthorizedException"
	CodeUserNotFound     = "UserNotFoundException"
	CodeUserNotConfirmed = "UserNotConfirmedException"
	CodeCodeMismatch     = "CodeMismatchException"
	CodeExpiredCode      = "ExpiredCodeException"
	CodeTooManyRequests  = "TooManyRequestsException"
)

// ErrAdminDisabled is returned by admin operations when no user pool id is
// configured.
var ErrAdminDisabled = errors.New("identity: admin operations require a user pool id")

// ProviderError describes a failed identity provider call.
//
// Fault is smithy.FaultClient when the provider rejected the request and
// anything else for provider side or transport failures.
type ProviderError struct {
	Op      string
	Code    string
	Message string
	Fault   smithy.ErrorFault
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("identity %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("identity %s: %s: %s", e.Op, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Rejected reports whether the provider answered and refused the request.
func (e *ProviderError) Rejected() bool {
	return e.Fault == smithy.FaultClient
}

// HasCode reports whether err is a ProviderError with the given code.
func HasCode(err error, code string) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	pe := &ProviderError{Op: op, Err: err, Fault: smithy.FaultUnknown}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		pe.Code = apiErr.ErrorCode()
		pe.Message = apiErr.ErrorMessage()
		pe.Fault = apiErr.ErrorFault()
	}

	return pe
}
