// Package auth reads claims from provider-issued access tokens.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/authbridge/internal/common"
)

// SubjectFromAccessToken returns the provider username carried by a Cognito
// access token ("username", falling back to "sub").
//
// The signature is NOT verified. The value is only used as the username
// reference of a refresh request, which the provider validates itself.
func SubjectFromAccessToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", common.ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	for _, key := range []string{"username", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v, nil
		}
	}

	return "", common.ErrInvalidToken
}
