package common

// Cookie names carrying the provider session on the HTTP surface.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"

	// SubjectCookieName carries the provider username (subject id) needed to
	// compute the secret hash on refresh.
	SubjectCookieName = "user_cognito_id"
)
