package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SecretHash computes the value Cognito expects in SECRET_HASH for app
// clients that have a client secret:
//
//	base64(HMAC-SHA256(key = clientSecret, msg = username + clientID))
func SecretHash(clientSecret, clientID, username string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username + clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
