package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// WebhookAuth authenticates mint-success and transfer-update callers.
// These endpoints mutate ticket ownership on the caller's word, so the
// caller signs the request body with a shared HMAC key.
type WebhookAuth struct {
	hmacKey []byte
}

func NewWebhookAuth(hmacKey string) *WebhookAuth {
	return &WebhookAuth{hmacKey: []byte(hmacKey)}
}

// Hmac256 generates the hex HMAC-SHA256 of body under key.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifyBody reports whether the received signature matches the body.
// An empty configured key disables verification (development only).
func (a *WebhookAuth) VerifyBody(body []byte, receivedHMAC string) bool {
	if len(a.hmacKey) == 0 {
		return true
	}

	expected := Hmac256(body, a.hmacKey)
	return hmac.Equal([]byte(receivedHMAC), []byte(expected))
}

// HashAPIKey bcrypt-hashes an admin API key for storage in config.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAPIKey compares a presented admin API key against its stored
// bcrypt hash.
func CheckAPIKey(storedHash, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(presented)) == nil
}
