package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyBody(t *testing.T) {
	auth := NewWebhookAuth("secret-key")
	body := []byte(`{"asset_id":"assetA","owner":"walletX"}`)

	sig := Hmac256(body, []byte("secret-key"))
	assert.True(t, auth.VerifyBody(body, sig))
}

func TestVerifyBodyRejectsBadSignature(t *testing.T) {
	auth := NewWebhookAuth("secret-key")
	body := []byte(`{"asset_id":"assetA"}`)

	assert.False(t, auth.VerifyBody(body, "deadbeef"))
	assert.False(t, auth.VerifyBody(body, ""))

	// Signed under a different key.
	assert.False(t, auth.VerifyBody(body, Hmac256(body, []byte("other-key"))))
}

func TestVerifyBodyRejectsTamperedBody(t *testing.T) {
	auth := NewWebhookAuth("secret-key")
	sig := Hmac256([]byte(`{"owner":"walletX"}`), []byte("secret-key"))

	assert.False(t, auth.VerifyBody([]byte(`{"owner":"walletZ"}`), sig))
}

func TestVerifyBodyEmptyKeyDisabled(t *testing.T) {
	auth := NewWebhookAuth("")

	assert.True(t, auth.VerifyBody([]byte("anything"), "no signature at all"))
}

func TestAPIKeyHashing(t *testing.T) {
	hash, err := HashAPIKey("admin-key-1")
	require.NoError(t, err)
	assert.NotEqual(t, "admin-key-1", hash)

	assert.True(t, CheckAPIKey(hash, "admin-key-1"))
	assert.False(t, CheckAPIKey(hash, "admin-key-2"))
	assert.False(t, CheckAPIKey("not-a-hash", "admin-key-1"))
}
