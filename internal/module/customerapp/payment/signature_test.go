package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(t *testing.T, body []byte, secret string) string {
	t.Helper()

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_0123456789abcdef"
	body := []byte(`{"event":"charge.success","data":{"reference":"FTX1","amount":5000}}`)

	t.Run("accepts a signature computed over the exact raw body", func(t *testing.T) {
		assert.True(t, VerifySignature(body, signBody(t, body, secret), secret))
	})

	t.Run("rejects a signature computed with a different secret", func(t *testing.T) {
		assert.False(t, VerifySignature(body, signBody(t, body, "sk_test_wrong"), secret))
	})

	t.Run("rejects a tampered body", func(t *testing.T) {
		signature := signBody(t, body, secret)
		tampered := []byte(`{"event":"charge.success","data":{"reference":"FTX1","amount":9000}}`)

		assert.False(t, VerifySignature(tampered, signature, secret))
	})

	t.Run("rejects an empty signature header", func(t *testing.T) {
		assert.False(t, VerifySignature(body, "", secret))
	})

	t.Run("rejects when no secret is configured", func(t *testing.T) {
		assert.False(t, VerifySignature(body, signBody(t, body, secret), ""))
	})

	t.Run("reserialized body does not verify against the original signature", func(t *testing.T) {
		signature := signBody(t, body, secret)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &decoded))

		reserialized, err := json.Marshal(decoded)
		require.NoError(t, err)

		assert.False(t, VerifySignature(reserialized, signature, secret))
	})
}
