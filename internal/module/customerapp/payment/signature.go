package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// VerifySignature authenticates a gateway notification. The HMAC-SHA512 is
// computed over the exact raw bytes of the request body; hashing a parsed
// and re-serialized representation would produce a different digest, so
// callers must pass the body as it arrived on the wire. The comparison is
// constant time.
func VerifySignature(rawBody []byte, signatureHeader string, secret string) bool {
	if signatureHeader == "" || secret == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signatureHeader), []byte(expected))
}
