package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the webhook signature: hex-encoded HMAC-SHA256 over
// "<gatewayOrderRef>|<gatewayPaymentRef>" with the shared secret. The
// comparison is constant time.
func VerifySignature(secret, gatewayOrderRef, gatewayPaymentRef, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderRef + "|" + gatewayPaymentRef))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
