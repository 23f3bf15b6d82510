package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/tair/commerce-core/internal/payment/domain"
)

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID" under secret
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the callback signature in constant time
func VerifySignature(secret, gatewayOrderID, paymentID, signature string) error {
	if secret == "" || gatewayOrderID == "" || paymentID == "" || signature == "" {
		return domain.ErrSignatureVerificationFailed
	}

	expected := Sign(secret, gatewayOrderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrSignatureVerificationFailed
	}
	return nil
}
