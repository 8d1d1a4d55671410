package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SignHMAC returns the hex encoded HMAC-SHA256 of payload
func SignHMAC(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC checks signature against payload in constant time
func VerifyHMAC(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignHMAC(payload, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
