package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns n characters drawn from charset
func RandomString(n int, charset string) (string, error) {
	result := make([]byte, n)
	limit := big.NewInt(int64(len(charset)))
	for i := range result {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate random index: %w", err)
		}
		result[i] = charset[idx.Int64()]
	}
	return string(result), nil
}

// GenerateReceiptNumber returns a receipt number like RCPT-1700000000-AB12CD
func GenerateReceiptNumber(at time.Time) (string, error) {
	suffix, err := RandomString(6, referenceCharset)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RCPT-%d-%s", at.Unix(), suffix), nil
}

// GenerateDocumentNumber returns prefix followed by eight digits
func GenerateDocumentNumber(prefix string) (string, error) {
	digits, err := RandomString(8, "0123456789")
	if err != nil {
		return "", err
	}
	return prefix + digits, nil
}
