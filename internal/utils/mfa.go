package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// MFAConfig holds configuration for multi-factor authentication
type MFAConfig struct {
	Issuer     string
	Period     uint
	Digits     otp.Digits
	Algorithm  otp.Algorithm
	SecretSize uint
}

// DefaultMFAConfig returns the default MFA configuration for issuer
func DefaultMFAConfig(issuer string) MFAConfig {
	return MFAConfig{
		Issuer:     issuer,
		Period:     30,
		Digits:     otp.DigitsSix,
		Algorithm:  otp.AlgorithmSHA1,
		SecretSize: 20,
	}
}

// MFAKey represents a TOTP key for multi-factor authentication
type MFAKey struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
}

// GenerateTOTPKey generates a new TOTP key for accountName
func GenerateTOTPKey(config MFAConfig, accountName string) (*MFAKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      config.Issuer,
		AccountName: accountName,
		Period:      config.Period,
		Digits:      config.Digits,
		Algorithm:   config.Algorithm,
		SecretSize:  config.SecretSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return &MFAKey{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

// ValidateTOTPCode validates a TOTP code at the given time
func ValidateTOTPCode(secret, code string, at time.Time, config MFAConfig) bool {
	code = strings.ReplaceAll(code, " ", "")

	valid, err := totp.ValidateCustom(
		code,
		secret,
		at.UTC(),
		totp.ValidateOpts{
			Period:    config.Period,
			Skew:      1,
			Digits:    config.Digits,
			Algorithm: config.Algorithm,
		},
	)
	if err != nil {
		return false
	}

	return valid
}
