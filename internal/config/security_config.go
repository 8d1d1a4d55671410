package config

import (
	"time"
)

// SecurityConfig holds all security-related configuration
type SecurityConfig struct {
	// Rate limiting
	IPRateLimit   float64 // requests per second
	IPRateBurst   int
	AuthRateLimit float64 // attempts per minute
	AuthRateBurst int

	// Secure headers
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	CORSAllowedOrigins    []string

	// MFA settings
	MFAIssuer string
}

// DefaultSecurityConfig returns the default security configuration
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		// 100 requests per 15 minutes per IP, burst of 20
		IPRateLimit:   getEnvFloat("RATE_LIMIT_RPS", 100.0/(15*60)),
		IPRateBurst:   getEnvInt("RATE_LIMIT_BURST", 20),
		AuthRateLimit: 5.0,
		AuthRateBurst: 3,

		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		CORSAllowedOrigins:    []string{"http://localhost:3000"},

		MFAIssuer: getEnv("MFA_ISSUER", "CivilRegistry"),
	}
}
