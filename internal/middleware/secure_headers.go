package middleware

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civilregistry/backend/internal/config"
)

// SecureHeadersConfig contains configuration for secure headers
type SecureHeadersConfig struct {
	UseHSTS               bool
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool

	UseCSP        bool
	CSPDirectives map[string]string

	XFrameOptions     string
	ReferrerPolicy    string
	PermissionsPolicy string

	// NoStorePaths never get cached by clients or proxies
	NoStorePaths []string
}

// DefaultSecureHeadersConfig returns the secure headers configuration for an API
func DefaultSecureHeadersConfig(cfg config.SecurityConfig) SecureHeadersConfig {
	return SecureHeadersConfig{
		UseHSTS:               true,
		HSTSMaxAge:            cfg.HSTSMaxAge,
		HSTSIncludeSubdomains: cfg.HSTSIncludeSubdomains,

		UseCSP: true,
		CSPDirectives: map[string]string{
			"default-src":     "'none'",
			"frame-ancestors": "'none'",
			"base-uri":        "'none'",
		},

		XFrameOptions:     "DENY",
		ReferrerPolicy:    "strict-origin-when-cross-origin",
		PermissionsPolicy: "camera=(), microphone=(), geolocation=(), interest-cohort=()",

		NoStorePaths: []string{"/api/users/login", "/api/users/register", "/api/users/me", "/api/users/mfa/setup"},
	}
}

// SecureHeadersMiddleware adds security headers to responses
func SecureHeadersMiddleware(config SecureHeadersConfig) gin.HandlerFunc {
	hsts := ""
	if config.UseHSTS {
		hsts = "max-age=" + strconv.FormatInt(int64(config.HSTSMaxAge.Seconds()), 10)
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	csp := ""
	if config.UseCSP {
		directives := make([]string, 0, len(config.CSPDirectives))
		for directive, value := range config.CSPDirectives {
			directives = append(directives, directive+" "+value)
		}
		sort.Strings(directives)
		csp = strings.Join(directives, "; ")
	}

	noStore := make(map[string]bool, len(config.NoStorePaths))
	for _, path := range config.NoStorePaths {
		noStore[path] = true
	}

	return func(c *gin.Context) {
		if hsts != "" {
			c.Header("Strict-Transport-Security", hsts)
		}
		if csp != "" {
			c.Header("Content-Security-Policy", csp)
		}
		if config.XFrameOptions != "" {
			c.Header("X-Frame-Options", config.XFrameOptions)
		}
		c.Header("X-Content-Type-Options", "nosniff")
		if config.ReferrerPolicy != "" {
			c.Header("Referrer-Policy", config.ReferrerPolicy)
		}
		if config.PermissionsPolicy != "" {
			c.Header("Permissions-Policy", config.PermissionsPolicy)
		}

		if noStore[c.Request.URL.Path] {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}

		c.Next()
	}
}
