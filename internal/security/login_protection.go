package security

import (
	"strings"
	"sync"
	"time"
)

// LoginProtection locks out an email or client address after repeated
// failed sign-in attempts
type LoginProtection struct {
	emailAttempts map[string][]time.Time
	ipAttempts    map[string][]time.Time
	mu            sync.Mutex
	config        LoginProtectionConfig
	now           func() time.Time
}

// LoginProtectionConfig holds configuration for login protection
type LoginProtectionConfig struct {
	// Maximum number of failed attempts per email within window
	MaxAttemptsPerEmail int
	// Maximum number of failed attempts per IP within window
	MaxAttemptsPerIP int
	WindowDuration   time.Duration
	// Lockout runs from the last failed attempt
	LockoutDuration time.Duration
}

// DefaultLoginProtectionConfig returns the default configuration
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		MaxAttemptsPerEmail: 5,
		MaxAttemptsPerIP:    20,
		WindowDuration:      15 * time.Minute,
		LockoutDuration:     15 * time.Minute,
	}
}

// NewLoginProtection creates a new login protection instance
func NewLoginProtection(config LoginProtectionConfig) *LoginProtection {
	return &LoginProtection{
		emailAttempts: make(map[string][]time.Time),
		ipAttempts:    make(map[string][]time.Time),
		config:        config,
		now:           time.Now,
	}
}

// RecordFailure records a failed attempt. Empty identifiers are skipped.
func (lp *LoginProtection) RecordFailure(email, ip string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	cutoff := now.Add(-lp.config.WindowDuration)

	if email = normalize(email); email != "" {
		lp.emailAttempts[email] = append(prune(lp.emailAttempts[email], cutoff), now)
	}
	if ip != "" {
		lp.ipAttempts[ip] = append(prune(lp.ipAttempts[ip], cutoff), now)
	}
}

// Reset forgets the failures recorded against email after a successful login
func (lp *LoginProtection) Reset(email string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	delete(lp.emailAttempts, normalize(email))
}

// IsBlocked reports whether email or ip is locked out, and until when
func (lp *LoginProtection) IsBlocked(email, ip string) (bool, time.Time) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	if until, blocked := lp.lockedUntil(lp.emailAttempts[normalize(email)], lp.config.MaxAttemptsPerEmail, now); blocked {
		return true, until
	}
	if ip != "" {
		if until, blocked := lp.lockedUntil(lp.ipAttempts[ip], lp.config.MaxAttemptsPerIP, now); blocked {
			return true, until
		}
	}
	return false, time.Time{}
}

func (lp *LoginProtection) lockedUntil(attempts []time.Time, max int, now time.Time) (time.Time, bool) {
	if max <= 0 || len(attempts) == 0 {
		return time.Time{}, false
	}

	windowStart := now.Add(-lp.config.WindowDuration)
	if len(prune(attempts, windowStart)) < max {
		return time.Time{}, false
	}

	lockoutEnd := attempts[len(attempts)-1].Add(lp.config.LockoutDuration)
	if now.Before(lockoutEnd) {
		return lockoutEnd, true
	}
	return time.Time{}, false
}

// prune drops attempts at or before cutoff. attempts is sorted oldest first.
func prune(attempts []time.Time, cutoff time.Time) []time.Time {
	for i, at := range attempts {
		if at.After(cutoff) {
			return attempts[i:]
		}
	}
	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
