package utils

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHashCost defines the cost for bcrypt password hashing
const PasswordHashCost = 12

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// PasswordPolicy defines the requirements for password strength
type PasswordPolicy struct {
	MinLength       int
	DisallowCommon  bool
	DisallowEmail   bool
	CommonPasswords map[string]bool
}

// DefaultPasswordPolicy returns the default password policy
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:       8,
		DisallowCommon:  true,
		DisallowEmail:   true,
		CommonPasswords: loadCommonPasswords(),
	}
}

// ValidatePassword checks if a password meets the policy requirements
func (p PasswordPolicy) ValidatePassword(password, email string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	if p.DisallowCommon && p.CommonPasswords[strings.ToLower(password)] {
		return errors.New("password is too common and easily guessable")
	}

	if p.DisallowEmail && email != "" {
		local := strings.ToLower(strings.SplitN(email, "@", 2)[0])
		if len(local) >= 3 && strings.Contains(strings.ToLower(password), local) {
			return errors.New("password should not contain your email address")
		}
	}

	return nil
}

func loadCommonPasswords() map[string]bool {
	commonPwds := []string{
		"password", "12345678", "qwertyui", "welcome1", "password1",
		"password123", "abc12345", "letmein1", "iloveyou", "1234567890",
		"trustno1", "sunshine", "admin123", "qwerty123", "football",
	}

	result := make(map[string]bool, len(commonPwds))
	for _, pwd := range commonPwds {
		result[pwd] = true
	}
	return result
}
