package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"unicode"
)

// HashPassword returns the hex HMAC-SHA256 digest of plain keyed with the
// single server-side password secret.
//
// SECURITY: this construction is deterministic — no per-user salt and no
// slow KDF — so equal passwords produce equal digests and offline guessing
// is cheap once the secret leaks.  It is kept because stored user records
// depend on it; migrating to a salted adaptive hash (bcrypt/argon2) needs
// a re-hash-on-login rollout, not a silent swap.
func HashPassword(plain, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPassword compares a stored digest with the digest of a candidate
// password in constant time.
func VerifyPassword(digest, plain, secret string) bool {
	return hmac.Equal([]byte(digest), []byte(HashPassword(plain, secret)))
}

// ValidatePassword enforces the registration password policy: 8–50
// characters with at least one lowercase letter, one uppercase letter,
// one digit and one special character.  It returns false when any rule
// is violated; callers translate that into a field-level validation error.
func ValidatePassword(plain string) bool {
	runes := []rune(plain)
	if len(runes) < 8 || len(runes) > 50 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range runes {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}
