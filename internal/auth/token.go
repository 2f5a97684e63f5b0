package auth // package auth provides token signing/verification and password hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"

	"github.com/longtk/giapha/internal/model"
)

// Kind discriminates the four token variants the application issues.  The
// ordinal values are embedded in the `kind` claim of every token; tokens
// already issued carry these numbers, so the enumeration must stay stable.
type Kind int

const (
	KindAccess         Kind = 0 // short-lived, authorizes individual requests
	KindRefresh        Kind = 1 // long-lived, store-tracked, mints new pairs
	KindForgotPassword Kind = 2 // one-shot password reset credential
	KindEmailVerify    Kind = 3 // one-shot email verification credential
)

// Verification failures.  All of them surface to clients as a single 401,
// but they stay distinguishable internally for logging and tests.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	// ErrTokenKind is returned when a structurally valid token carries a
	// different kind than the caller expected (e.g. a forgot-password
	// token presented for email verification).
	ErrTokenKind = errors.New("unexpected token kind")
)

// Secrets holds the HS256 signing secrets.  Access and Refresh tokens are
// signed with distinct secrets; ForgotPassword and EmailVerify share the
// mail secret.  A leaked token of one class therefore cannot be replayed
// as another class.
type Secrets struct {
	Access  string
	Refresh string
	Mail    string
}

// TTLs holds the lifetime per token class.
type TTLs struct {
	Access  time.Duration
	Refresh time.Duration
	Mail    time.Duration
}

// Claims is the decoded payload of an application token.  Role is only
// meaningful for access tokens; other kinds leave it empty.
type Claims struct {
	UserID    uint64
	Role      model.Role
	Kind      Kind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies the application's JWTs.  It is stateless and
// safe for concurrent use.
type Codec struct {
	secrets Secrets
	ttls    TTLs
}

func NewCodec(secrets Secrets, ttls TTLs) *Codec {
	return &Codec{secrets: secrets, ttls: ttls}
}

// secretFor maps a token kind to its signing secret.
func (c *Codec) secretFor(kind Kind) []byte {
	switch kind {
	case KindAccess:
		return []byte(c.secrets.Access)
	case KindRefresh:
		return []byte(c.secrets.Refresh)
	default: // KindForgotPassword, KindEmailVerify
		return []byte(c.secrets.Mail)
	}
}

// ttlFor maps a token kind to its lifetime.
func (c *Codec) ttlFor(kind Kind) time.Duration {
	switch kind {
	case KindAccess:
		return c.ttls.Access
	case KindRefresh:
		return c.ttls.Refresh
	default:
		return c.ttls.Mail
	}
}

// Sign builds an HS256 JWT for a user.  The claims are: subject (sub),
// kind, role (access tokens only), expiration (exp) and issued at (iat).
// It returns the serialized token and its expiry time.
func (c *Codec) Sign(userID uint64, role model.Role, kind Kind) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(c.ttlFor(kind))
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"kind": int(kind),
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
		// jti keeps two tokens issued within the same second distinct;
		// refresh rotation relies on the new token hashing differently
		// from the old one.
		"jti": uuid.NewString(),
	}
	if kind == KindAccess {
		claims["role"] = string(role)
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secretFor(kind))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses raw with the secret of the expected kind and returns its
// claims.  Failures are one of ErrTokenMalformed, ErrTokenExpired,
// ErrTokenSignature or ErrTokenKind.  Expiry is checked against the wall
// clock with no leeway.
func (c *Codec) Verify(raw string, kind Kind) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject tokens signed with a different algorithm outright.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignature
		}
		return c.secretFor(kind), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenSignature
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}

	out := Claims{Kind: kind}

	// kind claim must be present and match what the caller expects.  The
	// mail secret covers two kinds, so this check is what keeps a forgot
	// password token from being redeemed as an email verification.
	kv, ok := mc["kind"].(float64)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}
	if Kind(int(kv)) != kind {
		return Claims{}, ErrTokenKind
	}

	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrTokenMalformed
	}
	if _, err := fmt.Sscanf(sub, "%d", &out.UserID); err != nil || out.UserID == 0 {
		return Claims{}, ErrTokenMalformed
	}

	if r, ok := mc["role"].(string); ok {
		out.Role = model.Role(r)
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// RefreshTTL exposes the refresh lifetime so callers can align the token
// store TTL with the token's own expiry.
func (c *Codec) RefreshTTL() time.Duration { return c.ttls.Refresh }

// HashToken returns the SHA-256 hash of a raw token as a hex string.
// Only the hash is used as the token-store key so a leaked store dump
// cannot be replayed as live refresh tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
