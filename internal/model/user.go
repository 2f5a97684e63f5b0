package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The password is kept only as an HMAC digest, never in plain
// form.  TreeID is zero while the user has not created or joined a
// family tree; the simplified model allows at most one tree per user.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique, normalized (lower-cased, trimmed) email address.
//  FullName       – display name shown in the frontend.
//  PasswordDigest – hex HMAC-SHA256 digest of the password.
//  Role           – role code (see role.go).
//  TreeID         – family tree the user belongs to, 0 if none.
//  EmailVerified  – set once the email-verify token was redeemed.
//  IsActive       – soft-disable flag; inactive users cannot authenticate.
type User struct {
	ID             uint64    // users.id
	Email          string    // users.email
	FullName       string    // users.full_name
	PasswordDigest string    // users.password_digest
	Role           Role      // users.role
	TreeID         uint64    // users.tree_id (0 = NULL)
	EmailVerified  bool      // users.email_verified
	IsActive       bool      // users.is_active
	CreatedAt      time.Time // users.created_at
	UpdatedAt      time.Time // users.updated_at
}
