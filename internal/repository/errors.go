// Package repository implements persistence for users, family trees and
// members on MySQL, and the refresh-token store on Redis.  Sentinel errors
// defined here let the service layer distinguish failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a referenced user, tree or member row does
// not exist.  Services translate it into a 404 (or, for credential
// lookups, into the generic login failure).
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert violates the unique email
// constraint.  Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrRefreshReuse is returned by the token store when a refresh token is
// rotated or checked but is no longer present — either it was revoked, it
// expired, or it was already rotated once (replay of a stolen token).
var ErrRefreshReuse = errors.New("refresh token used or nonexistent")
