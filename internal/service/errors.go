// Package service implements the application's business operations on top
// of the repositories: authentication, family-tree membership and member
// records.  Services return *Error values carrying a stable message code
// and a category; handlers map the category to an HTTP status.
package service

import "strings"

// ErrorKind categorizes a service failure.  It maps 1:1 to an HTTP status
// class at the handler boundary.
type ErrorKind int

const (
	KindValidation ErrorKind = iota // 422, field-level input problems
	KindUnauthenticated             // 401, missing/invalid credentials or tokens
	KindForbidden                   // 403, valid session but insufficient rights
	KindNotFound                    // 404, referenced record does not exist
	KindConflict                    // 409, duplicate email
	KindInternal                    // 500, everything else
)

// Stable message codes returned to clients.  The frontend switches on
// these strings, so they are part of the API contract.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeEmailExists          = "EMAIL_ALREADY_EXISTS"
	CodeEmailOrPassword      = "EMAIL_OR_PASSWORD_INCORRECT"
	CodeAccessTokenRequired  = "ACCESS_TOKEN_REQUIRED"
	CodeAccessTokenInvalid   = "ACCESS_TOKEN_INVALID"
	CodeRefreshTokenRequired = "REFRESH_TOKEN_REQUIRED"
	CodeRefreshTokenNotExist = "REFRESH_TOKEN_NOT_EXIST"
	CodeRefreshReuse         = "USED_OR_NONEXISTENT_REFRESH_TOKEN"
	CodeResetTokenInvalid    = "RESET_TOKEN_INVALID"
	CodeVerifyTokenInvalid   = "VERIFY_TOKEN_INVALID"
	CodeAccountDisabled      = "ACCOUNT_DISABLED"

	CodeAdminOnly         = "ADMIN_ONLY"
	CodeOwnerOnly         = "OWNER_ONLY"
	CodeAdminOrOwnerOnly  = "ADMIN_OR_OWNER_ONLY"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeNotInFamily       = "NOT_IN_FAMILY"
	CodeViewOtherFamily   = "CANNOT_VIEW_OTHER_FAMILY"
	CodeUpdateOtherMember = "CANNOT_UPDATE_OTHER_MEMBER"
	CodeDeleteMember      = "CANNOT_DELETE_MEMBER"
	CodeAlreadyInFamily   = "ALREADY_IN_FAMILY"
	CodeNotFound          = "NOT_FOUND"
	CodeRelationOtherTree = "RELATION_MUST_BE_SAME_TREE"
)

// Error is a service-level failure with a stable client-facing code.
// Fields is only populated for validation errors (one message per
// offending field).
type Error struct {
	Kind   ErrorKind
	Code   string
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Code
	}
	parts := make([]string, 0, len(e.Fields))
	for f, m := range e.Fields {
		parts = append(parts, f+": "+m)
	}
	return e.Code + " (" + strings.Join(parts, "; ") + ")"
}

func newError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func validationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Fields: fields}
}
