package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/service"
)

// Policy is the closed set of role requirements a route can declare.
type Policy int

const (
	AuthenticatedAny Policy = iota // any valid session
	AdminOnly
	OwnerOnly
	AdminOrOwner
)

// Require returns a middleware enforcing the given policy against the
// identity resolved by Authenticate.  Every role is matched exhaustively;
// adding a role to the model forces this switch to be revisited.  Deny
// reasons are stable message codes the frontend renders directly.
func Require(p Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.CodeAccessTokenRequired})
			}
			if code, allowed := authorize(id.Role, p); !allowed {
				return c.JSON(http.StatusForbidden, echo.Map{"error": code})
			}
			return next(c)
		}
	}
}

// authorize decides whether a role satisfies a policy and, if not, which
// deny code to return.
func authorize(role model.Role, p Policy) (string, bool) {
	switch p {
	case AuthenticatedAny:
		if role.Valid() {
			return "", true
		}
		return service.CodeAccessDenied, false
	case AdminOnly:
		switch role {
		case model.RoleAdmin:
			return "", true
		case model.RoleOwner, model.RoleMember:
			return service.CodeAdminOnly, false
		}
	case OwnerOnly:
		// Admin passes every policy, including owner-scoped ones.
		switch role {
		case model.RoleAdmin, model.RoleOwner:
			return "", true
		case model.RoleMember:
			return service.CodeOwnerOnly, false
		}
	case AdminOrOwner:
		switch role {
		case model.RoleAdmin, model.RoleOwner:
			return "", true
		case model.RoleMember:
			return service.CodeAdminOrOwnerOnly, false
		}
	}
	return service.CodeAccessDenied, false
}
