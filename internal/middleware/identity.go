package middleware

// identity.go defines how the resolved request identity travels through
// the Echo context.  The Authenticate middleware stores a service.Identity
// under a fixed key; handlers and later middleware read it back with
// CurrentIdentity.

import (
	"github.com/labstack/echo/v4"

	"github.com/longtk/giapha/internal/service"
)

const identityKey = "identity"

// SetIdentity stores the resolved identity in the request context.
// Exposed for handler tests that bypass Authenticate.
func SetIdentity(c echo.Context, id service.Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the identity resolved by Authenticate.  The
// boolean is false when the request never passed the middleware.
func CurrentIdentity(c echo.Context) (service.Identity, bool) {
	id, ok := c.Get(identityKey).(service.Identity)
	return id, ok
}

// currentUserID is used by the rate limiter to build per-user keys.  It
// returns "anon" for unauthenticated requests.
func currentUserID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok && id.UserID != 0 {
		return uintToString(id.UserID)
	}
	return "anon"
}
