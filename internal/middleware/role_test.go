package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/service"
)

// runPolicy sends a request through Require(p) with the given role set on
// the context, and reports the resulting status code.
func runPolicy(t *testing.T, p Policy, role model.Role, authenticated bool) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if authenticated {
		SetIdentity(c, service.Identity{UserID: 1, Role: role})
	}

	h := Require(p)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireWithoutIdentity(t *testing.T) {
	rec := runPolicy(t, AuthenticatedAny, "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessTokenRequired)
}

func TestPolicyMatrix(t *testing.T) {
	cases := []struct {
		name     string
		policy   Policy
		role     model.Role
		status   int
		denyCode string
	}{
		{"member any", AuthenticatedAny, model.RoleMember, http.StatusOK, ""},
		{"member admin-only", AdminOnly, model.RoleMember, http.StatusForbidden, service.CodeAdminOnly},
		{"member owner-only", OwnerOnly, model.RoleMember, http.StatusForbidden, service.CodeOwnerOnly},
		{"member admin-or-owner", AdminOrOwner, model.RoleMember, http.StatusForbidden, service.CodeAdminOrOwnerOnly},

		{"owner any", AuthenticatedAny, model.RoleOwner, http.StatusOK, ""},
		{"owner admin-only", AdminOnly, model.RoleOwner, http.StatusForbidden, service.CodeAdminOnly},
		{"owner owner-only", OwnerOnly, model.RoleOwner, http.StatusOK, ""},
		{"owner admin-or-owner", AdminOrOwner, model.RoleOwner, http.StatusOK, ""},

		// Admins pass every policy, owner-scoped ones included.
		{"admin any", AuthenticatedAny, model.RoleAdmin, http.StatusOK, ""},
		{"admin admin-only", AdminOnly, model.RoleAdmin, http.StatusOK, ""},
		{"admin owner-only", OwnerOnly, model.RoleAdmin, http.StatusOK, ""},
		{"admin admin-or-owner", AdminOrOwner, model.RoleAdmin, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := runPolicy(t, tc.policy, tc.role, true)
			assert.Equal(t, tc.status, rec.Code)
			if tc.denyCode != "" {
				assert.Contains(t, rec.Body.String(), tc.denyCode)
			}
		})
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	rec := runPolicy(t, AuthenticatedAny, model.Role("BOGUS"), true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessDenied)
}
