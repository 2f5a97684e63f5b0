package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtk/giapha/internal/auth"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/repository"
	"github.com/longtk/giapha/internal/service"
)

type fakeResolver struct {
	users map[uint64]model.User
}

func (f *fakeResolver) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func authFixture() (*auth.Codec, *fakeResolver) {
	codec := auth.NewCodec(
		auth.Secrets{Access: "a-secret", Refresh: "r-secret", Mail: "m-secret"},
		auth.TTLs{Access: 15 * time.Minute, Refresh: 24 * time.Hour, Mail: 30 * time.Minute},
	)
	users := &fakeResolver{users: map[uint64]model.User{
		1: {ID: 1, Email: "a@x.com", Role: model.RoleOwner, TreeID: 10, IsActive: true},
		2: {ID: 2, Email: "b@x.com", Role: model.RoleMember, IsActive: false},
	}}
	return codec, users
}

// runAuthenticated sends a request through Authenticate and captures the
// identity the downstream handler observed, if any.
func runAuthenticated(t *testing.T, codec *auth.Codec, users UserResolver, prep func(*http.Request)) (*httptest.ResponseRecorder, *service.Identity) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if prep != nil {
		prep(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *service.Identity
	h := Authenticate(codec, users)(func(c echo.Context) error {
		if id, ok := CurrentIdentity(c); ok {
			seen = &id
		}
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, seen
}

func TestAuthenticateBearerHeader(t *testing.T) {
	codec, users := authFixture()
	raw, _, err := codec.Sign(1, model.RoleOwner, auth.KindAccess)
	require.NoError(t, err)

	rec, seen := runAuthenticated(t, codec, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(1), seen.UserID)
	assert.Equal(t, model.RoleOwner, seen.Role)
	assert.Equal(t, uint64(10), seen.TreeID)
}

func TestAuthenticateCookieFallback(t *testing.T) {
	codec, users := authFixture()
	raw, _, err := codec.Sign(1, model.RoleOwner, auth.KindAccess)
	require.NoError(t, err)

	rec, seen := runAuthenticated(t, codec, users, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: "access_token", Value: raw})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, uint64(1), seen.UserID)
}

func TestAuthenticateMissingToken(t *testing.T) {
	codec, users := authFixture()
	rec, seen := runAuthenticated(t, codec, users, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessTokenRequired)
	assert.Nil(t, seen)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	codec, users := authFixture()

	// Garbage token.
	rec, _ := runAuthenticated(t, codec, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessTokenInvalid)

	// Expired token.
	expiredCodec := auth.NewCodec(
		auth.Secrets{Access: "a-secret", Refresh: "r-secret", Mail: "m-secret"},
		auth.TTLs{Access: -time.Minute, Refresh: time.Minute, Mail: time.Minute},
	)
	raw, _, err := expiredCodec.Sign(1, model.RoleOwner, auth.KindAccess)
	require.NoError(t, err)
	rec, _ = runAuthenticated(t, codec, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessTokenInvalid)

	// A refresh token presented as an access token.
	refresh, _, err := codec.Sign(1, model.RoleOwner, auth.KindRefresh)
	require.NoError(t, err)
	rec, _ = runAuthenticated(t, codec, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+refresh)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessTokenInvalid)
}

func TestAuthenticateDisabledAndDeletedUsers(t *testing.T) {
	codec, users := authFixture()

	// A valid token for a disabled account.
	raw, _, err := codec.Sign(2, model.RoleMember, auth.KindAccess)
	require.NoError(t, err)
	rec, _ := runAuthenticated(t, codec, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccountDisabled)

	// A valid token for a user that no longer exists.
	raw, _, err = codec.Sign(99, model.RoleMember, auth.KindAccess)
	require.NoError(t, err)
	rec, _ = runAuthenticated(t, codec, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+raw)
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), service.CodeAccessTokenInvalid)
}
