package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtk/giapha/internal/model"
)

func testCodec() *Codec {
	return NewCodec(
		Secrets{Access: "access-secret", Refresh: "refresh-secret", Mail: "mail-secret"},
		TTLs{Access: 15 * time.Minute, Refresh: 7 * 24 * time.Hour, Mail: 30 * time.Minute},
	)
}

func TestSignVerifyRoundTripAllKinds(t *testing.T) {
	c := testCodec()
	for _, kind := range []Kind{KindAccess, KindRefresh, KindForgotPassword, KindEmailVerify} {
		raw, exp, err := c.Sign(42, model.RoleOwner, kind)
		require.NoError(t, err)
		assert.True(t, exp.After(time.Now()))

		claims, err := c.Verify(raw, kind)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), claims.UserID)
		assert.Equal(t, kind, claims.Kind)
	}
}

func TestAccessTokenCarriesRole(t *testing.T) {
	c := testCodec()
	raw, _, err := c.Sign(7, model.RoleAdmin, KindAccess)
	require.NoError(t, err)

	claims, err := c.Verify(raw, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestVerifyExpiredIsExpiredNotSignature(t *testing.T) {
	c := NewCodec(
		Secrets{Access: "access-secret", Refresh: "refresh-secret", Mail: "mail-secret"},
		TTLs{Access: -time.Minute, Refresh: -time.Minute, Mail: -time.Minute},
	)
	raw, _, err := c.Sign(1, model.RoleMember, KindAccess)
	require.NoError(t, err)

	_, err = c.Verify(raw, KindAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyWrongSecretIsSignatureError(t *testing.T) {
	c := testCodec()
	other := NewCodec(
		Secrets{Access: "different", Refresh: "different", Mail: "different"},
		TTLs{Access: time.Minute, Refresh: time.Minute, Mail: time.Minute},
	)
	raw, _, err := c.Sign(1, model.RoleMember, KindAccess)
	require.NoError(t, err)

	_, err = other.Verify(raw, KindAccess)
	assert.ErrorIs(t, err, ErrTokenSignature)
}

func TestVerifyMalformed(t *testing.T) {
	c := testCodec()
	_, err := c.Verify("not-a-token", KindAccess)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCrossKindRejected(t *testing.T) {
	c := testCodec()

	// Access and refresh use different secrets, so presenting one as the
	// other fails the signature check.
	raw, _, err := c.Sign(1, model.RoleMember, KindAccess)
	require.NoError(t, err)
	_, err = c.Verify(raw, KindRefresh)
	assert.ErrorIs(t, err, ErrTokenSignature)

	// The two mail kinds share a secret; the embedded kind ordinal is what
	// keeps them apart.
	reset, _, err := c.Sign(1, model.RoleMember, KindForgotPassword)
	require.NoError(t, err)
	_, err = c.Verify(reset, KindEmailVerify)
	assert.ErrorIs(t, err, ErrTokenKind)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	c := testCodec()
	a, _, err := c.Sign(1, model.RoleMember, KindRefresh)
	require.NoError(t, err)
	b, _, err := c.Sign(1, model.RoleMember, KindRefresh)
	require.NoError(t, err)
	// Same user, same second: the jti claim must still keep them distinct
	// or rotation could not tell old from new.
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, HashToken(a), HashToken(b))
}
