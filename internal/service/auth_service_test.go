package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longtk/giapha/internal/auth"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/queue"
	"github.com/longtk/giapha/internal/repository"
)

// =====================
// In-memory fakes
// =====================

type fakeUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[uint64]model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range f.users {
		if other.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	id := f.nextID
	f.nextID++
	cp := *u
	cp.ID = id
	cp.Email = email
	f.users[id] = cp
	return id, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uint64, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.PasswordDigest = digest
	f.users[id] = u
	return nil
}

func (f *fakeUserStore) MarkVerified(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.EmailVerified = true
	f.users[id] = u
	return nil
}

// fakeTokenStore mirrors the Redis store's semantics, including the
// compare-and-swap rotation.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]uint64 // hash -> user id
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]uint64{}}
}

func (f *fakeTokenStore) Save(_ context.Context, hash string, userID uint64, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = userID
	return nil
}

func (f *fakeTokenStore) Exists(_ context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[hash]
	return ok, nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, hash string, _ uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, hash)
	return nil
}

func (f *fakeTokenStore) RevokeAll(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, uid := range f.tokens {
		if uid == userID {
			delete(f.tokens, h)
		}
	}
	return nil
}

func (f *fakeTokenStore) Rotate(_ context.Context, oldHash, newHash string, userID uint64, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[oldHash]; !ok {
		return repository.ErrRefreshReuse
	}
	delete(f.tokens, oldHash)
	f.tokens[newHash] = userID
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.MailEvent
}

func (f *fakePublisher) PublishMail(_ context.Context, evt queue.MailEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

// =====================
// Helpers
// =====================

const pwdSecret = "pwd-secret"

func newTestAuthService() (*AuthService, *fakeUserStore, *fakeTokenStore, *fakePublisher) {
	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	mail := &fakePublisher{}
	codec := auth.NewCodec(
		auth.Secrets{Access: "a-secret", Refresh: "r-secret", Mail: "m-secret"},
		auth.TTLs{Access: 15 * time.Minute, Refresh: 24 * time.Hour, Mail: 30 * time.Minute},
	)
	return NewAuthService(users, tokens, codec, mail, pwdSecret), users, tokens, mail
}

func serviceCode(t *testing.T, err error) string {
	t.Helper()
	se, ok := err.(*Error)
	require.True(t, ok, "expected *service.Error, got %v", err)
	return se.Code
}

// =====================
// Tests
// =====================

func TestRegisterThenLogin(t *testing.T) {
	svc, _, _, mail := newTestAuthService()
	ctx := context.Background()

	p, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", p.Email)
	assert.Equal(t, model.RoleMember, p.Role)

	// Registration queues the verification mail.
	require.Len(t, mail.events, 1)
	assert.Equal(t, queue.MailVerifyEmail, mail.events[0].Kind)
	assert.Equal(t, "alice@x.com", mail.events[0].Recipient)

	profile, pair, err := svc.Login(ctx, "alice@x.com", "Aa1!aaaa")
	require.NoError(t, err)
	assert.Equal(t, p.ID, profile.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "not-an-email", "weak", "other")
	require.Error(t, err)
	se, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindValidation, se.Kind)
	assert.Contains(t, se.Fields, "full_name")
	assert.Contains(t, se.Fields, "email")
	assert.Contains(t, se.Fields, "password")
	assert.Contains(t, se.Fields, "confirm_password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Alice Again", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	assert.Equal(t, CodeEmailExists, serviceCode(t, err))
}

func TestLoginEnumerationSafe(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)

	// Unknown email and wrong password must be indistinguishable.
	_, _, errUnknown := svc.Login(ctx, "nobody@x.com", "Aa1!aaaa")
	_, _, errWrongPwd := svc.Login(ctx, "alice@x.com", "Bb2@bbbb")
	assert.Equal(t, CodeEmailOrPassword, serviceCode(t, errUnknown))
	assert.Equal(t, CodeEmailOrPassword, serviceCode(t, errWrongPwd))
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)
	_, pair, err := svc.Login(ctx, "alice@x.com", "Aa1!aaaa")
	require.NoError(t, err)

	// First rotation succeeds and yields a different token.
	_, next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// Replaying the rotated token fails.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, CodeRefreshReuse, serviceCode(t, err))

	// The new token still works.
	_, _, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestLogoutScenario(t *testing.T) {
	svc, _, tokens, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)
	_, pair, err := svc.Login(ctx, "alice@x.com", "Aa1!aaaa")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	// The refresh token is gone from the store...
	ok, err := tokens.Exists(ctx, auth.HashToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.False(t, ok)

	// ...so replaying it fails with the reuse error.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.Equal(t, CodeRefreshReuse, serviceCode(t, err))
}

func TestLogoutRequiresTokens(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)
	_, pair, err := svc.Login(ctx, "alice@x.com", "Aa1!aaaa")
	require.NoError(t, err)

	assert.Equal(t, CodeAccessTokenRequired, serviceCode(t, svc.Logout(ctx, "", pair.RefreshToken)))
	assert.Equal(t, CodeAccessTokenInvalid, serviceCode(t, svc.Logout(ctx, "garbage", pair.RefreshToken)))
	assert.Equal(t, CodeRefreshTokenRequired, serviceCode(t, svc.Logout(ctx, pair.AccessToken, "")))

	// A refresh token that was never stored (or already revoked).
	require.NoError(t, svc.Logout(ctx, pair.AccessToken, pair.RefreshToken))
	assert.Equal(t, CodeRefreshTokenNotExist, serviceCode(t, svc.Logout(ctx, pair.AccessToken, pair.RefreshToken)))
}

func TestForgotAndResetPassword(t *testing.T) {
	svc, _, tokens, mail := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)
	_, pair, err := svc.Login(ctx, "alice@x.com", "Aa1!aaaa")
	require.NoError(t, err)

	// Unknown email: silent success, no mail queued.
	require.NoError(t, svc.ForgotPassword(ctx, "nobody@x.com"))
	require.Len(t, mail.events, 1) // just the registration mail

	require.NoError(t, svc.ForgotPassword(ctx, "alice@x.com"))
	require.Len(t, mail.events, 2)
	reset := mail.events[1]
	assert.Equal(t, queue.MailPasswordReset, reset.Kind)

	require.NoError(t, svc.ResetPassword(ctx, reset.Token, "Bb2@bbbb", "Bb2@bbbb"))

	// Every live session was revoked by the reset.
	ok, err := tokens.Exists(ctx, auth.HashToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.False(t, ok)

	// Old password out, new password in.
	_, _, err = svc.Login(ctx, "alice@x.com", "Aa1!aaaa")
	assert.Equal(t, CodeEmailOrPassword, serviceCode(t, err))
	_, _, err = svc.Login(ctx, "alice@x.com", "Bb2@bbbb")
	require.NoError(t, err)
}

func TestResetPasswordRejectsWrongTokenKind(t *testing.T) {
	svc, _, _, mail := newTestAuthService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)

	// The registration mail carries an email-verify token, not a reset
	// token; redeeming it for a password reset must fail.
	require.Len(t, mail.events, 1)
	err = svc.ResetPassword(ctx, mail.events[0].Token, "Bb2@bbbb", "Bb2@bbbb")
	assert.Equal(t, CodeResetTokenInvalid, serviceCode(t, err))
}

func TestVerifyEmail(t *testing.T) {
	svc, users, _, mail := newTestAuthService()
	ctx := context.Background()

	p, err := svc.Register(ctx, "Alice", "alice@x.com", "Aa1!aaaa", "Aa1!aaaa")
	require.NoError(t, err)
	require.Len(t, mail.events, 1)

	require.NoError(t, svc.VerifyEmail(ctx, mail.events[0].Token))

	u, err := users.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
}
