package service

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/longtk/giapha/internal/auth"
	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/queue"
	"github.com/longtk/giapha/internal/repository"
)

// UserStore is the persistence boundary the auth service needs for user
// records.  *repository.UserRepo satisfies it; tests plug in fakes.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, digest string) error
	MarkVerified(ctx context.Context, id uint64) error
}

// TokenStore is the refresh-token persistence boundary.  All methods take
// token hashes, never raw tokens.  Rotate must be atomic: of two
// concurrent rotations of the same hash exactly one may succeed, the
// other must return repository.ErrRefreshReuse.
type TokenStore interface {
	Save(ctx context.Context, hash string, userID uint64, ttl time.Duration) error
	Exists(ctx context.Context, hash string) (bool, error)
	Revoke(ctx context.Context, hash string, userID uint64) error
	RevokeAll(ctx context.Context, userID uint64) error
	Rotate(ctx context.Context, oldHash, newHash string, userID uint64, ttl time.Duration) error
}

// MailPublisher dispatches mail events to the broker.  Publish failures
// must not fail the triggering request; the service logs and moves on.
type MailPublisher interface {
	PublishMail(ctx context.Context, evt queue.MailEvent) error
}

// AuthService orchestrates registration, login, logout, token refresh and
// the mail-token flows.  All collaborators are injected at construction;
// the service holds no mutable state of its own.
type AuthService struct {
	users     UserStore
	tokens    TokenStore
	codec     *auth.Codec
	mail      MailPublisher
	pwdSecret string
}

func NewAuthService(users UserStore, tokens TokenStore, codec *auth.Codec, mail MailPublisher, pwdSecret string) *AuthService {
	return &AuthService{users: users, tokens: tokens, codec: codec, mail: mail, pwdSecret: pwdSecret}
}

// TokenPair is one access/refresh credential set.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Profile is the public view of a user returned by auth endpoints.
type Profile struct {
	ID            uint64
	Email         string
	FullName      string
	Role          model.Role
	TreeID        uint64
	EmailVerified bool
}

func profileOf(u model.User) Profile {
	return Profile{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		Role:          u.Role,
		TreeID:        u.TreeID,
		EmailVerified: u.EmailVerified,
	}
}

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Register validates the input, stores the new user with a Member role
// and queues the verification mail.  It does not log the user in; the
// client calls Login afterwards.
func (s *AuthService) Register(ctx context.Context, fullName, email, password, confirm string) (Profile, error) {
	fields := map[string]string{}
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))

	if fullName == "" || len([]rune(fullName)) > 50 {
		fields["full_name"] = "full name must be 1-50 characters"
	}
	if !emailRx.MatchString(email) {
		fields["email"] = "invalid email format"
	}
	if !auth.ValidatePassword(password) {
		fields["password"] = "password must be 8-50 characters with lower, upper, digit and special"
	}
	if password != confirm {
		fields["confirm_password"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return Profile{}, validationError(fields)
	}

	u := model.User{
		Email:          email,
		FullName:       fullName,
		PasswordDigest: auth.HashPassword(password, s.pwdSecret),
		Role:           model.RoleMember,
		IsActive:       true,
	}
	id, err := s.users.Create(ctx, &u)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Profile{}, newError(KindConflict, CodeEmailExists)
		}
		return Profile{}, err
	}
	u.ID = id

	s.sendMailToken(ctx, u, auth.KindEmailVerify, queue.MailVerifyEmail)
	return profileOf(u), nil
}

// Login verifies the credentials and issues a token pair.  Unknown email
// and wrong password fail with the identical code so accounts cannot be
// enumerated.
func (s *AuthService) Login(ctx context.Context, email, password string) (Profile, TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeEmailOrPassword)
		}
		return Profile{}, TokenPair{}, err
	}
	if !auth.VerifyPassword(u.PasswordDigest, password, s.pwdSecret) {
		return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeEmailOrPassword)
	}
	if !u.IsActive {
		return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeAccountDisabled)
	}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	return profileOf(u), pair, nil
}

// Logout requires a valid access token plus a refresh token that is still
// in the store, then revokes the refresh token.  A revoke failure after
// both checks passed is logged but does not block the client from
// clearing its session.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return newError(KindUnauthenticated, CodeAccessTokenRequired)
	}
	claims, err := s.codec.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return newError(KindUnauthenticated, CodeAccessTokenInvalid)
	}
	if strings.TrimSpace(refreshToken) == "" {
		return newError(KindUnauthenticated, CodeRefreshTokenRequired)
	}

	hash := auth.HashToken(refreshToken)
	ok, err := s.tokens.Exists(ctx, hash)
	if err != nil {
		return err
	}
	if !ok {
		return newError(KindUnauthenticated, CodeRefreshTokenNotExist)
	}
	if err := s.tokens.Revoke(ctx, hash, claims.UserID); err != nil {
		log.Printf("auth: revoke on logout failed for user %d: %v", claims.UserID, err)
	}
	return nil
}

// Refresh rotates a refresh token for a new access/refresh pair.  The old
// token must verify (signature + expiry) and still be present in the
// store; rotation is atomic, so a replayed or stolen token that was
// already rotated fails with USED_OR_NONEXISTENT_REFRESH_TOKEN.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Profile, TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeRefreshTokenRequired)
	}
	claims, err := s.codec.Verify(refreshToken, auth.KindRefresh)
	if err != nil {
		return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeRefreshReuse)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeRefreshReuse)
		}
		return Profile{}, TokenPair{}, err
	}
	if !u.IsActive {
		return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeAccountDisabled)
	}

	accessTok, accessExp, err := s.codec.Sign(u.ID, u.Role, auth.KindAccess)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}
	newRefresh, refreshExp, err := s.codec.Sign(u.ID, u.Role, auth.KindRefresh)
	if err != nil {
		return Profile{}, TokenPair{}, err
	}

	err = s.tokens.Rotate(ctx,
		auth.HashToken(refreshToken), auth.HashToken(newRefresh), u.ID, s.codec.RefreshTTL())
	if err != nil {
		if errors.Is(err, repository.ErrRefreshReuse) {
			return Profile{}, TokenPair{}, newError(KindUnauthenticated, CodeRefreshReuse)
		}
		return Profile{}, TokenPair{}, err
	}

	return profileOf(u), TokenPair{
		AccessToken:      accessTok,
		AccessExpiresAt:  accessExp,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ForgotPassword issues a reset token and queues the reset mail.  Unknown
// emails succeed silently so the endpoint cannot be used for account
// enumeration.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	s.sendMailToken(ctx, u, auth.KindForgotPassword, queue.MailPasswordReset)
	return nil
}

// ResetPassword redeems a forgot-password token, stores the new digest
// and revokes every live session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	fields := map[string]string{}
	if !auth.ValidatePassword(password) {
		fields["password"] = "password must be 8-50 characters with lower, upper, digit and special"
	}
	if password != confirm {
		fields["confirm_password"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return validationError(fields)
	}

	claims, err := s.codec.Verify(token, auth.KindForgotPassword)
	if err != nil {
		return newError(KindUnauthenticated, CodeResetTokenInvalid)
	}
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindUnauthenticated, CodeResetTokenInvalid)
		}
		return err
	}
	if err := s.users.UpdatePassword(ctx, claims.UserID, auth.HashPassword(password, s.pwdSecret)); err != nil {
		return err
	}
	if err := s.tokens.RevokeAll(ctx, claims.UserID); err != nil {
		log.Printf("auth: revoke-all after password reset failed for user %d: %v", claims.UserID, err)
	}
	return nil
}

// VerifyEmail redeems an email-verify token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token, auth.KindEmailVerify)
	if err != nil {
		return newError(KindUnauthenticated, CodeVerifyTokenInvalid)
	}
	if _, err := s.users.GetByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(KindUnauthenticated, CodeVerifyTokenInvalid)
		}
		return err
	}
	return s.users.MarkVerified(ctx, claims.UserID)
}

// issuePair signs a fresh access/refresh pair and stores the refresh hash.
func (s *AuthService) issuePair(ctx context.Context, u model.User) (TokenPair, error) {
	accessTok, accessExp, err := s.codec.Sign(u.ID, u.Role, auth.KindAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refreshTok, refreshExp, err := s.codec.Sign(u.ID, u.Role, auth.KindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Save(ctx, auth.HashToken(refreshTok), u.ID, s.codec.RefreshTTL()); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      accessTok,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshTok,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// sendMailToken signs a one-shot mail token and publishes the event.
// Failures are logged only; mail delivery never blocks the request.
func (s *AuthService) sendMailToken(ctx context.Context, u model.User, kind auth.Kind, mailKind string) {
	if s.mail == nil {
		return
	}
	tok, _, err := s.codec.Sign(u.ID, u.Role, kind)
	if err != nil {
		log.Printf("auth: sign %s token for user %d failed: %v", mailKind, u.ID, err)
		return
	}
	evt := queue.MailEvent{
		ID:          uuid.NewString(),
		Kind:        mailKind,
		UserID:      u.ID,
		Recipient:   u.Email,
		FullName:    u.FullName,
		Token:       tok,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.mail.PublishMail(ctx, evt); err != nil {
		log.Printf("auth: publish %s mail for user %d failed: %v", mailKind, u.ID, err)
	}
}
