package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	repo "github.com/mpetrenko/contacts-api/internal/domain/repository"
	"github.com/mpetrenko/contacts-api/internal/infrastructure/rediscache"
	"github.com/mpetrenko/contacts-api/pkg/helpers"
)

var (
	ErrEmailTaken         = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidResetTicket = errors.New("invalid or expired reset ticket")
)

// Notifier delivers templated links to users. Calls are fire-and-forget:
// the auth service logs failures and never fails the request over them.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// AuthService orchestrates signup, login, token refresh, logout, email
// confirmation and password reset over the user store, the session cache
// and the token codec. It holds only immutable configuration.
type AuthService struct {
	Repo      repo.UserRepository
	Codec     *helpers.TokenCodec
	Cache     *rediscache.SessionCache
	Tickets   *rediscache.ResetTicketStore
	Notifier  Notifier
	GCS       *storage.Client
	GCSBucket string
	Logger    *logrus.Logger

	BaseURL          string
	ResetPasswordURL string
}

func NewAuthService(r repo.UserRepository, codec *helpers.TokenCodec, cache *rediscache.SessionCache,
	tickets *rediscache.ResetTicketStore, notifier Notifier, gcs *storage.Client, gcsBucket string,
	logger *logrus.Logger, baseURL, resetURL string) *AuthService {
	return &AuthService{
		Repo:             r,
		Codec:            codec,
		Cache:            cache,
		Tickets:          tickets,
		Notifier:         notifier,
		GCS:              gcs,
		GCSBucket:        gcsBucket,
		Logger:           logger,
		BaseURL:          baseURL,
		ResetPasswordURL: resetURL,
	}
}

// Signup registers a new account, unconfirmed, and mails a confirmation
// link. Email matching against existing accounts is exact.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*entity.User, error) {
	existing, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := s.Repo.Create(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	token, _, err := s.Codec.Issue(u.Email, helpers.ScopeEmail)
	if err != nil {
		return nil, err
	}
	link := fmt.Sprintf("%s/api/auth/confirm_email/%s", s.BaseURL, token)
	s.notifyConfirmation(ctx, u.Email, link)

	return u, nil
}

// Login checks credentials and issues an access/refresh pair. Unknown email
// and wrong password produce the same error so accounts cannot be
// enumerated. The new refresh token replaces any previous one, revoking
// other sessions, and the snapshot is written through to the cache once the
// store write has committed.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil || !helpers.CheckPassword(u.Password, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !u.Confirmed {
		return TokenPair{}, ErrEmailNotVerified
	}

	pair, err := s.issuePair(u.Email)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Repo.SetRefreshToken(ctx, u.ID, pair.RefreshToken); err != nil {
		return TokenPair{}, err
	}
	s.Cache.Put(ctx, rediscache.SnapshotOf(u))
	return pair, nil
}

// Refresh rotates a valid refresh token into a new pair. A presented token
// that no longer matches the stored one is treated as a replay: the stored
// token is cleared, forcing re-login. Rotation itself is a compare-and-set
// so concurrent refreshes of the same token have exactly one winner.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	email, err := s.Codec.Verify(refreshToken, helpers.ScopeRefresh)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return TokenPair{}, err
	}
	if u == nil {
		return TokenPair{}, ErrInvalidToken
	}
	if u.RefreshToken == nil || *u.RefreshToken != refreshToken {
		if cErr := s.Repo.ClearRefreshToken(ctx, u.ID); cErr != nil && s.Logger != nil {
			s.Logger.WithError(cErr).WithField("email", email).Warn("clear refresh token failed")
		}
		return TokenPair{}, ErrInvalidToken
	}

	pair, err := s.issuePair(email)
	if err != nil {
		return TokenPair{}, err
	}
	ok, err := s.Repo.RotateRefreshToken(ctx, u.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if !ok {
		// lost the race to a concurrent refresh; the presented token is stale
		return TokenPair{}, ErrInvalidToken
	}
	return pair, nil
}

// Logout clears the stored refresh token and drops the cached snapshot.
// Logging out a user with no active session is a no-op.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	email, err := s.Codec.Subject(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	if err := s.Repo.ClearRefreshToken(ctx, u.ID); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, email)
	return nil
}

// ConfirmEmail marks the token's subject as confirmed. Confirming twice is
// not an error.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.Codec.Verify(token, helpers.ScopeEmail)
	if err != nil {
		return "", ErrInvalidToken
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if u.Confirmed {
		return "Email already confirmed", nil
	}
	if err := s.Repo.ConfirmEmail(ctx, email); err != nil {
		return "", err
	}
	return "Email confirmed successfully", nil
}

// RequestPasswordReset stores a one-time opaque ticket and mails a reset
// link. The ticket is not a signed token: it must be revocable and single
// use, so it lives only in the ticket store.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}

	ticket, err := helpers.GenerateOpaqueToken(32)
	if err != nil {
		return err
	}
	if err := s.Tickets.Put(ctx, email, ticket); err != nil {
		return err
	}
	link := fmt.Sprintf("%s?token=%s&email=%s", s.ResetPasswordURL, ticket, email)
	s.notifyReset(ctx, email, link)
	return nil
}

// ResetPassword consumes the ticket and sets the new password. Credentials
// changed, so the stored refresh token and the cached snapshot both go.
func (s *AuthService) ResetPassword(ctx context.Context, email, ticket, newPassword string) error {
	stored, err := s.Tickets.Get(ctx, email)
	if err != nil {
		return err
	}
	if stored == "" || stored != ticket {
		return ErrInvalidResetTicket
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, email, hash); err != nil {
		return err
	}
	if err := s.Tickets.Delete(ctx, email); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("reset ticket delete failed")
	}
	if u, uErr := s.Repo.GetByEmail(ctx, email); uErr == nil && u != nil {
		if cErr := s.Repo.ClearRefreshToken(ctx, u.ID); cErr != nil && s.Logger != nil {
			s.Logger.WithError(cErr).WithField("email", email).Warn("clear refresh token failed")
		}
	}
	s.Cache.Invalidate(ctx, email)
	return nil
}

// ResolveCurrentUser turns a bearer access token into a user snapshot,
// serving from the cache and falling back to the store on a miss. This runs
// on every authenticated request.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, accessToken string) (*rediscache.UserSnapshot, error) {
	email, err := s.Codec.Verify(accessToken, helpers.ScopeAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if snap, ok := s.Cache.Get(ctx, email); ok {
		return snap, nil
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	snap := rediscache.SnapshotOf(u)
	s.Cache.Put(ctx, snap)
	return snap, nil
}

// UpdateAvatar uploads the image to GCS, persists the URL and refreshes the
// cached snapshot.
func (s *AuthService) UpdateAvatar(ctx context.Context, userID int64, r io.Reader, filename, contentType string) (string, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return "", errors.New("gcs not configured")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", fmt.Sprint(userID), uuid.NewString()+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return "", err
	}
	if err := s.Repo.UpdateAvatar(ctx, u.ID, url); err != nil {
		return "", err
	}
	u.Avatar = &url
	s.Cache.Put(ctx, rediscache.SnapshotOf(u))
	return url, nil
}

func (s *AuthService) issuePair(email string) (TokenPair, error) {
	access, aexp, err := s.Codec.Issue(email, helpers.ScopeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rexp, err := s.Codec.Issue(email, helpers.ScopeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AuthService) notifyConfirmation(ctx context.Context, email, link string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendConfirmation(ctx, email, link); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("confirmation email enqueue failed")
	}
}

func (s *AuthService) notifyReset(ctx context.Context, email, link string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendPasswordReset(ctx, email, link); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("email", email).Warn("reset email enqueue failed")
	}
}
