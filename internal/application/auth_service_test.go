package application

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	"github.com/mpetrenko/contacts-api/internal/infrastructure/rediscache"
	"github.com/mpetrenko/contacts-api/pkg/helpers"
)

// fakeUserRepo is an in-memory user store. Rotation is guarded by the same
// mutex as every other access so the compare-and-set is atomic, mirroring
// the conditional UPDATE the SQL implementation relies on.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*entity.User
	nextID int64

	getByEmailCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entity.User)}
}

func clone(u *entity.User) *entity.User {
	cp := *u
	if u.RefreshToken != nil {
		v := *u.RefreshToken
		cp.RefreshToken = &v
	}
	if u.Avatar != nil {
		v := *u.Avatar
		cp.Avatar = &v
	}
	return &cp
}

func (f *fakeUserRepo) Create(_ context.Context, email, passwordHash string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &entity.User{ID: f.nextID, Email: email, Password: passwordHash, CreatedAt: time.Now()}
	f.users[email] = u
	return clone(u), nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByEmailCalls++
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return clone(u), nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) byID(id int64) *entity.User {
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (f *fakeUserRepo) SetRefreshToken(_ context.Context, id int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byID(id); u != nil {
		u.RefreshToken = &token
	}
	return nil
}

func (f *fakeUserRepo) RotateRefreshToken(_ context.Context, id int64, old, next string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byID(id)
	if u == nil || u.RefreshToken == nil || *u.RefreshToken != old {
		return false, nil
	}
	u.RefreshToken = &next
	return true, nil
}

func (f *fakeUserRepo) ClearRefreshToken(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byID(id); u != nil {
		u.RefreshToken = nil
	}
	return nil
}

func (f *fakeUserRepo) ConfirmEmail(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		u.Confirmed = true
	}
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		u.Password = passwordHash
	}
	return nil
}

func (f *fakeUserRepo) UpdateAvatar(_ context.Context, id int64, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byID(id); u != nil {
		u.Avatar = &url
	}
	return nil
}

func (f *fakeUserRepo) storedRefreshToken(email string) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok || u.RefreshToken == nil {
		return nil
	}
	v := *u.RefreshToken
	return &v
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []string // links
	resets        []string
}

func (n *fakeNotifier) SendConfirmation(_ context.Context, _, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, link)
	return nil
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, _, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, link)
	return nil
}

type authFixture struct {
	svc      *AuthService
	repo     *fakeUserRepo
	notifier *fakeNotifier
	mr       *miniredis.Miniredis
	rdb      *redis.Client
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	codec := helpers.NewTokenCodec("session-secret", "email-secret", 15*time.Minute, 7*24*time.Hour, 24*time.Hour)
	cache := rediscache.NewSessionCache(rdb, 15*time.Minute, logger)
	tickets := rediscache.NewResetTicketStore(rdb, time.Hour)

	svc := NewAuthService(repo, codec, cache, tickets, notifier, nil, "",
		logger, "http://localhost:8080", "http://localhost:3000/reset-password")
	return &authFixture{svc: svc, repo: repo, notifier: notifier, mr: mr, rdb: rdb}
}

// signupConfirmed creates a ready-to-login account.
func (f *authFixture) signupConfirmed(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, f.repo.ConfirmEmail(ctx, email))
}

func TestSignup(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.Signup(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.Confirmed)
	assert.NotEqual(t, "hunter22", u.Password)
	assert.True(t, helpers.CheckPassword(u.Password, "hunter22"))

	require.Len(t, f.notifier.confirmations, 1)
	assert.Contains(t, f.notifier.confirmations[0], "/api/auth/confirm_email/")
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, "alice@example.com", "other-password")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginIssuesPairAndWarmsCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	stored := f.repo.storedRefreshToken("alice@example.com")
	require.NotNil(t, stored)
	assert.Equal(t, pair.RefreshToken, *stored)

	// write-through: the snapshot is cached before the response goes out
	assert.True(t, f.mr.Exists("user:alice@example.com"))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	// unknown email and wrong password are indistinguishable
	_, err := f.svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRequiresConfirmedEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "alice@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestLoginRevokesPreviousSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	first, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	// only the newest refresh token survives
	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// and replay detection has now revoked the session outright
	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	stored := f.repo.storedRefreshToken("alice@example.com")
	require.NotNil(t, stored)
	assert.Equal(t, next.RefreshToken, *stored)
}

func TestRefreshReuseDetection(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	// replaying the consumed token fails and revokes the live session too
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, f.repo.storedRefreshToken("alice@example.com"))

	_, err = f.svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsNonRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrInvalidToken)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent refresh may succeed")
}

func TestLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.True(t, f.mr.Exists("user:alice@example.com"))

	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))
	assert.Nil(t, f.repo.storedRefreshToken("alice@example.com"))
	assert.False(t, f.mr.Exists("user:alice@example.com"))

	// refreshing after logout fails
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// logging out again is a no-op
	require.NoError(t, f.svc.Logout(ctx, pair.AccessToken))
}

func TestLogoutInvalidToken(t *testing.T) {
	f := newAuthFixture(t)
	err := f.svc.Logout(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConfirmEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.Signup(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.False(t, u.Confirmed)

	require.Len(t, f.notifier.confirmations, 1)
	link := f.notifier.confirmations[0]
	token := link[strings.LastIndex(link, "/")+1:]

	msg, err := f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Email confirmed successfully", msg)

	msg, err = f.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Email already confirmed", msg)

	_, err = f.svc.Login(ctx, "alice@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestConfirmEmailRejectsSessionToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.ConfirmEmail(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))
	require.True(t, f.mr.Exists("reset:alice@example.com"))

	ticket, err := f.mr.Get("reset:alice@example.com")
	require.NoError(t, err)
	require.Len(t, f.notifier.resets, 1)
	assert.Contains(t, f.notifier.resets[0], "token="+ticket)

	require.NoError(t, f.svc.ResetPassword(ctx, "alice@example.com", ticket, "new-password"))

	// ticket is single use
	assert.False(t, f.mr.Exists("reset:alice@example.com"))
	err = f.svc.ResetPassword(ctx, "alice@example.com", ticket, "another-password")
	assert.ErrorIs(t, err, ErrInvalidResetTicket)

	// active session revoked, cache dropped
	assert.Nil(t, f.repo.storedRefreshToken("alice@example.com"))
	assert.False(t, f.mr.Exists("user:alice@example.com"))
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.Login(ctx, "alice@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "alice@example.com", "new-password")
	assert.NoError(t, err)
}

func TestResetPasswordWrongTicket(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com"))

	err := f.svc.ResetPassword(ctx, "alice@example.com", "forged-ticket", "new-password")
	assert.ErrorIs(t, err, ErrInvalidResetTicket)

	// outstanding ticket survives a failed attempt
	assert.True(t, f.mr.Exists("reset:alice@example.com"))
	_, err = f.svc.Login(ctx, "alice@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestResolveCurrentUserServedFromCache(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	before := f.repo.getByEmailCalls
	snap, err := f.svc.ResolveCurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", snap.Email)
	assert.Equal(t, before, f.repo.getByEmailCalls, "cache hit must not touch the store")
}

func TestResolveCurrentUserFillsCacheOnMiss(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	f.mr.FlushAll()

	snap, err := f.svc.ResolveCurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", snap.Email)
	assert.True(t, f.mr.Exists("user:alice@example.com"), "miss fills the cache")

	before := f.repo.getByEmailCalls
	_, err = f.svc.ResolveCurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, before, f.repo.getByEmailCalls)
}

func TestResolveCurrentUserRepopulatesAfterTTL(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	f.mr.FastForward(15*time.Minute + time.Second)
	require.False(t, f.mr.Exists("user:alice@example.com"))

	before := f.repo.getByEmailCalls
	_, err = f.svc.ResolveCurrentUser(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, before+1, f.repo.getByEmailCalls, "expired entry resolves against the store")
	assert.True(t, f.mr.Exists("user:alice@example.com"))
}

func TestResolveCurrentUserRejectsRefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.signupConfirmed(t, "alice@example.com", "hunter22")

	pair, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.ResolveCurrentUser(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
