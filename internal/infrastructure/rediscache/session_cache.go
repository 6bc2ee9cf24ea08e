package rediscache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	"github.com/mpetrenko/contacts-api/pkg/helpers"
)

// UserSnapshot is the denormalized user projection kept in Redis, keyed by
// email. It deliberately excludes the password hash and refresh token so a
// cached entry can never leak credentials through a response shortcut.
type UserSnapshot struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Confirmed bool    `json:"confirmed"`
	Avatar    *string `json:"avatar"`
}

// SnapshotOf projects a full user record into its cacheable form.
func SnapshotOf(u *entity.User) *UserSnapshot {
	return &UserSnapshot{ID: u.ID, Email: u.Email, Confirmed: u.Confirmed, Avatar: u.Avatar}
}

// SessionCache is a cache-aside layer over the user store. Entries expire
// after a short TTL and are explicitly deleted on logout and password
// change; a miss is always resolvable against the store.
type SessionCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewSessionCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *SessionCache {
	return &SessionCache{rdb: rdb, ttl: ttl, logger: logger}
}

func sessionKey(email string) string { return "user:" + email }

// Get returns the cached snapshot for email, or (nil, false) on a miss.
// Redis errors degrade to a miss so a cache outage never blocks a request.
func (c *SessionCache) Get(ctx context.Context, email string) (*UserSnapshot, bool) {
	var snap UserSnapshot
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, sessionKey(email), &snap)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).WithField("email", email).Warn("session cache read failed")
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &snap, true
}

// Put writes the snapshot through with the configured TTL.
func (c *SessionCache) Put(ctx context.Context, snap *UserSnapshot) {
	if err := helpers.RedisSetJSON(ctx, c.rdb, sessionKey(snap.Email), snap, c.ttl); err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("email", snap.Email).Warn("session cache write failed")
	}
}

// Invalidate drops the cached snapshot for email. Deleting a key that does
// not exist is a no-op.
func (c *SessionCache) Invalidate(ctx context.Context, email string) {
	if err := helpers.RedisDel(ctx, c.rdb, sessionKey(email)); err != nil && c.logger != nil {
		c.logger.WithError(err).WithField("email", email).Warn("session cache invalidate failed")
	}
}
