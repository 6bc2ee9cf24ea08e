package rediscache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetTicketStore keeps one-time password reset tickets, keyed by email
// under the reset: namespace so they can never collide with session
// snapshots. Tickets are TTL-bounded and deleted on first successful use.
type ResetTicketStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewResetTicketStore(rdb *redis.Client, ttl time.Duration) *ResetTicketStore {
	return &ResetTicketStore{rdb: rdb, ttl: ttl}
}

func resetKey(email string) string { return "reset:" + email }

// Put stores the ticket for email, replacing any outstanding one.
func (s *ResetTicketStore) Put(ctx context.Context, email, ticket string) error {
	return s.rdb.Set(ctx, resetKey(email), ticket, s.ttl).Err()
}

// Get returns the outstanding ticket for email, or "" when none exists.
func (s *ResetTicketStore) Get(ctx context.Context, email string) (string, error) {
	ticket, err := s.rdb.Get(ctx, resetKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ticket, nil
}

// Delete consumes the ticket for email.
func (s *ResetTicketStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, resetKey(email)).Err()
}
