package application

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
)

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[int64]*entity.Contact
	nextID   int64
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[int64]*entity.Contact)}
}

func (f *fakeContactRepo) Create(_ context.Context, c *entity.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.contacts[c.ID] = &cp
	return nil
}

func (f *fakeContactRepo) GetByID(_ context.Context, id, userID int64) (*entity.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactRepo) List(_ context.Context, userID int64) ([]entity.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Contact, 0)
	for _, c := range f.contacts {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) Update(_ context.Context, c *entity.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.contacts[c.ID]
	if !ok || existing.UserID != c.UserID {
		return ErrContactNotFound
	}
	cp := *c
	f.contacts[c.ID] = &cp
	return nil
}

func (f *fakeContactRepo) Delete(_ context.Context, id, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(f.contacts, id)
	return true, nil
}

func (f *fakeContactRepo) Search(_ context.Context, userID int64, query string) ([]entity.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := strings.ToLower(query)
	out := make([]entity.Contact, 0)
	for _, c := range f.contacts {
		if c.UserID != userID {
			continue
		}
		if strings.Contains(strings.ToLower(c.FirstName), q) ||
			strings.Contains(strings.ToLower(c.LastName), q) ||
			strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeContactRepo) UpcomingBirthdays(_ context.Context, userID int64, days int) ([]entity.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	out := make([]entity.Contact, 0)
	for _, c := range f.contacts {
		if c.UserID != userID {
			continue
		}
		next := time.Date(now.Year(), c.Birthday.Month(), c.Birthday.Day(), 0, 0, 0, 0, time.UTC)
		if next.Before(now.Truncate(24 * time.Hour)) {
			next = next.AddDate(1, 0, 0)
		}
		if next.Sub(now) <= time.Duration(days)*24*time.Hour {
			out = append(out, *c)
		}
	}
	return out, nil
}

func newContactFixture() (*ContactService, *fakeContactRepo) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	repo := newFakeContactRepo()
	// nil ES client: search exercises the repository fallback
	return NewContactService(repo, logger, nil, ""), repo
}

func sampleInput(first string) ContactInput {
	return ContactInput{
		FirstName: first,
		LastName:  "Lovelace",
		Email:     strings.ToLower(first) + "@example.com",
		Phone:     "+442071234567",
		Birthday:  time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestContactCreateAndGet(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, sampleInput("Ada"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.UserID)

	got, err := svc.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
}

func TestContactOwnershipIsolation(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, sampleInput("Ada"))
	require.NoError(t, err)

	// another user's contact behaves as not found
	_, err = svc.Get(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrContactNotFound)

	err = svc.Delete(ctx, 2, created.ID)
	assert.ErrorIs(t, err, ErrContactNotFound)

	_, err = svc.Update(ctx, 2, created.ID, sampleInput("Eve"))
	assert.ErrorIs(t, err, ErrContactNotFound)

	// the record is untouched for its owner
	got, err := svc.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
}

func TestContactUpdate(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, sampleInput("Ada"))
	require.NoError(t, err)

	in := sampleInput("Ada")
	in.Phone = "+15551234567"
	updated, err := svc.Update(ctx, 1, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", updated.Phone)

	got, err := svc.Get(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", got.Phone)
}

func TestContactDelete(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	created, err := svc.Create(ctx, 1, sampleInput("Ada"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, 1, created.ID))
	_, err = svc.Get(ctx, 1, created.ID)
	assert.ErrorIs(t, err, ErrContactNotFound)

	err = svc.Delete(ctx, 1, created.ID)
	assert.ErrorIs(t, err, ErrContactNotFound)
}

func TestContactList(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, sampleInput("Ada"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, sampleInput("Grace"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, sampleInput("Linus"))
	require.NoError(t, err)

	out, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestContactSearchFallsBackToRepository(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, sampleInput("Ada"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, sampleInput("Grace"))
	require.NoError(t, err)

	out, err := svc.Search(ctx, 1, "ada")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ada", out[0].FirstName)

	out, err = svc.Search(ctx, 1, "example.com")
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestContactUpcomingBirthdays(t *testing.T) {
	svc, _ := newContactFixture()
	ctx := context.Background()

	soon := sampleInput("Ada")
	soon.Birthday = time.Now().AddDate(-30, 0, 3)
	_, err := svc.Create(ctx, 1, soon)
	require.NoError(t, err)

	far := sampleInput("Grace")
	far.Birthday = time.Now().AddDate(-40, 2, 0)
	_, err = svc.Create(ctx, 1, far)
	require.NoError(t, err)

	out, err := svc.UpcomingBirthdays(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ada", out[0].FirstName)
}
