package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	"github.com/mpetrenko/contacts-api/internal/domain/repository"
)

var errNotFound = errors.New("not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, email, passwordHash string) (*entity.User, error) {
	u := &entity.User{Email: email, Password: passwordHash}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password)
		VALUES ($1, $2)
		RETURNING id, confirmed, created_at
	`, email, passwordHash)
	if err := row.Scan(&u.ID, &u.Confirmed, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `
		SELECT id, email, password, refresh_token, confirmed, avatar, created_at
		FROM users
		WHERE email = $1
	`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, `
		SELECT id, email, password, refresh_token, confirmed, avatar, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*entity.User, error) {
	u := &entity.User{}
	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.RefreshToken, &u.Confirmed,
		&u.Avatar, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id int64, token string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_token = $1 WHERE id = $2
	`, token, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

// RotateRefreshToken is a single compare-and-set: the WHERE clause pins the
// currently stored token, so of two racing refreshes only one can win.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id int64, old, next string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_token = $1
		WHERE id = $2 AND refresh_token = $3
	`, next, id, old)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET refresh_token = NULL WHERE id = $1
	`, id)
	return err
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, email string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET confirmed = TRUE WHERE email = $1
	`, email)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET password = $1 WHERE email = $2
	`, passwordHash, email)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id int64, url string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET avatar = $1 WHERE id = $2
	`, url, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
