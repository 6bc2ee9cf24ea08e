package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpetrenko/contacts-api/internal/domain/entity"
	"github.com/mpetrenko/contacts-api/internal/domain/repository"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

const contactColumns = `id, first_name, last_name, email, phone, birthday, additional_info, user_id`

func (r *ContactRepository) Create(ctx context.Context, c *entity.Contact) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contacts (first_name, last_name, email, phone, birthday, additional_info, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.AdditionalInfo, c.UserID)
	return row.Scan(&c.ID)
}

func (r *ContactRepository) GetByID(ctx context.Context, id, userID int64) (*entity.Contact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	c := &entity.Contact{}
	if err := scanContact(row, c); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *ContactRepository) List(ctx context.Context, userID int64) ([]entity.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func (r *ContactRepository) Update(ctx context.Context, c *entity.Contact) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE contacts
		SET first_name = $1, last_name = $2, email = $3, phone = $4, birthday = $5, additional_info = $6
		WHERE id = $7 AND user_id = $8
	`, c.FirstName, c.LastName, c.Email, c.Phone, c.Birthday, c.AdditionalInfo, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM contacts WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

func (r *ContactRepository) Search(ctx context.Context, userID int64, query string) ([]entity.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1
		  AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		ORDER BY id
	`, userID, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

// UpcomingBirthdays matches on month and day so the year of birth is
// irrelevant; the window may wrap across New Year.
func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, userID int64, days int) ([]entity.Contact, error) {
	now := time.Now()
	start := now.Format("0102")
	end := now.AddDate(0, 0, days).Format("0102")

	cond := `to_char(birthday, 'MMDD') BETWEEN $2 AND $3`
	if start > end {
		cond = `(to_char(birthday, 'MMDD') >= $2 OR to_char(birthday, 'MMDD') <= $3)`
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE user_id = $1 AND `+cond+`
		ORDER BY to_char(birthday, 'MMDD')
	`, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContacts(rows)
}

func scanContact(row pgx.Row, c *entity.Contact) error {
	return row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Birthday, &c.AdditionalInfo, &c.UserID)
}

func collectContacts(rows pgx.Rows) ([]entity.Contact, error) {
	out := make([]entity.Contact, 0)
	for rows.Next() {
		var c entity.Contact
		if err := scanContact(rows, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ repository.ContactRepository = (*ContactRepository)(nil)
