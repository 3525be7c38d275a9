package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/contactbox/internal/apperrors"
	"github.com/nkiryanov/contactbox/internal/models"
	"github.com/nkiryanov/contactbox/internal/repository"
)

type ContactRepo struct {
	DB DBTX
}

const contactColumns = `id, user_id, first_name, last_name, email, phone, birthday, additional_info, created_at, updated_at`

const createContact = `-- name: CreateContact
INSERT INTO contacts (id, user_id, first_name, last_name, email, phone, birthday, additional_info)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + contactColumns

func (r *ContactRepo) Create(ctx context.Context, contact models.Contact) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, createContact,
		uuid.New(),
		contact.UserID,
		contact.FirstName,
		contact.LastName,
		contact.Email,
		contact.Phone,
		contact.Birthday,
		nullIfEmpty(contact.AdditionalInfo),
	)
	created, err := pgx.CollectOneRow(rows, rowToContact)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return created, apperrors.ErrContactAlreadyExists
		}

		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const listContacts = `-- name: ListContacts
SELECT ` + contactColumns + ` FROM contacts
WHERE user_id = $1
ORDER BY created_at, id
LIMIT $2 OFFSET $3
`

func (r *ContactRepo) List(ctx context.Context, userID uuid.UUID, limit int, offset int) ([]models.Contact, error) {
	rows, _ := r.DB.Query(ctx, listContacts, userID, limit, offset)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return contacts, nil
}

const getContact = `-- name: GetContact
SELECT ` + contactColumns + ` FROM contacts
WHERE user_id = $1 AND id = $2
`

func (r *ContactRepo) Get(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, getContact, userID, contactID)
	return collectContact(rows)
}

const updateContact = `-- name: UpdateContact
UPDATE contacts
SET first_name      = COALESCE($3, first_name),
    last_name       = COALESCE($4, last_name),
    email           = COALESCE($5, email),
    phone           = COALESCE($6, phone),
    birthday        = COALESCE($7, birthday),
    additional_info = COALESCE($8, additional_info),
    updated_at      = now()
WHERE user_id = $1 AND id = $2
RETURNING ` + contactColumns

// Partial update: nil fields keep their current value
func (r *ContactRepo) Update(ctx context.Context, userID uuid.UUID, contactID uuid.UUID, upd repository.UpdateContact) (models.Contact, error) {
	rows, _ := r.DB.Query(ctx, updateContact, userID, contactID,
		upd.FirstName,
		upd.LastName,
		upd.Email,
		upd.Phone,
		upd.Birthday,
		upd.AdditionalInfo,
	)
	contact, err := pgx.CollectOneRow(rows, rowToContact)

	var pgErr *pgconn.PgError

	switch {
	case err == nil:
		return contact, nil
	case errors.Is(err, pgx.ErrNoRows):
		return contact, apperrors.ErrContactNotFound
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation:
		return contact, apperrors.ErrContactAlreadyExists
	default:
		return contact, fmt.Errorf("db error: %w", err)
	}
}

const deleteContact = `-- name: DeleteContact
DELETE FROM contacts
WHERE user_id = $1 AND id = $2
`

func (r *ContactRepo) Delete(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteContact, userID, contactID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrContactNotFound
	}
	return nil
}

const searchContacts = `-- name: SearchContacts
SELECT ` + contactColumns + ` FROM contacts
WHERE user_id = $1
  AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
ORDER BY created_at, id
LIMIT $3 OFFSET $4
`

func (r *ContactRepo) Search(ctx context.Context, userID uuid.UUID, query string, limit int, offset int) ([]models.Contact, error) {
	if query == "" {
		return []models.Contact{}, nil
	}

	rows, _ := r.DB.Query(ctx, searchContacts, userID, "%"+query+"%", limit, offset)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return contacts, nil
}

// Birthday in the current year; if it already passed the next one is a year away
const upcomingBirthdays = `-- name: UpcomingBirthdays
SELECT ` + contactColumns + ` FROM (
    SELECT c.*,
           CASE
               WHEN bd.this_year < current_date THEN bd.this_year + interval '1 year'
               ELSE bd.this_year
           END AS next_birthday
    FROM contacts c,
         LATERAL (
             SELECT make_date(
                 extract(year FROM current_date)::int,
                 extract(month FROM c.birthday)::int,
                 extract(day FROM c.birthday)::int
             ) AS this_year
         ) bd
    WHERE c.user_id = $1
) sub
WHERE next_birthday BETWEEN current_date AND current_date + make_interval(days => $2)
ORDER BY next_birthday, last_name, first_name
`

func (r *ContactRepo) UpcomingBirthdays(ctx context.Context, userID uuid.UUID, days int) ([]models.Contact, error) {
	rows, _ := r.DB.Query(ctx, upcomingBirthdays, userID, days)
	contacts, err := pgx.CollectRows(rows, rowToContact)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return contacts, nil
}

func collectContact(rows pgx.Rows) (models.Contact, error) {
	contact, err := pgx.CollectOneRow(rows, rowToContact)

	switch {
	case err == nil:
		return contact, nil
	case errors.Is(err, pgx.ErrNoRows):
		return contact, apperrors.ErrContactNotFound
	default:
		return contact, fmt.Errorf("db error: %w", err)
	}
}

func rowToContact(row pgx.CollectableRow) (models.Contact, error) {
	var c models.Contact
	var info *string

	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Birthday, &info, &c.CreatedAt, &c.UpdatedAt)
	if info != nil {
		c.AdditionalInfo = *info
	}
	return c, err
}
