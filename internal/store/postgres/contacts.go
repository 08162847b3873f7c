package postgres

import (
	"context"

	"github.com/lumacrm/api/internal/store"
)

type contactStore struct {
	db DBTX
}

const findContactByEmail = `
SELECT id, first_name, last_name, email, phone, created_at, updated_at
FROM contacts
WHERE lower(email) = lower($1)
`

func (s *contactStore) FindByEmail(ctx context.Context, email string) (store.Contact, error) {
	row := s.db.QueryRow(ctx, findContactByEmail, email)
	return scanContact(row)
}

const createContact = `
INSERT INTO contacts (first_name, last_name, email, phone)
VALUES ($1, $2, $3, $4)
RETURNING id, first_name, last_name, email, phone, created_at, updated_at
`

func (s *contactStore) Create(ctx context.Context, params store.CreateContactParams) (store.Contact, error) {
	row := s.db.QueryRow(ctx, createContact, params.FirstName, params.LastName, params.Email, params.Phone)
	return scanContact(row)
}

func scanContact(row rowScanner) (store.Contact, error) {
	var contact store.Contact
	err := row.Scan(
		&contact.ID,
		&contact.FirstName,
		&contact.LastName,
		&contact.Email,
		&contact.Phone,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		return store.Contact{}, translateErr(err)
	}
	return contact, nil
}
