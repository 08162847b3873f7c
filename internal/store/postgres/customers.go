package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumacrm/api/internal/store"
)

type customerStore struct {
	db DBTX
}

const getCustomerByID = `
SELECT id, name, email, created_at, updated_at
FROM customers
WHERE id = $1
`

func (s *customerStore) GetByID(ctx context.Context, id uuid.UUID) (store.Customer, error) {
	return s.scanOne(s.db.QueryRow(ctx, getCustomerByID, id))
}

const findCustomerByEmail = `
SELECT id, name, email, created_at, updated_at
FROM customers
WHERE lower(email) = lower($1)
`

func (s *customerStore) FindByEmail(ctx context.Context, email string) (store.Customer, error) {
	return s.scanOne(s.db.QueryRow(ctx, findCustomerByEmail, email))
}

const findFirstCustomerByName = `
SELECT id, name, email, created_at, updated_at
FROM customers
WHERE lower(name) = lower($1)
ORDER BY created_at
LIMIT 1
`

func (s *customerStore) FindFirstByName(ctx context.Context, name string) (store.Customer, error) {
	return s.scanOne(s.db.QueryRow(ctx, findFirstCustomerByName, name))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *customerStore) scanOne(row rowScanner) (store.Customer, error) {
	var customer store.Customer
	if err := row.Scan(&customer.ID, &customer.Name, &customer.Email, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
		return store.Customer{}, translateErr(err)
	}
	return customer, nil
}
