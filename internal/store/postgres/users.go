package postgres

import (
	"context"

	"github.com/lumacrm/api/internal/store"
)

type userStore struct {
	db DBTX
}

const getUserByEmail = `
SELECT id, email, full_name, created_at
FROM users
WHERE lower(email) = lower($1)
`

func (s *userStore) GetByEmail(ctx context.Context, email string) (store.User, error) {
	row := s.db.QueryRow(ctx, getUserByEmail, email)
	var user store.User
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &user.CreatedAt); err != nil {
		return store.User{}, translateErr(err)
	}
	return user, nil
}
