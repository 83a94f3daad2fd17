package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"labtrack/users"
)

const selectUserQuery = `
	SELECT id, COALESCE(name, ''), COALESCE(email, ''), type, fed_id, component_id
	FROM users
	WHERE id = $1`

// UsersTable persists users. It implements users.Store.
type UsersTable struct {
	db *Database
}

func NewUsersTable(db *Database) *UsersTable {
	return &UsersTable{db: db}
}

func (t *UsersTable) GetUser(ctx context.Context, userID int64) (*users.User, error) {
	var user users.User
	var userType string
	err := t.db.Pool.QueryRow(ctx, selectUserQuery, userID).
		Scan(&user.ID, &user.Name, &user.Email, &userType, &user.FedID, &user.ComponentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.Type = users.UserType(userType)
	return &user, nil
}
