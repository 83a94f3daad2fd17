package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Older databases created the users table without the combined NOT NULL
// check, allowing federation users with neither name nor email. Rebuild the
// constraint so only imported federation users may leave those unset.
var usersUpdateNotNullConstraints = Migration{
	Index: 1,
	Name:  "users_update_not_null_constraints",
	Run: func(ctx context.Context, tx pgx.Tx) (bool, error) {
		exists, err := constraintExists(ctx, tx, "users_not_null_check")
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
		_, err = tx.Exec(ctx, `
			ALTER TABLE users
			ADD CONSTRAINT users_not_null_check CHECK (
				type = 'FEDERATION_USER' OR (
					name IS NOT NULL AND email IS NOT NULL
				)
			)`)
		if err != nil {
			return false, err
		}
		return true, nil
	},
}
