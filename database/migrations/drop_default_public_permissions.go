package migrations

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// The per-creator is_public flag was replaced by all_user_default_permissions.
// Fold existing public defaults into READ entries and drop the old table.
var dropDefaultPublicPermissions = Migration{
	Index: 3,
	Name:  "drop_default_public_permissions",
	Run: func(ctx context.Context, tx pgx.Tx) (bool, error) {
		exists, err := tableExists(ctx, tx, "default_public_permissions")
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO all_user_default_permissions (creator_id, permissions)
			SELECT creator_id, 'READ'
			FROM default_public_permissions
			WHERE is_public
			ON CONFLICT (creator_id) DO NOTHING`)
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx, `DROP TABLE default_public_permissions`); err != nil {
			return false, err
		}
		return true, nil
	},
}
