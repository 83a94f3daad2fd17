package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"labtrack/permissions"
)

const (
	upsertUserObjectPermissionsQuery = `
		INSERT INTO user_object_permissions (object_id, user_id, permissions)
		VALUES ($1, $2, $3)
		ON CONFLICT (object_id, user_id)
		DO UPDATE SET permissions = EXCLUDED.permissions`

	selectAllUserDefaultPermissionsQuery = `
		SELECT permissions
		FROM all_user_default_permissions
		WHERE creator_id = $1`

	upsertAllUserObjectPermissionsQuery = `
		INSERT INTO all_user_object_permissions (object_id, permissions)
		VALUES ($1, $2)
		ON CONFLICT (object_id)
		DO UPDATE SET permissions = EXCLUDED.permissions`
)

// PermissionsTable persists object permissions. It implements
// permissions.Store.
type PermissionsTable struct {
	db *Database
}

func NewPermissionsTable(db *Database) *PermissionsTable {
	return &PermissionsTable{db: db}
}

func (t *PermissionsTable) SetUserObjectPermissions(ctx context.Context, objectID, userID int64, permission permissions.Permission) error {
	_, err := t.db.Pool.Exec(ctx, upsertUserObjectPermissionsQuery, objectID, userID, permission.String())
	return err
}

func (t *PermissionsTable) GetAllUserDefaultPermissions(ctx context.Context, creatorID int64) (permissions.Permission, error) {
	var level string
	err := t.db.Pool.QueryRow(ctx, selectAllUserDefaultPermissionsQuery, creatorID).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return permissions.None, nil
	}
	if err != nil {
		return permissions.None, err
	}
	return permissions.ParsePermission(level)
}

func (t *PermissionsTable) SetAllUserObjectPermissions(ctx context.Context, objectID int64, permission permissions.Permission) error {
	_, err := t.db.Pool.Exec(ctx, upsertAllUserObjectPermissionsQuery, objectID, permission.String())
	return err
}
