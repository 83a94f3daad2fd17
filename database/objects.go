package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"labtrack/actions"
	"labtrack/objects"
	"labtrack/schemas"
)

const (
	insertObjectQuery = `
		INSERT INTO objects (action_id)
		VALUES ($1)
		RETURNING object_id`

	// The (object_id, version_id) primary key makes the version counter
	// race-free: two concurrent writers computing the same next version
	// produce a duplicate-key error that is handed back to the caller.
	insertObjectVersionQuery = `
		INSERT INTO object_versions (object_id, version_id, data, schema, user_id)
		SELECT $1, COALESCE(MAX(version_id) + 1, 0), $2, $3, $4
		FROM object_versions
		WHERE object_id = $1
		RETURNING version_id, utc_datetime`

	updateCurrentVersionQuery = `
		UPDATE objects
		SET current_version_id = $2, updated_at = NOW()
		WHERE object_id = $1`

	selectObjectActionQuery = `
		SELECT action_id
		FROM objects
		WHERE object_id = $1`

	selectObjectVersionColumns = `
		SELECT v.object_id, v.version_id, o.action_id, v.data, v.schema, v.user_id, v.utc_datetime
		FROM object_versions v
		JOIN objects o ON o.object_id = v.object_id`

	selectCurrentObjectQuery = selectObjectVersionColumns + `
		WHERE v.object_id = $1 AND v.version_id = o.current_version_id`

	selectObjectVersionQuery = selectObjectVersionColumns + `
		WHERE v.object_id = $1 AND v.version_id = $2`

	selectObjectVersionsQuery = selectObjectVersionColumns + `
		WHERE v.object_id = $1
		ORDER BY v.version_id`
)

// ObjectsTable persists object versions. It implements objects.Store.
type ObjectsTable struct {
	db *Database
}

func NewObjectsTable(db *Database) *ObjectsTable {
	return &ObjectsTable{db: db}
}

func (t *ObjectsTable) CreateObject(ctx context.Context, actionID int64, data map[string]any, schema *schemas.Schema, userID int64) (object *objects.Object, err error) {
	dataJSON, schemaJSON, err := encodeVersion(data, schema)
	if err != nil {
		return nil, err
	}

	tx, err := t.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollbackOrCommit(ctx, tx, &err)

	var objectID int64
	if err = tx.QueryRow(ctx, insertObjectQuery, actionID).Scan(&objectID); err != nil {
		return nil, err
	}

	var versionID int64
	var utcDatetime time.Time
	err = tx.QueryRow(ctx, insertObjectVersionQuery, objectID, dataJSON, schemaJSON, userID).
		Scan(&versionID, &utcDatetime)
	if err != nil {
		return nil, err
	}

	return &objects.Object{
		ObjectID:    objectID,
		VersionID:   versionID,
		ActionID:    actionID,
		Data:        data,
		Schema:      schema,
		UserID:      userID,
		UTCDatetime: utcDatetime,
	}, nil
}

func (t *ObjectsTable) UpdateObject(ctx context.Context, objectID int64, data map[string]any, schema *schemas.Schema, userID int64) (object *objects.Object, err error) {
	dataJSON, schemaJSON, err := encodeVersion(data, schema)
	if err != nil {
		return nil, err
	}

	tx, err := t.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer rollbackOrCommit(ctx, tx, &err)

	var actionID int64
	err = tx.QueryRow(ctx, selectObjectActionQuery, objectID).Scan(&actionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select object %d: %w", objectID, err)
	}

	var versionID int64
	var utcDatetime time.Time
	err = tx.QueryRow(ctx, insertObjectVersionQuery, objectID, dataJSON, schemaJSON, userID).
		Scan(&versionID, &utcDatetime)
	if err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx, updateCurrentVersionQuery, objectID, versionID); err != nil {
		return nil, fmt.Errorf("update current version of object %d: %w", objectID, err)
	}

	return &objects.Object{
		ObjectID:    objectID,
		VersionID:   versionID,
		ActionID:    actionID,
		Data:        data,
		Schema:      schema,
		UserID:      userID,
		UTCDatetime: utcDatetime,
	}, nil
}

func (t *ObjectsTable) GetCurrentObject(ctx context.Context, objectID int64) (*objects.Object, error) {
	return scanObject(t.db.Pool.QueryRow(ctx, selectCurrentObjectQuery, objectID))
}

func (t *ObjectsTable) GetObjectVersion(ctx context.Context, objectID, versionID int64) (*objects.Object, error) {
	return scanObject(t.db.Pool.QueryRow(ctx, selectObjectVersionQuery, objectID, versionID))
}

func (t *ObjectsTable) GetObjectVersions(ctx context.Context, objectID int64) ([]*objects.Object, error) {
	rows, err := t.db.Pool.Query(ctx, selectObjectVersionsQuery, objectID)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

func (t *ObjectsTable) GetCurrentObjects(ctx context.Context, actionID *int64, actionType *actions.ActionType) ([]*objects.Object, error) {
	query := selectObjectVersionColumns + `
		WHERE v.version_id = o.current_version_id`
	var args []any
	if actionID != nil {
		args = append(args, *actionID)
		query += ` AND o.action_id = $` + strconv.Itoa(len(args))
	}
	if actionType != nil {
		args = append(args, string(*actionType))
		query += ` AND o.action_id IN (SELECT id FROM actions WHERE type = $` + strconv.Itoa(len(args)) + `)`
	}
	query += ` ORDER BY v.object_id`

	rows, err := t.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectObjects(rows)
}

func encodeVersion(data map[string]any, schema *schemas.Schema) ([]byte, []byte, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal object data: %w", err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal object schema: %w", err)
	}
	return dataJSON, schemaJSON, nil
}

func scanObject(row pgx.Row) (*objects.Object, error) {
	var object objects.Object
	var dataJSON, schemaJSON []byte
	err := row.Scan(&object.ObjectID, &object.VersionID, &object.ActionID, &dataJSON, &schemaJSON, &object.UserID, &object.UTCDatetime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dataJSON, &object.Data); err != nil {
		return nil, fmt.Errorf("unmarshal data of object %d: %w", object.ObjectID, err)
	}
	if err := json.Unmarshal(schemaJSON, &object.Schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema of object %d: %w", object.ObjectID, err)
	}
	return &object, nil
}

func collectObjects(rows pgx.Rows) ([]*objects.Object, error) {
	defer rows.Close()
	var result []*objects.Object
	for rows.Next() {
		object, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, object)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
