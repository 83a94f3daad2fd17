package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"labtrack/actions"
)

const (
	selectActionQuery = `
		SELECT id, type, name, description, schema
		FROM actions
		WHERE id = $1`

	insertActionQuery = `
		INSERT INTO actions (type, name, description, schema)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	updateActionQuery = `
		UPDATE actions
		SET type = $2, name = $3, description = $4, schema = $5
		WHERE id = $1`
)

// ActionsTable persists actions. It implements actions.Store.
type ActionsTable struct {
	db *Database
}

func NewActionsTable(db *Database) *ActionsTable {
	return &ActionsTable{db: db}
}

func (t *ActionsTable) GetAction(ctx context.Context, actionID int64) (*actions.Action, error) {
	var action actions.Action
	var actionType string
	var schemaJSON []byte
	err := t.db.Pool.QueryRow(ctx, selectActionQuery, actionID).
		Scan(&action.ID, &actionType, &action.Name, &action.Description, &schemaJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	action.Type = actions.ActionType(actionType)
	if err := json.Unmarshal(schemaJSON, &action.Schema); err != nil {
		return nil, fmt.Errorf("unmarshal schema of action %d: %w", actionID, err)
	}
	return &action, nil
}

func (t *ActionsTable) CreateAction(ctx context.Context, action *actions.Action) (int64, error) {
	schemaJSON, err := json.Marshal(action.Schema)
	if err != nil {
		return 0, fmt.Errorf("marshal action schema: %w", err)
	}
	var id int64
	err = t.db.Pool.QueryRow(ctx, insertActionQuery,
		string(action.Type), action.Name, action.Description, schemaJSON).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *ActionsTable) UpdateAction(ctx context.Context, action *actions.Action) (bool, error) {
	schemaJSON, err := json.Marshal(action.Schema)
	if err != nil {
		return false, fmt.Errorf("marshal action schema: %w", err)
	}
	tag, err := t.db.Pool.Exec(ctx, updateActionQuery,
		action.ID, string(action.Type), action.Name, action.Description, schemaJSON)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
