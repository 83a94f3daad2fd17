package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"labtrack/federation"
)

const (
	selectComponentQuery = `
		SELECT id, uuid, COALESCE(name, ''), COALESCE(address, '')
		FROM components
		WHERE id = $1`

	selectObjectShareQuery = `
		SELECT object_id, component_id, policy, utc_datetime
		FROM object_shares
		WHERE object_id = $1 AND component_id = $2`

	insertObjectShareQuery = `
		INSERT INTO object_shares (object_id, component_id, policy, utc_datetime)
		VALUES ($1, $2, $3, $4)`

	updateObjectSharePolicyQuery = `
		UPDATE object_shares
		SET policy = $3
		WHERE object_id = $1 AND component_id = $2`

	selectObjectSharesQuery = `
		SELECT object_id, component_id, policy, utc_datetime
		FROM object_shares
		WHERE object_id = $1
		ORDER BY utc_datetime DESC`
)

// FederationTable persists components and object shares. It implements
// federation.Store.
type FederationTable struct {
	db *Database
}

func NewFederationTable(db *Database) *FederationTable {
	return &FederationTable{db: db}
}

func (t *FederationTable) GetComponent(ctx context.Context, componentID int64) (*federation.Component, error) {
	var component federation.Component
	err := t.db.Pool.QueryRow(ctx, selectComponentQuery, componentID).
		Scan(&component.ID, &component.UUID, &component.Name, &component.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &component, nil
}

func (t *FederationTable) GetObjectShare(ctx context.Context, objectID, componentID int64) (*federation.ObjectShare, error) {
	return scanObjectShare(t.db.Pool.QueryRow(ctx, selectObjectShareQuery, objectID, componentID))
}

func (t *FederationTable) InsertObjectShare(ctx context.Context, share *federation.ObjectShare) error {
	policyJSON, err := json.Marshal(share.Policy)
	if err != nil {
		return fmt.Errorf("marshal share policy: %w", err)
	}
	_, err = t.db.Pool.Exec(ctx, insertObjectShareQuery,
		share.ObjectID, share.ComponentID, policyJSON, share.UTCDatetime)
	return err
}

func (t *FederationTable) UpdateObjectSharePolicy(ctx context.Context, objectID, componentID int64, policy federation.SharePolicy) (bool, error) {
	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return false, fmt.Errorf("marshal share policy: %w", err)
	}
	tag, err := t.db.Pool.Exec(ctx, updateObjectSharePolicyQuery, objectID, componentID, policyJSON)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *FederationTable) GetObjectShares(ctx context.Context, objectID int64) ([]*federation.ObjectShare, error) {
	rows, err := t.db.Pool.Query(ctx, selectObjectSharesQuery, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shares []*federation.ObjectShare
	for rows.Next() {
		share, err := scanObjectShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shares, nil
}

func scanObjectShare(row pgx.Row) (*federation.ObjectShare, error) {
	var share federation.ObjectShare
	var policyJSON []byte
	err := row.Scan(&share.ObjectID, &share.ComponentID, &policyJSON, &share.UTCDatetime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(policyJSON, &share.Policy); err != nil {
		return nil, fmt.Errorf("unmarshal policy of object %d share: %w", share.ObjectID, err)
	}
	return &share, nil
}
