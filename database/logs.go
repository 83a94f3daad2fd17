package database

import (
	"context"
	"encoding/json"
	"fmt"

	"labtrack/logs"
)

const (
	insertObjectLogEntryQuery = `
		INSERT INTO object_log_entries (type, object_id, user_id, data, utc_datetime)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	insertUserLogEntryQuery = `
		INSERT INTO user_log_entries (type, user_id, data, utc_datetime)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
)

// LogsTable persists object and user log entries. It implements logs.Store.
type LogsTable struct {
	db *Database
}

func NewLogsTable(db *Database) *LogsTable {
	return &LogsTable{db: db}
}

func (t *LogsTable) AppendObjectLogEntry(ctx context.Context, entry *logs.ObjectLogEntry) error {
	dataJSON, err := encodeLogData(entry.Data)
	if err != nil {
		return err
	}
	return t.db.Pool.QueryRow(ctx, insertObjectLogEntryQuery,
		entry.Type, entry.ObjectID, entry.UserID, dataJSON, entry.UTCDatetime).Scan(&entry.ID)
}

func (t *LogsTable) AppendUserLogEntry(ctx context.Context, entry *logs.UserLogEntry) error {
	dataJSON, err := encodeLogData(entry.Data)
	if err != nil {
		return err
	}
	return t.db.Pool.QueryRow(ctx, insertUserLogEntryQuery,
		entry.Type, entry.UserID, dataJSON, entry.UTCDatetime).Scan(&entry.ID)
}

func encodeLogData(data map[string]any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal log entry data: %w", err)
	}
	return dataJSON, nil
}
