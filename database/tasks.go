package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"labtrack/task"
)

const (
	insertTaskQuery = `
		INSERT INTO background_tasks (type, auto_delete, data, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	// SKIP LOCKED lets concurrent workers claim different tasks without
	// blocking each other.
	claimNextTaskQuery = `
		UPDATE background_tasks
		SET status = 'CLAIMED'
		WHERE id = (
			SELECT id
			FROM background_tasks
			WHERE status = 'POSED'
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, type, auto_delete, data`

	setTaskStatusQuery = `
		UPDATE background_tasks
		SET status = $2, expiration_date = $3
		WHERE id = $1`

	deleteTaskQuery = `
		DELETE FROM background_tasks
		WHERE id = $1`

	deleteExpiredTasksQuery = `
		DELETE FROM background_tasks
		WHERE expiration_date IS NOT NULL AND expiration_date < NOW()`
)

// TasksTable persists the background task queue. It implements task.Store.
type TasksTable struct {
	db *Database
}

func NewTasksTable(db *Database) *TasksTable {
	return &TasksTable{db: db}
}

func (t *TasksTable) InsertTask(ctx context.Context, backgroundTask *task.BackgroundTask) (int64, error) {
	dataJSON, err := json.Marshal(backgroundTask.Data)
	if err != nil {
		return 0, fmt.Errorf("marshal task data: %w", err)
	}
	var id int64
	err = t.db.Pool.QueryRow(ctx, insertTaskQuery,
		backgroundTask.Type, backgroundTask.AutoDelete, dataJSON, string(backgroundTask.Status)).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *TasksTable) ClaimNextTask(ctx context.Context) (*task.BackgroundTask, error) {
	var claimed task.BackgroundTask
	var dataJSON []byte
	err := t.db.Pool.QueryRow(ctx, claimNextTaskQuery).
		Scan(&claimed.ID, &claimed.Type, &claimed.AutoDelete, &dataJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	claimed.Status = task.StatusClaimed
	if err := json.Unmarshal(dataJSON, &claimed.Data); err != nil {
		return nil, fmt.Errorf("unmarshal data of task %d: %w", claimed.ID, err)
	}
	return &claimed, nil
}

func (t *TasksTable) SetTaskStatus(ctx context.Context, taskID int64, status task.Status, expirationDate *time.Time) error {
	_, err := t.db.Pool.Exec(ctx, setTaskStatusQuery, taskID, string(status), expirationDate)
	return err
}

func (t *TasksTable) DeleteTask(ctx context.Context, taskID int64) error {
	_, err := t.db.Pool.Exec(ctx, deleteTaskQuery, taskID)
	return err
}

func (t *TasksTable) DeleteExpiredTasks(ctx context.Context) (int64, error) {
	tag, err := t.db.Pool.Exec(ctx, deleteExpiredTasksQuery)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
