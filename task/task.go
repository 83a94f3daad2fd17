// Package task runs background tasks from a database-backed queue. A task
// is a typed job record; handlers are registered per type and report success
// as a boolean, with errors reserved for faults.
package task

import (
	"context"
	"time"
)

// Status is the lifecycle state of a background task.
type Status string

const (
	StatusPosed   Status = "POSED"
	StatusClaimed Status = "CLAIMED"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// BackgroundTask is one queued job record.
type BackgroundTask struct {
	ID             int64
	Type           string
	AutoDelete     bool
	Data           map[string]any
	Status         Status
	ExpirationDate *time.Time
}

// Handler processes one task. The boolean reports whether the task
// succeeded; a non-nil error is a fault and is logged by the broker. Both
// lead to a FAILED task.
type Handler func(ctx context.Context, data map[string]any) (bool, error)

// Store is the persistence contract for the task queue.
type Store interface {
	InsertTask(ctx context.Context, task *BackgroundTask) (int64, error)
	// ClaimNextTask atomically moves one POSED task to CLAIMED and returns
	// it, or nil when no task is waiting.
	ClaimNextTask(ctx context.Context) (*BackgroundTask, error)
	SetTaskStatus(ctx context.Context, taskID int64, status Status, expirationDate *time.Time) error
	DeleteTask(ctx context.Context, taskID int64) error
	// DeleteExpiredTasks removes finished tasks past their expiration date
	// and returns how many were removed.
	DeleteExpiredTasks(ctx context.Context) (int64, error)
}
