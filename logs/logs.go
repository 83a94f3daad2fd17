// Package logs provides the append-only object and user audit logs. Entries
// are an audit trail, not a consistency-critical index: writers treat them as
// best effort and never read them back for decisions.
package logs

import (
	"context"
	"fmt"
	"time"
)

// Object log entry types.
const (
	ObjectLogCreateObject           = "CREATE_OBJECT"
	ObjectLogEditObject             = "EDIT_OBJECT"
	ObjectLogRestoreObjectVersion   = "RESTORE_OBJECT_VERSION"
	ObjectLogUseObjectInMeasurement = "USE_OBJECT_IN_MEASUREMENT"
)

// User log entry types.
const (
	UserLogCreateObject         = "CREATE_OBJECT"
	UserLogEditObject           = "EDIT_OBJECT"
	UserLogRestoreObjectVersion = "RESTORE_OBJECT_VERSION"
)

// ObjectLogEntry is one event in an object's history.
type ObjectLogEntry struct {
	ID          int64
	Type        string
	ObjectID    int64
	UserID      int64
	Data        map[string]any
	UTCDatetime time.Time
}

// UserLogEntry is one event in a user's activity log.
type UserLogEntry struct {
	ID          int64
	Type        string
	UserID      int64
	Data        map[string]any
	UTCDatetime time.Time
}

// Store is the persistence contract for both logs.
type Store interface {
	AppendObjectLogEntry(ctx context.Context, entry *ObjectLogEntry) error
	AppendUserLogEntry(ctx context.Context, entry *UserLogEntry) error
}

// ObjectLog appends events to per-object histories.
type ObjectLog struct {
	store Store
}

func NewObjectLog(store Store) *ObjectLog {
	return &ObjectLog{store: store}
}

func (l *ObjectLog) append(ctx context.Context, entryType string, objectID, userID int64, data map[string]any) error {
	err := l.store.AppendObjectLogEntry(ctx, &ObjectLogEntry{
		Type:        entryType,
		ObjectID:    objectID,
		UserID:      userID,
		Data:        data,
		UTCDatetime: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append %s to object log %d: %w", entryType, objectID, err)
	}
	return nil
}

func (l *ObjectLog) CreateObject(ctx context.Context, objectID, userID int64) error {
	return l.append(ctx, ObjectLogCreateObject, objectID, userID, nil)
}

func (l *ObjectLog) EditObject(ctx context.Context, objectID, userID, versionID int64) error {
	return l.append(ctx, ObjectLogEditObject, objectID, userID, map[string]any{
		"version_id": versionID,
	})
}

func (l *ObjectLog) RestoreObjectVersion(ctx context.Context, objectID, userID, restoredVersionID, versionID int64) error {
	return l.append(ctx, ObjectLogRestoreObjectVersion, objectID, userID, map[string]any{
		"restored_version_id": restoredVersionID,
		"version_id":          versionID,
	})
}

// UseObjectInMeasurement records on the referenced object's log that a
// measurement now references it.
func (l *ObjectLog) UseObjectInMeasurement(ctx context.Context, objectID, userID, measurementID int64) error {
	return l.append(ctx, ObjectLogUseObjectInMeasurement, objectID, userID, map[string]any{
		"measurement_id": measurementID,
	})
}

// UserLog appends events to per-user activity logs.
type UserLog struct {
	store Store
}

func NewUserLog(store Store) *UserLog {
	return &UserLog{store: store}
}

func (l *UserLog) append(ctx context.Context, entryType string, userID int64, data map[string]any) error {
	err := l.store.AppendUserLogEntry(ctx, &UserLogEntry{
		Type:        entryType,
		UserID:      userID,
		Data:        data,
		UTCDatetime: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append %s to user log %d: %w", entryType, userID, err)
	}
	return nil
}

func (l *UserLog) CreateObject(ctx context.Context, userID, objectID int64) error {
	return l.append(ctx, UserLogCreateObject, userID, map[string]any{
		"object_id": objectID,
	})
}

func (l *UserLog) EditObject(ctx context.Context, userID, objectID, versionID int64) error {
	return l.append(ctx, UserLogEditObject, userID, map[string]any{
		"object_id":  objectID,
		"version_id": versionID,
	})
}

func (l *UserLog) RestoreObjectVersion(ctx context.Context, userID, objectID, restoredVersionID, versionID int64) error {
	return l.append(ctx, UserLogRestoreObjectVersion, userID, map[string]any{
		"object_id":           objectID,
		"restored_version_id": restoredVersionID,
		"version_id":          versionID,
	})
}
