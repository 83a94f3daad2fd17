// Package objects implements versioned generic object storage.
//
// An object is a typed document: its data conforms to the schema of the
// action it was created with. Every change appends an immutable version,
// numbered 0..N without gaps. The actual persistence is delegated to a
// relational store; this package adds the logic around it, e.g. audit
// logging, initial permissions and sample reference tracking.
package objects

import (
	"fmt"
	"time"

	"labtrack/schemas"
)

// Object is a single version of a versioned, schema-typed document.
type Object struct {
	ObjectID    int64
	VersionID   int64
	ActionID    int64
	Data        map[string]any
	Schema      *schemas.Schema
	UserID      int64
	UTCDatetime time.Time
}

// ObjectDoesNotExistError is returned when an object id resolves to nothing.
type ObjectDoesNotExistError struct {
	ObjectID int64
}

func (e ObjectDoesNotExistError) Error() string {
	return fmt.Sprintf("object %d does not exist", e.ObjectID)
}

// ObjectVersionDoesNotExistError is returned when the object exists but the
// requested version does not.
type ObjectVersionDoesNotExistError struct {
	ObjectID  int64
	VersionID int64
}

func (e ObjectVersionDoesNotExistError) Error() string {
	return fmt.Sprintf("object %d has no version %d", e.ObjectID, e.VersionID)
}
