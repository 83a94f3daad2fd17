package objects

import (
	"context"
	"fmt"

	"labtrack/actions"
	"labtrack/schemas"
	"labtrack/users"
)

// Store is the persistence contract for object versions. Version numbering
// must be race-free under concurrent writes to the same object; the Postgres
// implementation relies on the (object_id, version_id) primary key and lets
// duplicate-key races surface to the caller.
type Store interface {
	// CreateObject persists version 0 of a new object.
	CreateObject(ctx context.Context, actionID int64, data map[string]any, schema *schemas.Schema, userID int64) (*Object, error)
	// UpdateObject persists a new top version. It returns nil, nil when no
	// object with the given id exists.
	UpdateObject(ctx context.Context, objectID int64, data map[string]any, schema *schemas.Schema, userID int64) (*Object, error)
	// GetCurrentObject returns the version with the highest version id, or
	// nil when no object with the given id exists.
	GetCurrentObject(ctx context.Context, objectID int64) (*Object, error)
	// GetObjectVersion returns a specific version, or nil when absent.
	GetObjectVersion(ctx context.Context, objectID, versionID int64) (*Object, error)
	// GetObjectVersions returns all versions, oldest to newest.
	GetObjectVersions(ctx context.Context, objectID int64) ([]*Object, error)
	// GetCurrentObjects returns the current version of every object,
	// optionally restricted by action id and/or action type.
	GetCurrentObjects(ctx context.Context, actionID *int64, actionType *actions.ActionType) ([]*Object, error)
}

// ActionResolver provides the action an object was created with.
type ActionResolver interface {
	GetAction(ctx context.Context, actionID int64) (*actions.Action, error)
}

// UserResolver checks that acting users exist.
type UserResolver interface {
	GetUser(ctx context.Context, userID int64) (*users.User, error)
}

// ObjectLog is the per-object audit sink.
type ObjectLog interface {
	CreateObject(ctx context.Context, objectID, userID int64) error
	EditObject(ctx context.Context, objectID, userID, versionID int64) error
	RestoreObjectVersion(ctx context.Context, objectID, userID, restoredVersionID, versionID int64) error
	UseObjectInMeasurement(ctx context.Context, objectID, userID, measurementID int64) error
}

// UserLog is the per-user audit sink.
type UserLog interface {
	CreateObject(ctx context.Context, userID, objectID int64) error
	EditObject(ctx context.Context, userID, objectID, versionID int64) error
	RestoreObjectVersion(ctx context.Context, userID, objectID, restoredVersionID, versionID int64) error
}

// PermissionSetter applies permission defaults to new objects.
type PermissionSetter interface {
	SetInitialPermissions(ctx context.Context, objectID, creatorID int64) error
}

// SchemaSource states where the schema of a new version comes from: either
// resolved from the object's action or passed explicitly (used when
// restoring an old version, which must keep that version's schema).
type SchemaSource struct {
	explicit *schemas.Schema
}

func SchemaFromAction() SchemaSource {
	return SchemaSource{}
}

func ExplicitSchema(schema *schemas.Schema) SchemaSource {
	return SchemaSource{explicit: schema}
}

func (s SchemaSource) resolve(action *actions.Action) *schemas.Schema {
	if s.explicit != nil {
		return s.explicit
	}
	return action.Schema
}

// Service implements the versioned object store with all collaborators
// passed in explicitly.
type Service struct {
	store       Store
	actions     ActionResolver
	users       UserResolver
	objectLog   ObjectLog
	userLog     UserLog
	permissions PermissionSetter
}

func NewService(
	store Store,
	actionResolver ActionResolver,
	userResolver UserResolver,
	objectLog ObjectLog,
	userLog UserLog,
	permissionSetter PermissionSetter,
) *Service {
	return &Service{
		store:       store,
		actions:     actionResolver,
		users:       userResolver,
		objectLog:   objectLog,
		userLog:     userLog,
		permissions: permissionSetter,
	}
}

// CreateObject creates version 0 of a new object using the given action and
// its schema. It also handles logging, object references and initial object
// permissions. Integrity violations from the underlying write, e.g. from a
// concurrent duplicate-key race, are propagated unchanged.
func (s *Service) CreateObject(ctx context.Context, actionID int64, data map[string]any, userID int64) (*Object, error) {
	action, err := s.actions.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	object, err := s.store.CreateObject(ctx, actionID, data, SchemaFromAction().resolve(action), userID)
	if err != nil {
		return nil, err
	}
	if err := s.objectLog.CreateObject(ctx, object.ObjectID, userID); err != nil {
		return nil, err
	}
	if err := s.userLog.CreateObject(ctx, userID, object.ObjectID); err != nil {
		return nil, err
	}
	if err := s.updateReferences(ctx, object, userID); err != nil {
		return nil, err
	}
	if err := s.permissions.SetInitialPermissions(ctx, object.ObjectID, userID); err != nil {
		return nil, err
	}
	return object, nil
}

// UpdateObject appends a new version with the given data and the schema
// resolved from the object's action.
func (s *Service) UpdateObject(ctx context.Context, objectID int64, data map[string]any, userID int64) error {
	current, err := s.store.GetCurrentObject(ctx, objectID)
	if err != nil {
		return fmt.Errorf("get object %d: %w", objectID, err)
	}
	if current == nil {
		return ObjectDoesNotExistError{ObjectID: objectID}
	}
	action, err := s.actions.GetAction(ctx, current.ActionID)
	if err != nil {
		return err
	}
	object, err := s.store.UpdateObject(ctx, objectID, data, SchemaFromAction().resolve(action), userID)
	if err != nil {
		return err
	}
	if object == nil {
		return ObjectDoesNotExistError{ObjectID: objectID}
	}
	if err := s.userLog.EditObject(ctx, userID, object.ObjectID, object.VersionID); err != nil {
		return err
	}
	if err := s.objectLog.EditObject(ctx, object.ObjectID, userID, object.VersionID); err != nil {
		return err
	}
	return s.updateReferences(ctx, object, userID)
}

// RestoreObjectVersion reverts the changes made to an object by appending a
// new top version with the data and schema of the given version, while
// keeping the version history. The version counter never rewinds.
func (s *Service) RestoreObjectVersion(ctx context.Context, objectID, versionID, userID int64) error {
	restored, err := s.GetObjectVersion(ctx, objectID, versionID)
	if err != nil {
		return err
	}
	schema := ExplicitSchema(restored.Schema).resolve(nil)
	object, err := s.store.UpdateObject(ctx, objectID, restored.Data, schema, userID)
	if err != nil {
		return err
	}
	if object == nil {
		return ObjectDoesNotExistError{ObjectID: objectID}
	}
	if err := s.userLog.RestoreObjectVersion(ctx, userID, objectID, versionID, object.VersionID); err != nil {
		return err
	}
	return s.objectLog.RestoreObjectVersion(ctx, objectID, userID, versionID, object.VersionID)
}

// GetObject returns the current version of an object.
func (s *Service) GetObject(ctx context.Context, objectID int64) (*Object, error) {
	object, err := s.store.GetCurrentObject(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get object %d: %w", objectID, err)
	}
	if object == nil {
		return nil, ObjectDoesNotExistError{ObjectID: objectID}
	}
	return object, nil
}

// GetObjectVersion returns a specific version of an object. A missing
// version on an existing object is distinguished from a missing object by a
// secondary lookup of the current version.
func (s *Service) GetObjectVersion(ctx context.Context, objectID, versionID int64) (*Object, error) {
	object, err := s.store.GetObjectVersion(ctx, objectID, versionID)
	if err != nil {
		return nil, fmt.Errorf("get object %d version %d: %w", objectID, versionID, err)
	}
	if object == nil {
		current, err := s.store.GetCurrentObject(ctx, objectID)
		if err != nil {
			return nil, fmt.Errorf("get object %d: %w", objectID, err)
		}
		if current == nil {
			return nil, ObjectDoesNotExistError{ObjectID: objectID}
		}
		return nil, ObjectVersionDoesNotExistError{ObjectID: objectID, VersionID: versionID}
	}
	return object, nil
}

// GetObjectVersions returns all versions of an object, oldest to newest.
func (s *Service) GetObjectVersions(ctx context.Context, objectID int64) ([]*Object, error) {
	versions, err := s.store.GetObjectVersions(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get versions of object %d: %w", objectID, err)
	}
	if len(versions) == 0 {
		return nil, ObjectDoesNotExistError{ObjectID: objectID}
	}
	return versions, nil
}
