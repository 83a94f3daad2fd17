// Package federation tracks which objects are shared with other federated
// components and under which policy.
package federation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"labtrack/permissions"
)

// Component is another instance this one federates with.
type Component struct {
	ID      int64
	UUID    uuid.UUID
	Name    string
	Address string
}

// SharePolicyAccess states which parts of an object a share exposes.
type SharePolicyAccess struct {
	Data   bool `json:"data"`
	Action bool `json:"action"`
	Users  bool `json:"users"`
	Files  bool `json:"files"`
}

// SharePolicy is the JSONB policy document attached to an object share.
type SharePolicy struct {
	Access      SharePolicyAccess                `json:"access"`
	Permissions map[int64]permissions.Permission `json:"permissions,omitempty"`
}

// ObjectShare records that an object is shared with a component.
type ObjectShare struct {
	ObjectID    int64
	ComponentID int64
	Policy      SharePolicy
	UTCDatetime time.Time
}

// ComponentDoesNotExistError is returned when a component id resolves to
// nothing.
type ComponentDoesNotExistError struct {
	ComponentID int64
}

func (e ComponentDoesNotExistError) Error() string {
	return fmt.Sprintf("component %d does not exist", e.ComponentID)
}

// ShareAlreadyExistsError is returned when an object is already shared with
// the component.
type ShareAlreadyExistsError struct {
	ObjectID    int64
	ComponentID int64
}

func (e ShareAlreadyExistsError) Error() string {
	return fmt.Sprintf("object %d is already shared with component %d", e.ObjectID, e.ComponentID)
}

// ShareDoesNotExistError is returned when no share exists for the object and
// component pair.
type ShareDoesNotExistError struct {
	ObjectID    int64
	ComponentID int64
}

func (e ShareDoesNotExistError) Error() string {
	return fmt.Sprintf("object %d is not shared with component %d", e.ObjectID, e.ComponentID)
}

// Store is the persistence contract for components and object shares.
type Store interface {
	// GetComponent returns the component or nil when it does not exist.
	GetComponent(ctx context.Context, componentID int64) (*Component, error)
	// GetObjectShare returns the share or nil when it does not exist.
	GetObjectShare(ctx context.Context, objectID, componentID int64) (*ObjectShare, error)
	InsertObjectShare(ctx context.Context, share *ObjectShare) error
	UpdateObjectSharePolicy(ctx context.Context, objectID, componentID int64, policy SharePolicy) (bool, error)
	// GetObjectShares returns all shares of an object, newest first.
	GetObjectShares(ctx context.Context, objectID int64) ([]*ObjectShare, error)
}

// Service manages object shares.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddObjectShare shares an object with a component under the given policy.
func (s *Service) AddObjectShare(ctx context.Context, objectID, componentID int64, policy SharePolicy) (*ObjectShare, error) {
	component, err := s.store.GetComponent(ctx, componentID)
	if err != nil {
		return nil, fmt.Errorf("get component %d: %w", componentID, err)
	}
	if component == nil {
		return nil, ComponentDoesNotExistError{ComponentID: componentID}
	}
	existing, err := s.store.GetObjectShare(ctx, objectID, componentID)
	if err != nil {
		return nil, fmt.Errorf("get share of object %d with component %d: %w", objectID, componentID, err)
	}
	if existing != nil {
		return nil, ShareAlreadyExistsError{ObjectID: objectID, ComponentID: componentID}
	}
	share := &ObjectShare{
		ObjectID:    objectID,
		ComponentID: componentID,
		Policy:      policy,
		UTCDatetime: time.Now().UTC(),
	}
	if err := s.store.InsertObjectShare(ctx, share); err != nil {
		return nil, fmt.Errorf("insert share of object %d with component %d: %w", objectID, componentID, err)
	}
	return share, nil
}

// UpdateObjectSharePolicy replaces the policy of an existing share.
func (s *Service) UpdateObjectSharePolicy(ctx context.Context, objectID, componentID int64, policy SharePolicy) error {
	updated, err := s.store.UpdateObjectSharePolicy(ctx, objectID, componentID, policy)
	if err != nil {
		return fmt.Errorf("update share of object %d with component %d: %w", objectID, componentID, err)
	}
	if !updated {
		return ShareDoesNotExistError{ObjectID: objectID, ComponentID: componentID}
	}
	return nil
}

// GetObjectShares returns all shares of an object, newest first.
func (s *Service) GetObjectShares(ctx context.Context, objectID int64) ([]*ObjectShare, error) {
	shares, err := s.store.GetObjectShares(ctx, objectID)
	if err != nil {
		return nil, fmt.Errorf("get shares of object %d: %w", objectID, err)
	}
	return shares, nil
}
