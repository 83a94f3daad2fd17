package permissions

import (
	"context"
	"fmt"
)

// Permission is an object access level. Levels are ordered, each one
// includes the ones below it.
type Permission int

const (
	None Permission = iota
	Read
	Write
	Grant
)

func (p Permission) String() string {
	switch p {
	case Read:
		return "READ"
	case Write:
		return "WRITE"
	case Grant:
		return "GRANT"
	default:
		return "NONE"
	}
}

// ParsePermission converts a stored level name back to a Permission.
func ParsePermission(name string) (Permission, error) {
	switch name {
	case "NONE":
		return None, nil
	case "READ":
		return Read, nil
	case "WRITE":
		return Write, nil
	case "GRANT":
		return Grant, nil
	default:
		return None, fmt.Errorf("unknown permission level %q", name)
	}
}

// Store is the persistence contract for object permissions.
type Store interface {
	SetUserObjectPermissions(ctx context.Context, objectID, userID int64, permission Permission) error
	// GetAllUserDefaultPermissions returns the level the creator grants to
	// all users by default, None when the creator configured nothing.
	GetAllUserDefaultPermissions(ctx context.Context, creatorID int64) (Permission, error)
	SetAllUserObjectPermissions(ctx context.Context, objectID int64, permission Permission) error
}

// Service applies permission defaults to new objects.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// SetInitialPermissions gives the creator GRANT on a freshly created object
// and applies the creator's all-user default level.
func (s *Service) SetInitialPermissions(ctx context.Context, objectID, creatorID int64) error {
	if err := s.store.SetUserObjectPermissions(ctx, objectID, creatorID, Grant); err != nil {
		return fmt.Errorf("set creator permissions for object %d: %w", objectID, err)
	}
	defaultPermission, err := s.store.GetAllUserDefaultPermissions(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("get default permissions of user %d: %w", creatorID, err)
	}
	if defaultPermission > None {
		if err := s.store.SetAllUserObjectPermissions(ctx, objectID, defaultPermission); err != nil {
			return fmt.Errorf("set all-user permissions for object %d: %w", objectID, err)
		}
	}
	return nil
}
