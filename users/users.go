package users

import (
	"context"
	"fmt"
)

// UserType distinguishes locally registered people from users imported
// through federation.
type UserType string

const (
	TypePerson         UserType = "PERSON"
	TypeFederationUser UserType = "FEDERATION_USER"
)

// User is an account that can create and modify objects. Federation users
// carry the id they have at the exporting component instead of name/email.
type User struct {
	ID          int64
	Name        string
	Email       string
	Type        UserType
	FedID       *int64
	ComponentID *int64
}

// UserDoesNotExistError is returned when a user id resolves to nothing.
type UserDoesNotExistError struct {
	UserID int64
}

func (e UserDoesNotExistError) Error() string {
	return fmt.Sprintf("user %d does not exist", e.UserID)
}

// Store is the persistence contract for user rows.
type Store interface {
	// GetUser returns the user or nil when no such user exists.
	GetUser(ctx context.Context, userID int64) (*User, error)
}

// Service resolves user ids.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, UserDoesNotExistError{UserID: userID}
	}
	return user, nil
}
