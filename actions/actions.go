package actions

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"labtrack/schemas"
)

// ActionType categorizes what kind of object an action produces.
type ActionType string

const (
	TypeSampleCreation ActionType = "SAMPLE_CREATION"
	TypeMeasurement    ActionType = "MEASUREMENT"
	TypeSimulation     ActionType = "SIMULATION"
)

// Action defines the schema and category for a class of objects, e.g. the
// measurements performed with one instrument.
type Action struct {
	ID          int64
	Type        ActionType
	Name        string
	Description string
	Schema      *schemas.Schema
}

// ActionDoesNotExistError is returned when an action id resolves to nothing.
type ActionDoesNotExistError struct {
	ActionID int64
}

func (e ActionDoesNotExistError) Error() string {
	return fmt.Sprintf("action %d does not exist", e.ActionID)
}

// Store is the persistence contract for action rows.
type Store interface {
	// GetAction returns the action or nil when no such action exists.
	GetAction(ctx context.Context, actionID int64) (*Action, error)
	CreateAction(ctx context.Context, action *Action) (int64, error)
	// UpdateAction reports false when no such action exists.
	UpdateAction(ctx context.Context, action *Action) (bool, error)
}

const actionCacheSize = 128

// Service resolves and maintains actions. Lookups go through an LRU cache
// since every object create/update resolves its action at least twice.
type Service struct {
	store Store
	cache *lru.Cache[int64, *Action]
}

func NewService(store Store) (*Service, error) {
	cache, err := lru.New[int64, *Action](actionCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, cache: cache}, nil
}

// GetAction returns the action with the given id.
func (s *Service) GetAction(ctx context.Context, actionID int64) (*Action, error) {
	if action, ok := s.cache.Get(actionID); ok {
		return action, nil
	}
	action, err := s.store.GetAction(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("get action %d: %w", actionID, err)
	}
	if action == nil {
		return nil, ActionDoesNotExistError{ActionID: actionID}
	}
	s.cache.Add(actionID, action)
	return action, nil
}

// CreateAction persists a new action and returns it with its assigned id.
func (s *Service) CreateAction(ctx context.Context, actionType ActionType, name, description string, schema *schemas.Schema) (*Action, error) {
	action := &Action{
		Type:        actionType,
		Name:        name,
		Description: description,
		Schema:      schema,
	}
	id, err := s.store.CreateAction(ctx, action)
	if err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}
	action.ID = id
	return action, nil
}

// UpdateAction replaces an action's metadata and schema. Objects already
// created keep the schema of the version they were written with.
func (s *Service) UpdateAction(ctx context.Context, action *Action) error {
	ok, err := s.store.UpdateAction(ctx, action)
	if err != nil {
		return fmt.Errorf("update action %d: %w", action.ID, err)
	}
	if !ok {
		return ActionDoesNotExistError{ActionID: action.ID}
	}
	s.cache.Remove(action.ID)
	return nil
}
