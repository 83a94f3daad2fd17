package objects

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"

	"labtrack/actions"
)

// Filter restricts object listings. Action conditions are pushed down to the
// storage query; Where is an expression over the object's decoded data,
// evaluated in memory, so the storage layer never executes caller code.
//
// The data is bound as "data", e.g.:
//
//	data.name.text == "OMBE-1"
//	len(data.measurements) > 2
type Filter struct {
	ActionID   *int64
	ActionType *actions.ActionType
	Where      string
}

// GetObjects returns the current version of all objects matching the filter.
func (s *Service) GetObjects(ctx context.Context, filter Filter) ([]*Object, error) {
	objects, err := s.store.GetCurrentObjects(ctx, filter.ActionID, filter.ActionType)
	if err != nil {
		return nil, fmt.Errorf("get current objects: %w", err)
	}
	if filter.Where == "" {
		return objects, nil
	}
	program, err := expr.Compile(filter.Where,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile object filter %q: %w", filter.Where, err)
	}
	matched := make([]*Object, 0, len(objects))
	for _, object := range objects {
		result, err := expr.Run(program, map[string]any{"data": object.Data})
		if err != nil {
			return nil, fmt.Errorf("evaluate object filter for object %d: %w", object.ObjectID, err)
		}
		keep, ok := result.(bool)
		if !ok {
			return nil, fmt.Errorf("object filter %q returned %T, want bool", filter.Where, result)
		}
		if keep {
			matched = append(matched, object)
		}
	}
	return matched, nil
}
