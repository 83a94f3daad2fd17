package objects

import (
	"context"

	"labtrack/actions"
	"labtrack/schemas"
)

// updateReferences searches a newly written version for references to other
// objects and records the resulting usage events.
//
// At this time only measurements referencing samples are handled: when a
// sample reference appears or changes, an entry is added to the referenced
// object's log about being used in a measurement. Other action types are an
// extension point and produce no events yet.
//
// This runs after the version write has committed. A crash in between leaves
// the version persisted with the usage event unemitted, which is acceptable
// for an audit trail.
func (s *Service) updateReferences(ctx context.Context, object *Object, userID int64) error {
	action, err := s.actions.GetAction(ctx, object.ActionID)
	if err != nil {
		return err
	}

	var previous *Object
	if object.VersionID > 0 {
		previous, err = s.GetObjectVersion(ctx, object.ObjectID, object.VersionID-1)
		if err != nil {
			return err
		}
	}

	for _, property := range schemas.Enumerate(object.Schema, object.Data) {
		if property.Schema.Type != schemas.TypeSample {
			continue
		}
		referencedID, ok := schemas.SampleRef(property.Value)
		if !ok {
			continue
		}
		if previous != nil {
			// A missing path in the previous version counts as "no previous
			// reference", not as a fault.
			if value, found := property.Path.Resolve(previous.Data); found {
				if previousID, hadRef := schemas.SampleRef(value); hadRef && previousID == referencedID {
					continue
				}
			}
		}
		if action.Type == actions.TypeMeasurement {
			if err := s.objectLog.UseObjectInMeasurement(ctx, referencedID, userID, object.ObjectID); err != nil {
				return err
			}
		}
	}
	return nil
}
