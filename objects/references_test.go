package objects

import (
	"context"
	"testing"

	"labtrack/actions"
	"labtrack/schemas"
)

func measurementAction(id int64) *actions.Action {
	return &actions.Action{
		ID:   id,
		Type: actions.TypeMeasurement,
		Name: "XRR Measurement",
		Schema: &schemas.Schema{
			Type: schemas.TypeObject,
			Properties: map[string]*schemas.Schema{
				"sample":  {Type: schemas.TypeSample},
				"comment": {Type: schemas.TypeText},
			},
			PropertyOrder: []string{"sample", "comment"},
		},
	}
}

func measurementData(sampleID any) map[string]any {
	data := map[string]any{
		"comment": map[string]any{"text": "run 1"},
	}
	if sampleID != nil {
		data["sample"] = map[string]any{"object_id": sampleID}
	}
	return data
}

func TestCreateMeasurementRecordsSampleUsage(t *testing.T) {
	env := newTestEnv(measurementAction(1))
	ctx := context.Background()

	object, err := env.service.CreateObject(ctx, 1, measurementData(float64(5)), 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	want := []usageEvent{{objectID: 5, userID: 1, measurementID: object.ObjectID}}
	if len(env.objectLog.usages) != 1 || env.objectLog.usages[0] != want[0] {
		t.Errorf("got usage events %v, want %v", env.objectLog.usages, want)
	}
}

func TestUpdateRecordsOnlyChangedReferences(t *testing.T) {
	env := newTestEnv(measurementAction(1))
	ctx := context.Background()

	object, err := env.service.CreateObject(ctx, 1, measurementData(float64(5)), 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := env.service.UpdateObject(ctx, object.ObjectID, measurementData(float64(7)), 1); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}

	want := []usageEvent{
		{objectID: 5, userID: 1, measurementID: object.ObjectID},
		{objectID: 7, userID: 1, measurementID: object.ObjectID},
	}
	if len(env.objectLog.usages) != len(want) {
		t.Fatalf("got %d usage events %v, want %d", len(env.objectLog.usages), env.objectLog.usages, len(want))
	}
	for i := range want {
		if env.objectLog.usages[i] != want[i] {
			t.Errorf("event %d: got %v, want %v", i, env.objectLog.usages[i], want[i])
		}
	}
}

func TestUpdateKeepsQuietOnUnchangedReference(t *testing.T) {
	env := newTestEnv(measurementAction(1))
	ctx := context.Background()

	object, err := env.service.CreateObject(ctx, 1, measurementData(float64(5)), 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := env.service.UpdateObject(ctx, object.ObjectID, measurementData(float64(5)), 1); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}

	if len(env.objectLog.usages) != 1 {
		t.Errorf("got usage events %v, want a single event for the creation", env.objectLog.usages)
	}
}

func TestReferenceAppearingInUpdateIsRecorded(t *testing.T) {
	env := newTestEnv(measurementAction(1))
	ctx := context.Background()

	object, err := env.service.CreateObject(ctx, 1, measurementData(nil), 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if len(env.objectLog.usages) != 0 {
		t.Fatalf("creation without reference produced events: %v", env.objectLog.usages)
	}

	if err := env.service.UpdateObject(ctx, object.ObjectID, measurementData(float64(3)), 1); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}
	want := usageEvent{objectID: 3, userID: 1, measurementID: object.ObjectID}
	if len(env.objectLog.usages) != 1 || env.objectLog.usages[0] != want {
		t.Errorf("got usage events %v, want [%v]", env.objectLog.usages, want)
	}
}

func TestNonMeasurementReferencesProduceNoEvents(t *testing.T) {
	action := measurementAction(1)
	action.Type = actions.TypeSimulation
	env := newTestEnv(action)

	_, err := env.service.CreateObject(context.Background(), 1, measurementData(float64(5)), 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if len(env.objectLog.usages) != 0 {
		t.Errorf("simulation produced usage events: %v", env.objectLog.usages)
	}
}

func TestRestoreDoesNotReplayReferences(t *testing.T) {
	env := newTestEnv(measurementAction(1))
	ctx := context.Background()

	object, err := env.service.CreateObject(ctx, 1, measurementData(float64(5)), 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if err := env.service.UpdateObject(ctx, object.ObjectID, measurementData(float64(7)), 1); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}
	before := len(env.objectLog.usages)

	if err := env.service.RestoreObjectVersion(ctx, object.ObjectID, 0, 1); err != nil {
		t.Fatalf("RestoreObjectVersion: %v", err)
	}
	if len(env.objectLog.usages) != before {
		t.Errorf("restore produced usage events: %v", env.objectLog.usages[before:])
	}
}

func TestArrayReferencesAreTrackedPerElement(t *testing.T) {
	action := &actions.Action{
		ID:   1,
		Type: actions.TypeMeasurement,
		Name: "Series Measurement",
		Schema: &schemas.Schema{
			Type: schemas.TypeObject,
			Properties: map[string]*schemas.Schema{
				"samples": {
					Type:  schemas.TypeArray,
					Items: &schemas.Schema{Type: schemas.TypeSample},
				},
			},
		},
	}
	env := newTestEnv(action)
	ctx := context.Background()

	data := map[string]any{
		"samples": []any{
			map[string]any{"object_id": float64(2)},
			map[string]any{"object_id": float64(3)},
		},
	}
	object, err := env.service.CreateObject(ctx, 1, data, 1)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	if len(env.objectLog.usages) != 2 {
		t.Fatalf("got usage events %v, want one per element", env.objectLog.usages)
	}

	// Growing the array only reports the new element.
	grown := map[string]any{
		"samples": []any{
			map[string]any{"object_id": float64(2)},
			map[string]any{"object_id": float64(3)},
			map[string]any{"object_id": float64(4)},
		},
	}
	if err := env.service.UpdateObject(ctx, object.ObjectID, grown, 1); err != nil {
		t.Fatalf("UpdateObject: %v", err)
	}
	if len(env.objectLog.usages) != 3 {
		t.Fatalf("got usage events %v, want exactly one more", env.objectLog.usages)
	}
	last := env.objectLog.usages[2]
	if last.objectID != 4 || last.measurementID != object.ObjectID {
		t.Errorf("got %v, want usage of object 4", last)
	}
}
