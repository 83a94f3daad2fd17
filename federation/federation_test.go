package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"labtrack/permissions"
)

type fakeFederationStore struct {
	components map[int64]*Component
	shares     map[[2]int64]*ObjectShare
}

func newFakeFederationStore(components ...*Component) *fakeFederationStore {
	store := &fakeFederationStore{
		components: make(map[int64]*Component),
		shares:     make(map[[2]int64]*ObjectShare),
	}
	for _, component := range components {
		store.components[component.ID] = component
	}
	return store
}

func (s *fakeFederationStore) GetComponent(ctx context.Context, componentID int64) (*Component, error) {
	return s.components[componentID], nil
}

func (s *fakeFederationStore) GetObjectShare(ctx context.Context, objectID, componentID int64) (*ObjectShare, error) {
	return s.shares[[2]int64{objectID, componentID}], nil
}

func (s *fakeFederationStore) InsertObjectShare(ctx context.Context, share *ObjectShare) error {
	s.shares[[2]int64{share.ObjectID, share.ComponentID}] = share
	return nil
}

func (s *fakeFederationStore) UpdateObjectSharePolicy(ctx context.Context, objectID, componentID int64, policy SharePolicy) (bool, error) {
	share, ok := s.shares[[2]int64{objectID, componentID}]
	if !ok {
		return false, nil
	}
	share.Policy = policy
	return true, nil
}

func (s *fakeFederationStore) GetObjectShares(ctx context.Context, objectID int64) ([]*ObjectShare, error) {
	var shares []*ObjectShare
	for key, share := range s.shares {
		if key[0] == objectID {
			shares = append(shares, share)
		}
	}
	return shares, nil
}

func testComponent(id int64) *Component {
	return &Component{
		ID:      id,
		UUID:    uuid.MustParse("28b8d3ca-fb5f-59d9-8090-bfdbd6d07a71"),
		Name:    "Partner Instance",
		Address: "https://partner.example.org",
	}
}

func dataOnlyPolicy() SharePolicy {
	return SharePolicy{
		Access: SharePolicyAccess{Data: true},
		Permissions: map[int64]permissions.Permission{
			4: permissions.Read,
		},
	}
}

func TestAddObjectShare(t *testing.T) {
	store := newFakeFederationStore(testComponent(1))
	service := NewService(store)

	share, err := service.AddObjectShare(context.Background(), 10, 1, dataOnlyPolicy())
	if err != nil {
		t.Fatalf("AddObjectShare: %v", err)
	}
	if share.ObjectID != 10 || share.ComponentID != 1 {
		t.Errorf("got share %+v", share)
	}
	if !share.Policy.Access.Data || share.Policy.Access.Action {
		t.Errorf("policy not kept: %+v", share.Policy)
	}
	if share.UTCDatetime.IsZero() || share.UTCDatetime.After(time.Now().UTC()) {
		t.Errorf("share timestamp: %v", share.UTCDatetime)
	}
}

func TestAddObjectShareUnknownComponent(t *testing.T) {
	service := NewService(newFakeFederationStore())

	_, err := service.AddObjectShare(context.Background(), 10, 3, dataOnlyPolicy())
	var notFound ComponentDoesNotExistError
	if !errors.As(err, &notFound) || notFound.ComponentID != 3 {
		t.Fatalf("got %v, want ComponentDoesNotExistError for 3", err)
	}
}

func TestAddObjectShareTwice(t *testing.T) {
	store := newFakeFederationStore(testComponent(1))
	service := NewService(store)
	ctx := context.Background()

	if _, err := service.AddObjectShare(ctx, 10, 1, dataOnlyPolicy()); err != nil {
		t.Fatalf("AddObjectShare: %v", err)
	}
	_, err := service.AddObjectShare(ctx, 10, 1, dataOnlyPolicy())
	var exists ShareAlreadyExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("got %v, want ShareAlreadyExistsError", err)
	}
	if exists.ObjectID != 10 || exists.ComponentID != 1 {
		t.Errorf("got %+v", exists)
	}
}

func TestUpdateObjectSharePolicy(t *testing.T) {
	store := newFakeFederationStore(testComponent(1))
	service := NewService(store)
	ctx := context.Background()

	if _, err := service.AddObjectShare(ctx, 10, 1, dataOnlyPolicy()); err != nil {
		t.Fatalf("AddObjectShare: %v", err)
	}

	updated := dataOnlyPolicy()
	updated.Access.Action = true
	if err := service.UpdateObjectSharePolicy(ctx, 10, 1, updated); err != nil {
		t.Fatalf("UpdateObjectSharePolicy: %v", err)
	}

	share, err := store.GetObjectShare(ctx, 10, 1)
	if err != nil {
		t.Fatalf("GetObjectShare: %v", err)
	}
	if !share.Policy.Access.Action {
		t.Errorf("policy not replaced: %+v", share.Policy)
	}
}

func TestUpdateObjectSharePolicyMissingShare(t *testing.T) {
	service := NewService(newFakeFederationStore(testComponent(1)))

	err := service.UpdateObjectSharePolicy(context.Background(), 10, 1, dataOnlyPolicy())
	var notFound ShareDoesNotExistError
	if !errors.As(err, &notFound) {
		t.Fatalf("got %v, want ShareDoesNotExistError", err)
	}
}

func TestGetObjectShares(t *testing.T) {
	store := newFakeFederationStore(testComponent(1), testComponent(2))
	store.components[2].UUID = uuid.MustParse("7c04e6db-dca9-4c27-b725-af4d52193a4f")
	service := NewService(store)
	ctx := context.Background()

	if _, err := service.AddObjectShare(ctx, 10, 1, dataOnlyPolicy()); err != nil {
		t.Fatalf("AddObjectShare: %v", err)
	}
	if _, err := service.AddObjectShare(ctx, 10, 2, dataOnlyPolicy()); err != nil {
		t.Fatalf("AddObjectShare: %v", err)
	}
	if _, err := service.AddObjectShare(ctx, 11, 1, dataOnlyPolicy()); err != nil {
		t.Fatalf("AddObjectShare: %v", err)
	}

	shares, err := service.GetObjectShares(ctx, 10)
	if err != nil {
		t.Fatalf("GetObjectShares: %v", err)
	}
	if len(shares) != 2 {
		t.Errorf("got %d shares, want 2", len(shares))
	}
}
