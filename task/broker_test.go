package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTaskStore struct {
	mu     sync.Mutex
	tasks  map[int64]*BackgroundTask
	nextID int64
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[int64]*BackgroundTask), nextID: 1}
}

func (s *fakeTaskStore) InsertTask(ctx context.Context, backgroundTask *BackgroundTask) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	stored := *backgroundTask
	stored.ID = id
	s.tasks[id] = &stored
	return id, nil
}

func (s *fakeTaskStore) ClaimNextTask(ctx context.Context) (*BackgroundTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := int64(1); id < s.nextID; id++ {
		stored, ok := s.tasks[id]
		if !ok || stored.Status != StatusPosed {
			continue
		}
		stored.Status = StatusClaimed
		claimed := *stored
		return &claimed, nil
	}
	return nil, nil
}

func (s *fakeTaskStore) SetTaskStatus(ctx context.Context, taskID int64, status Status, expirationDate *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tasks[taskID]
	if !ok {
		return errors.New("no such task")
	}
	stored.Status = status
	stored.ExpirationDate = expirationDate
	return nil
}

func (s *fakeTaskStore) DeleteTask(ctx context.Context, taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}

func (s *fakeTaskStore) DeleteExpiredTasks(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var deleted int64
	for id, stored := range s.tasks {
		if stored.ExpirationDate != nil && stored.ExpirationDate.Before(now) {
			delete(s.tasks, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeTaskStore) task(taskID int64) *BackgroundTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	copied := *stored
	return &copied
}

func TestPostInlineSuccess(t *testing.T) {
	store := newFakeTaskStore()
	broker := NewBroker(store, 0)

	var got map[string]any
	broker.RegisterHandler("test", func(ctx context.Context, data map[string]any) (bool, error) {
		got = data
		return true, nil
	})

	status, backgroundTask, err := broker.Post(context.Background(), "test", map[string]any{"key": "value"}, true)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != StatusDone {
		t.Errorf("got status %s, want DONE", status)
	}
	if backgroundTask != nil {
		t.Errorf("inline post returned a task: %+v", backgroundTask)
	}
	if got["key"] != "value" {
		t.Errorf("handler received %v", got)
	}
	if len(store.tasks) != 0 {
		t.Error("inline post persisted a task")
	}
}

func TestPostInlineFailure(t *testing.T) {
	broker := NewBroker(newFakeTaskStore(), 0)
	broker.RegisterHandler("test", func(ctx context.Context, data map[string]any) (bool, error) {
		return false, nil
	})

	status, _, err := broker.Post(context.Background(), "test", nil, true)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("got status %s, want FAILED", status)
	}
}

func TestPostInlineFault(t *testing.T) {
	broker := NewBroker(newFakeTaskStore(), 0)
	broker.RegisterHandler("test", func(ctx context.Context, data map[string]any) (bool, error) {
		return false, errors.New("boom")
	})

	status, _, err := broker.Post(context.Background(), "test", nil, true)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("got status %s, want FAILED", status)
	}
}

func TestPostInlinePanicIsContained(t *testing.T) {
	broker := NewBroker(newFakeTaskStore(), 0)
	broker.RegisterHandler("test", func(ctx context.Context, data map[string]any) (bool, error) {
		panic("handler exploded")
	})

	status, _, err := broker.Post(context.Background(), "test", nil, true)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("got status %s, want FAILED", status)
	}
}

func TestPostInlineUnknownType(t *testing.T) {
	broker := NewBroker(newFakeTaskStore(), 0)

	status, _, err := broker.Post(context.Background(), "unregistered", nil, true)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("got status %s, want FAILED", status)
	}
}

func TestPostEnqueuesWhenEnabled(t *testing.T) {
	store := newFakeTaskStore()
	broker := NewBroker(store, 2)

	status, backgroundTask, err := broker.Post(context.Background(), "test", map[string]any{"key": "value"}, false)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != StatusPosed {
		t.Errorf("got status %s, want POSED", status)
	}
	if backgroundTask == nil || backgroundTask.ID == 0 {
		t.Fatalf("got task %+v, want assigned id", backgroundTask)
	}
	stored := store.task(backgroundTask.ID)
	if stored == nil || stored.Status != StatusPosed {
		t.Errorf("stored task: %+v", stored)
	}
}

func TestWorkerRunsPostedTask(t *testing.T) {
	store := newFakeTaskStore()
	broker := NewBroker(store, 1)

	done := make(chan map[string]any, 1)
	broker.RegisterHandler("test", func(ctx context.Context, data map[string]any) (bool, error) {
		done <- data
		return true, nil
	})

	broker.Start()
	defer broker.Stop()

	_, backgroundTask, err := broker.Post(context.Background(), "test", map[string]any{"key": "value"}, false)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case data := <-done:
		if data["key"] != "value" {
			t.Errorf("handler received %v", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the task")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		stored := store.task(backgroundTask.ID)
		if stored != nil && stored.Status == StatusDone {
			if stored.ExpirationDate == nil {
				t.Error("finished task has no expiration date")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never reached DONE: %+v", stored)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWorkerDeletesAutoDeleteTask(t *testing.T) {
	store := newFakeTaskStore()
	broker := NewBroker(store, 1)

	done := make(chan struct{}, 1)
	broker.RegisterHandler("test", func(ctx context.Context, data map[string]any) (bool, error) {
		done <- struct{}{}
		return true, nil
	})

	broker.Start()
	defer broker.Stop()

	_, backgroundTask, err := broker.Post(context.Background(), "test", nil, true)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the task")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if store.task(backgroundTask.ID) == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("auto-delete task was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
