package task

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// pollInterval bounds how long a posed task waits for a worker when the
	// in-process nudge was missed, e.g. after a restart with leftover rows.
	pollInterval = 10 * time.Second
	// resultKeepDuration is how long finished non-auto-delete tasks stay
	// around before the cleanup job removes them.
	resultKeepDuration = 24 * time.Hour

	cleanupSchedule = "0 */10 * * * *"
)

// Broker coordinates the background task queue: it accepts task postings,
// feeds a fixed worker pool and periodically cleans up expired results.
// With zero workers the broker is disabled and Post falls back to running
// handlers synchronously.
type Broker struct {
	store    Store
	logger   *slog.Logger
	cron     *cron.Cron
	handlers map[string]Handler
	workers  int

	nudge chan struct{}
	stop  chan struct{}
	wg    sync.WaitGroup
}

func NewBroker(store Store, workers int) *Broker {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("system", "task_broker")

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			NewPanicRecoveryWrapper(logger),
			NewLoggingWrapper(logger),
			cron.DelayIfStillRunning(cron.DefaultLogger),
		),
	)

	return &Broker{
		store:    store,
		logger:   logger,
		cron:     c,
		handlers: make(map[string]Handler),
		workers:  workers,
		nudge:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// RegisterHandler binds a handler to a task type. Must happen before Start.
func (b *Broker) RegisterHandler(taskType string, handler Handler) {
	b.handlers[taskType] = handler
}

// Enabled reports whether tasks run asynchronously on the worker pool.
func (b *Broker) Enabled() bool {
	return b.workers > 0
}

// Post queues a task of the given type. When the broker is enabled the task
// is persisted as POSED and picked up by a worker; the returned task carries
// its assigned id. When disabled the handler runs synchronously and the
// final status (DONE or FAILED) is returned with a nil task.
func (b *Broker) Post(ctx context.Context, taskType string, data map[string]any, autoDelete bool) (Status, *BackgroundTask, error) {
	if !b.Enabled() {
		return b.runInline(ctx, taskType, data), nil, nil
	}
	backgroundTask := &BackgroundTask{
		Type:       taskType,
		AutoDelete: autoDelete,
		Data:       data,
		Status:     StatusPosed,
	}
	id, err := b.store.InsertTask(ctx, backgroundTask)
	if err != nil {
		return StatusFailed, nil, err
	}
	backgroundTask.ID = id
	select {
	case b.nudge <- struct{}{}:
	default:
	}
	return StatusPosed, backgroundTask, nil
}

func (b *Broker) runInline(ctx context.Context, taskType string, data map[string]any) Status {
	handler, ok := b.handlers[taskType]
	if !ok {
		b.logger.Error("No handler registered for task type", "task_type", taskType)
		return StatusFailed
	}
	succeeded, err := b.runHandler(ctx, handler, data)
	if err != nil {
		b.logger.Error("Task handler fault", "task_type", taskType, "error", err)
		return StatusFailed
	}
	if !succeeded {
		return StatusFailed
	}
	return StatusDone
}

// Start launches the worker pool and the cron scheduler.
func (b *Broker) Start() {
	if err := b.registerCleanupJob(); err != nil {
		b.logger.Error("Failed to register task cleanup job", "error", err)
		os.Exit(1)
	}
	b.cron.Start()
	if !b.Enabled() {
		b.logger.Info("Task broker started without workers, tasks run synchronously")
		return
	}
	b.logger.Info("Starting task worker pool", "concurrency", b.workers)
	for i := 0; i < b.workers; i++ {
		workerID := i + 1
		b.wg.Add(1)
		go b.worker(workerID)
	}
}

// Stop drains the cron scheduler and stops all workers. Claimed tasks finish
// before the workers exit.
func (b *Broker) Stop() {
	b.logger.Info("Stopping task broker...")
	<-b.cron.Stop().Done()
	close(b.stop)
	b.wg.Wait()
	b.logger.Info("Task broker stopped")
}

func (b *Broker) worker(workerID int) {
	defer b.wg.Done()
	logger := b.logger.With("worker_id", workerID)
	logger.Info("Worker started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		b.drainQueue(logger)
		select {
		case <-b.stop:
			logger.Info("Worker stopped")
			return
		case <-b.nudge:
		case <-ticker.C:
		}
	}
}

// drainQueue claims and runs posed tasks until none are left.
func (b *Broker) drainQueue(logger *slog.Logger) {
	ctx := context.Background()
	for {
		select {
		case <-b.stop:
			return
		default:
		}
		claimed, err := b.store.ClaimNextTask(ctx)
		if err != nil {
			logger.Error("Failed to claim task", "error", err)
			return
		}
		if claimed == nil {
			return
		}
		b.runTask(ctx, logger, claimed)
	}
}

func (b *Broker) runTask(ctx context.Context, logger *slog.Logger, backgroundTask *BackgroundTask) {
	logger = logger.With("task_id", backgroundTask.ID, "task_type", backgroundTask.Type)
	logger.Info("Task execution started")

	status := StatusDone
	handler, ok := b.handlers[backgroundTask.Type]
	if !ok {
		logger.Error("No handler registered for task type")
		status = StatusFailed
	} else {
		succeeded, err := b.runHandler(ctx, handler, backgroundTask.Data)
		if err != nil {
			logger.Error("Task handler fault", "error", err)
			status = StatusFailed
		} else if !succeeded {
			status = StatusFailed
		}
	}

	if backgroundTask.AutoDelete {
		if err := b.store.DeleteTask(ctx, backgroundTask.ID); err != nil {
			logger.Error("Failed to delete finished task", "error", err)
		}
	} else {
		expiration := time.Now().UTC().Add(resultKeepDuration)
		if err := b.store.SetTaskStatus(ctx, backgroundTask.ID, status, &expiration); err != nil {
			logger.Error("Failed to store task status", "error", err)
		}
	}
	logger.Info("Task execution finished", "status", string(status))
}

// runHandler shields the broker from panicking handlers.
func (b *Broker) runHandler(ctx context.Context, handler Handler, data map[string]any) (succeeded bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			succeeded = false
			err = &handlerPanicError{value: r}
		}
	}()
	return handler(ctx, data)
}

func (b *Broker) registerCleanupJob() error {
	_, err := b.cron.AddJob(cleanupSchedule, cleanupJob{broker: b})
	return err
}

// cleanupJob removes finished tasks whose expiration date has passed.
type cleanupJob struct {
	broker *Broker
}

func (j cleanupJob) Run() {
	deleted, err := j.broker.store.DeleteExpiredTasks(context.Background())
	if err != nil {
		j.broker.logger.Error("Failed to delete expired tasks", "error", err)
		return
	}
	if deleted > 0 {
		j.broker.logger.Info("Deleted expired tasks", "count", deleted)
	}
}

func (j cleanupJob) Name() string {
	return "BackgroundTaskCleanupJob"
}
