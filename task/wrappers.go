package task

import (
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

type handlerPanicError struct {
	value any
}

func (e *handlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.value)
}

// NewLoggingWrapper logs the start and end of every cron job run, tagged
// with a unique execution id so runs can be correlated across log lines.
func NewLoggingWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			jobLogger := logger.With(
				slog.String("job_name", jobName(j)),
				slog.String("execution_id", uuid.New().String()),
			)
			start := time.Now()
			jobLogger.Info("Job execution started")
			j.Run()
			jobLogger.Info("Job execution finished", slog.Duration("duration", time.Since(start)))
		})
	}
}

// NewPanicRecoveryWrapper keeps a panicking cron job from taking the process
// down, logging the panic and its stack instead.
func NewPanicRecoveryWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						slog.String("job_name", jobName(j)),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()
			j.Run()
		})
	}
}

func jobName(j cron.Job) string {
	if named, ok := j.(interface{ Name() string }); ok {
		return named.Name()
	}
	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
