package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcodd23/go-export-ledger/pkg/logx"
)

// RunUntilSignal runs a long-lived task until it returns or the process receives SIGINT or
// SIGTERM, then runs cleanup within timeout.
//
// On a signal the task context is cancelled and the task is awaited before cleanup starts,
// so cleanup never races with the task. The task error is returned, except for the context
// cancellation caused by the signal itself.
//
// Usage:
//
//	err := shutdown.RunUntilSignal(ctx, 5*time.Second,
//	    func(ctx context.Context) error { return checker.Run(ctx) },
//	    func(timeoutCtx context.Context) { mgr.Shutdown(timeoutCtx) })
func RunUntilSignal(rootCtx context.Context, timeout time.Duration, task func(ctx context.Context) error, cleanup func(timeoutCtx context.Context)) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	return runUntil(rootCtx, sigs, timeout, task, cleanup)
}

func runUntil(rootCtx context.Context, sigs <-chan os.Signal, timeout time.Duration, task func(ctx context.Context) error, cleanup func(timeoutCtx context.Context)) error {
	taskCtx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	taskCompleted := make(chan error, 1)

	go func() {
		taskCompleted <- task(taskCtx)
	}()

	var taskErr error

	select {
	case sig := <-sigs:
		logx.GetLogger().LogDebug(rootCtx, fmt.Sprintf("Interrupt signal captured: %s", sig.String()))
		cancel()

		if err := <-taskCompleted; err != nil && taskCtx.Err() == nil {
			taskErr = err
		}
	case taskErr = <-taskCompleted:
		if taskErr != nil {
			logx.GetLogger().LogError(rootCtx, "Task error", taskErr)
		}
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(context.WithoutCancel(rootCtx), timeout)
	defer cancelTimeout()

	cleanUp(timeoutCtx, cleanup)

	return taskErr
}

// cleanUp executes the provided cleanup callback function and logs the result.
// It waits for either the cleanup to complete or the context to be cancelled.
func cleanUp(timeoutCtx context.Context, cleanupCallback func(timeoutCtx context.Context)) {
	logx.GetLogger().LogInfo(timeoutCtx, "Cleaning up all resources ....")

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		if cleanupCallback != nil {
			cleanupCallback(timeoutCtx)
		}
		ch <- "All resources cleaned up"
	}()

	select {
	case <-timeoutCtx.Done():
		logx.GetLogger().LogError(timeoutCtx, "Deadline exceeded during context cancellation", timeoutCtx.Err())
	case result := <-ch:
		logx.GetLogger().LogInfo(timeoutCtx, result)
	}
}
