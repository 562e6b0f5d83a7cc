// Package executor runs closures one at a time, in submission order, on a
// single worker goroutine. Components that own mutable state submit every
// operation to their own Executor instead of taking locks.
package executor

import (
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/vburojevic/adjust/internal/logger"
)

// Executor is a single-worker FIFO task queue.
type Executor struct {
	name string
	log  *zap.SugaredLogger

	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// New starts an executor whose worker lives until Close.
func New(name string, log *zap.SugaredLogger) *Executor {
	e := &Executor{
		name: name,
		log:  logger.OrNop(log).Named("executor").With("queue", name),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.loop()
	return e
}

// Name returns the queue name given at construction.
func (e *Executor) Name() string {
	return e.name
}

// Submit appends task to the mailbox without blocking.
// It reports false when the executor is already closed.
func (e *Executor) Submit(task func()) bool {
	if task == nil {
		return false
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.log.Debugw("dropping task submitted after close")
		return false
	}
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until every task submitted before the call has run.
// Calling Flush from inside a task deadlocks.
func (e *Executor) Flush() {
	ran := make(chan struct{})
	if !e.Submit(func() { close(ran) }) {
		<-e.done
		return
	}
	<-ran
}

// Close stops accepting tasks, drains what is queued and waits for the worker.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	<-e.done
}

func (e *Executor) loop() {
	defer close(e.done)
	for {
		task, closed := e.next()
		if task == nil {
			if closed {
				return
			}
			<-e.wake
			continue
		}
		e.run(task)
	}
}

func (e *Executor) next() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.tasks) == 0 {
		return nil, e.closed
	}
	task := e.tasks[0]
	e.tasks[0] = nil
	e.tasks = e.tasks[1:]
	return task, e.closed
}

// run executes one task; a panic is logged and the task dropped.
func (e *Executor) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorw("task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	task()
}
