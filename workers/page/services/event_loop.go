package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventLoop runs page tasks one at a time on a single goroutine, the way a browser runs
// event handlers. Blocking I/O is started with Spawn and its continuation comes back to the
// loop as an ordinary task, so page state is only ever touched from the loop goroutine.
type EventLoop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	halted  chan struct{}
	pending sync.WaitGroup
	logger  *zap.Logger
}

func NewEventLoop(logger *zap.Logger) *EventLoop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLoop{
		wake:   make(chan struct{}, 1),
		halted: make(chan struct{}),
		logger: logger,
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that point are dropped.
func (l *EventLoop) Run(ctx context.Context) {
	for {
		for task := l.next(); task != nil; task = l.next() {
			l.execute(task)
		}
		select {
		case <-ctx.Done():
			l.stop()
			return
		case <-l.wake:
		}
	}
}

// Post queues task behind the ones already waiting.
func (l *EventLoop) Post(task func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.pending.Add(1)
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Dispatch posts task and blocks until it has run or the loop has stopped. It must not be
// called from the loop itself.
func (l *EventLoop) Dispatch(task func()) {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		task()
	})

	select {
	case <-done:
	case <-l.halted:
	}
}

// Spawn runs op off the loop. The continuation op returns, if any, is posted back to the loop.
func (l *EventLoop) Spawn(op func() func()) {
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		if cont := op(); cont != nil {
			l.Post(cont)
		}
	}()
}

// Idle blocks until no task is queued or running and no spawned operation is in flight.
func (l *EventLoop) Idle() {
	l.pending.Wait()
}

func (l *EventLoop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task
}

func (l *EventLoop) execute(task func()) {
	defer l.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("page task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

func (l *EventLoop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.halted)
	for range l.queue {
		l.pending.Done()
	}
	l.queue = nil
}
