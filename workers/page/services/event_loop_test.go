package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventLoop_RunsTasksInOrder(t *testing.T) {
	loop := startLoop(t)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { order = append(order, i) })
	}
	loop.Idle()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEventLoop_SpawnPostsContinuation(t *testing.T) {
	loop := startLoop(t)

	var result string
	loop.Dispatch(func() {
		loop.Spawn(func() func() {
			time.Sleep(10 * time.Millisecond)
			return func() { result = "done" }
		})
	})
	loop.Idle()

	assert.Equal(t, "done", result)
}

func TestEventLoop_RecoversFromPanics(t *testing.T) {
	loop := startLoop(t)

	ran := false
	loop.Post(func() { panic("boom") })
	loop.Dispatch(func() { ran = true })

	assert.True(t, ran)
}

func TestEventLoop_DispatchAfterStopReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewEventLoop(nil)
	stopped := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	var calls int32
	loop.Dispatch(func() { atomic.AddInt32(&calls, 1) })
	loop.Idle()

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
