package mq

import (
	"sync"
	"testing"
	"time"

	"github.com/monoforge/kit/pkgs/logger"
	"github.com/stretchr/testify/require"
)

type countingEvent struct {
	wg *sync.WaitGroup
	mu *sync.Mutex
	n  *int
}

func (e countingEvent) Process() error {
	e.mu.Lock()
	*e.n++
	e.mu.Unlock()
	e.wg.Done()
	return nil
}

func TestQueueDispatchesToWorkerPool(t *testing.T) {
	q := New(4, 1, logger.NewLogrus())
	q.Start()
	defer q.Stop()

	var mu sync.Mutex
	var n int
	var wg sync.WaitGroup
	const total = 50
	wg.Add(total)

	for i := 0; i < total; i++ {
		q.Send(countingEvent{wg: &wg, mu: &mu, n: &n})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events to process")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, total, n)
}

func TestSendAssignsMonotonicSequence(t *testing.T) {
	q := New(1, 5, logger.NewLogrus())

	var wg sync.WaitGroup
	var mu sync.Mutex
	var n int
	wg.Add(2)

	id1 := q.Send(countingEvent{wg: &wg, mu: &mu, n: &n})
	id2 := q.Send(countingEvent{wg: &wg, mu: &mu, n: &n})
	require.Equal(t, int64(5), id1)
	require.Equal(t, int64(6), id2)

	q.Start()
	defer q.Stop()
	wg.Wait()
}

func TestInitIsIdempotent(t *testing.T) {
	q1 := Init(2, 1, logger.NewLogrus())
	q2 := Init(8, 99, logger.NewLogrus())
	require.Same(t, q1, q2)
	require.Same(t, q1, Instance())
}
