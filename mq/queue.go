// Package mq implements the Message Queue (spec §4.6/§5, Component F):
// a single dispatcher draining a channel into a bounded worker pool,
// with a monotonically increasing sequence id assigned per message by
// an atomic counter seeded from storage at startup. It is grounded in
// the original implementation's MessageQueue
// (original_source/taurus/src/queue.rs, original_source/mq/src/init.rs):
// a crossbeam unbounded channel feeding a tokio multi-thread runtime's
// worker pool there becomes a buffered Go channel feeding a fixed pool
// of goroutines here.
package mq

import (
	"sync"
	"sync/atomic"

	"github.com/monoforge/kit/pkgs/logger"
)

// Event is a unit of deferred work handed to the queue (notifications,
// derived indexing, per spec §1 item 4).
type Event interface {
	Process() error
}

// Message pairs an Event with its assigned sequence id.
type Message struct {
	ID    int64
	Event Event
}

// Queue is a single dispatcher over a channel, draining into a bounded
// worker pool (spec §5 "single dispatcher task... worker pool of N
// tasks, default 12").
type Queue struct {
	ch      chan Message
	workers int
	seq     int64
	log     logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// DefaultWorkers is the default worker pool size (spec §5).
const DefaultWorkers = 12

// New constructs a Queue with workers goroutines and a sequence
// counter seeded at startSeq (spec §9 "initialize once at startup from
// max(id)+1 in persisted messages, else 1"). It does not start
// dispatching until Start is called.
func New(workers int, startSeq int64, log logger.Logger) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		ch:      make(chan Message, 256),
		workers: workers,
		seq:     startSeq - 1,
		log:     log.Module("mq"),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the dispatcher's worker pool. Each worker pulls
// messages off the shared channel and runs Event.Process; a worker
// never blocks another's progress since there is no shared in-memory
// lock held across a send or receive (spec §5 "cooperative
// suspension").
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker()
	}
}

func (q *Queue) runWorker() {
	defer q.wg.Done()
	for {
		select {
		case msg, ok := <-q.ch:
			if !ok {
				return
			}
			if err := msg.Event.Process(); err != nil {
				q.log.Error("event processing failed", "seq", msg.ID, "error", err.Error())
			}
		case <-q.stopCh:
			return
		}
	}
}

// Send assigns the next sequence id to evt and enqueues it, returning
// the assigned id.
func (q *Queue) Send(evt Event) int64 {
	id := atomic.AddInt64(&q.seq, 1)
	q.ch <- Message{ID: id, Event: evt}
	return id
}

// Stop signals every worker to exit and waits for them to drain
// in-flight work.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
	q.wg.Wait()
}

var (
	singleton     *Queue
	singletonOnce sync.Once
	initialized   int32
)

// Init initializes the process-wide singleton queue exactly once
// (spec §9 "Process-wide singletons... reject re-initialization").
// Subsequent calls return the already-initialized instance unchanged.
func Init(workers int, startSeq int64, log logger.Logger) *Queue {
	singletonOnce.Do(func() {
		singleton = New(workers, startSeq, log)
		atomic.StoreInt32(&initialized, 1)
		singleton.Start()
	})
	return singleton
}

// Instance returns the process-wide singleton queue, or nil if Init
// has not yet been called.
func Instance() *Queue {
	if atomic.LoadInt32(&initialized) == 0 {
		return nil
	}
	return singleton
}
