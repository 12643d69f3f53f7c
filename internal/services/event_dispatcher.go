package services

import (
	"context"
	"log"
	"sync"
	"time"

	"time-exchange.com/time-exchange/internal/events"
)

// EventSink accepts lifecycle events without blocking the caller.
type EventSink interface {
	Dispatch(event events.TaskEvent) bool
}

// EventDispatcher delivers events to a Publisher from a bounded queue with a
// fixed set of workers. Delivery failures are logged and dropped; they never
// reach the operation that produced the event.
type EventDispatcher struct {
	queue          chan events.TaskEvent
	wg             sync.WaitGroup
	publisher      events.Publisher
	publishTimeout time.Duration
	mu             sync.RWMutex
	closed         bool
}

func NewEventDispatcher(publisher events.Publisher, workers int, queueSize int) *EventDispatcher {
	d := &EventDispatcher{
		queue:          make(chan events.TaskEvent, queueSize),
		publisher:      publisher,
		publishTimeout: 5 * time.Second,
	}

	for i := 1; i <= workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	return d
}

// Dispatch queues event without blocking. Events arriving after Shutdown
// are dropped.
func (d *EventDispatcher) Dispatch(event events.TaskEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Printf("event dispatcher stopped, dropping %s event for task %s", event.Operation, event.TaskID)
		return false
	}

	select {
	case d.queue <- event:
		return true
	default:
		log.Printf("event queue full, dropping %s event for task %s", event.Operation, event.TaskID)
		return false
	}
}

func (d *EventDispatcher) worker(workerID int) {
	defer d.wg.Done()

	for event := range d.queue {
		d.deliver(workerID, event)
	}
}

func (d *EventDispatcher) deliver(workerID int, event events.TaskEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		log.Printf("worker %d: failed to publish %s event for task %s: %v", workerID, event.Operation, event.TaskID, err)
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered
// until ctx expires.
func (d *EventDispatcher) Shutdown(ctx context.Context) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("event dispatcher shut down cleanly")
	case <-ctx.Done():
		log.Println("event dispatcher shutdown timed out")
	}

	if err := d.publisher.Close(); err != nil {
		log.Printf("failed to close event publisher: %v", err)
	}
}
