// Package events provides lifecycle notifications for the job pool.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventWorkerStarted is emitted when a worker goroutine begins its loop
	EventWorkerStarted EventType = "worker_started"
	// EventWorkerStopped is emitted when a worker observes the closed queue and exits
	EventWorkerStopped EventType = "worker_stopped"
	// EventJobFailed is emitted when a job panics on a worker
	EventJobFailed EventType = "job_failed"
	// EventPoolDraining is emitted once, when shutdown closes the queue
	EventPoolDraining EventType = "pool_draining"
	// EventPoolStopped is emitted once, after every worker has been joined
	EventPoolStopped EventType = "pool_stopped"
	// EventChaosInjected is emitted when a faulty job is injected into a pool
	EventChaosInjected EventType = "chaos_injected"
)

// Event represents a pool or worker lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Pool      string    `json:"pool,omitempty"`
	WorkerID  int       `json:"worker_id"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Error   string `json:"error,omitempty"`
	Pending int    `json:"pending,omitempty"`
	Workers int    `json:"workers,omitempty"`
	Attack  string `json:"attack,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// NewWorkerStartedEvent creates a worker started event
func NewWorkerStartedEvent(pool string, workerID int) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
	}
}

// NewWorkerStoppedEvent creates a worker stopped event
func NewWorkerStoppedEvent(pool string, workerID int) Event {
	return Event{
		Type:      EventWorkerStopped,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
	}
}

// NewJobFailedEvent creates a job failed event from a recovered panic value
func NewJobFailedEvent(pool string, workerID int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventJobFailed,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  workerID,
		Data: EventData{
			Error: errMsg,
		},
	}
}

// NewPoolDrainingEvent creates a pool draining event
func NewPoolDrainingEvent(pool string, pending int) Event {
	return Event{
		Type:      EventPoolDraining,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  -1,
		Data: EventData{
			Pending: pending,
		},
	}
}

// NewPoolStoppedEvent creates a pool stopped event
func NewPoolStoppedEvent(pool string, workers int) Event {
	return Event{
		Type:      EventPoolStopped,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  -1,
		Data: EventData{
			Workers: workers,
		},
	}
}

// NewChaosInjectedEvent creates a chaos injection event
func NewChaosInjectedEvent(pool, attack string, count int) Event {
	return Event{
		Type:      EventChaosInjected,
		Timestamp: time.Now(),
		Pool:      pool,
		WorkerID:  -1,
		Data: EventData{
			Attack: attack,
			Count:  count,
		},
	}
}
