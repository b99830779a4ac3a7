// Package worker provides a fixed-size goroutine pool for concurrent job execution.
//
// A Pool starts a fixed number of worker goroutines that take jobs from one
// shared, unbounded FIFO queue. Every accepted job runs exactly once. The
// pool never grows or shrinks: a job that panics is recovered and reported,
// and its worker goes back to the queue.
//
// # Basic Usage
//
//	pool, err := worker.New(4) // 4 workers
//	if err != nil {
//	    log.Fatal(err) // size must be > 0
//	}
//	defer pool.Close()
//
//	// Submit jobs
//	for i := 0; i < 100; i++ {
//	    if err := pool.Execute(func() {
//	        // do work
//	    }); err != nil {
//	        // worker.ErrPoolClosed: shutdown has begun
//	    }
//	}
//
// # Configuration
//
// Use NewWithConfig to attach an event bus, metrics, or a panic handler:
//
//	pool, err := worker.NewWithConfig(worker.Config{
//	    Size:    8,
//	    Name:    "http",
//	    Events:  bus,
//	    Metrics: metrics.New(),
//	})
//
// # Lifecycle
//
// A pool moves through three states: Accepting, Draining and Stopped.
// Shutdown closes the queue, so Execute fails with ErrPoolClosed from then
// on, and returns only after every queued job has run and every worker has
// exited. Shutdown is idempotent. It must not be called from inside a job,
// since it waits for that job's worker.
package worker
