// Package queue provides an unbounded multi-producer, multi-consumer FIFO queue.
//
// Queue is the hand-off point between goroutines that submit work and the
// goroutines that consume it. Send never blocks; Receive blocks until an item
// is available or the queue has been closed and drained.
//
// # Basic Usage
//
//	q := queue.New[int]()
//	_ = q.Send(1)
//
//	v, ok := q.Receive() // v == 1, ok == true
//	q.Close()
//	_, ok = q.Receive() // ok == false
//
// # Delivery Guarantees
//
// Every item is delivered to exactly one receiver, in the order it was sent.
// Which receiver gets a given item is unspecified.
//
// # Limitations
//
// All operations share one mutex, so dequeue throughput is bounded by that
// lock when many consumers compete.
package queue
