// Package metrics provides job execution metrics collection and reporting.
//
// Metrics collects statistics about job latency, success/failure counts,
// rejected submissions, busy workers, and throughput. Every counter is kept
// both as an atomic value (for Snapshot) and as a Prometheus collector on a
// private registry (for scraping).
//
// # Basic Usage
//
//	m := metrics.New()
//
//	// Record jobs
//	m.RecordSubmitted()
//	m.JobStarted()
//	start := time.Now()
//	// ... run job ...
//	m.RecordSuccess(time.Since(start))
//
//	// Get statistics
//	fmt.Printf("Completed: %d, P99: %v\n", m.Completed(), m.P99Latency())
//
//	// Expose to Prometheus
//	http.Handle("/metrics", m.Handler())
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	config := metrics.Config{
//	    Namespace:         "myapp",
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	}
//	m := metrics.NewWithConfig(config)
//
// # Thread Safety
//
// All operations use atomic counters or locks and are safe for concurrent access.
package metrics
