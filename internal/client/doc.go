// Package client provides a load generator for the connection dispatcher.
//
// The Client opens one TCP connection per request against an httpd server
// and records latency and success for each. Requests are issued from the
// client's own worker pool, so the same Execute/Shutdown machinery drives
// both sides of a benchmark.
//
// # Basic Usage
//
//	config := client.DefaultConfig()
//	config.Addr = "127.0.0.1:7878"
//	config.MissingRatio = 0.2 // 20% of requests hit a 404 path
//	cl, err := client.New(config)
//
//	// Run a fixed number of requests
//	snap := cl.RunRequests(ctx, 10000)
//	fmt.Printf("Completed: %d, P99: %v\n", snap.Completed, snap.P99Latency)
//
// A Client is single-use: both Run methods shut its pool down before
// returning the snapshot.
//
// # Configuration
//
// The Config struct allows tuning:
//   - NumWorkers: parallel requests (0 = CPU count)
//   - MissingRatio: fraction of requests for a path that answers 404
//   - SleepRatio: fraction of requests for /sleep
//   - Timeout: per-request deadline
package client
