// Package logger provides a simple, thread-safe logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional scope, and message.
// The scope names the component that wrote the entry, such as "pool" or
// "worker-3".
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Application started")
//	logger.Info("worker-1", "job started")
//	logger.Error("worker-1", "job panicked: %v", r)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("pool", "Debug message")
//
// # Output
//
// Setup configures the default logger from a Config. When Config.File is
// set, entries go to a size-rotated file managed by lumberjack:
//
//	logger.Setup(logger.Config{
//	    Level:     "debug",
//	    File:      "/var/log/jobpool.log",
//	    MaxSizeMB: 50,
//	})
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
