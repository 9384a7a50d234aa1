// Package preflight checks that an observer can run against a configuration
// before it starts moving files.
//
// The package validates:
//   - The source directory exists
//   - The destination can be written
//   - Source and destination share a filesystem, so moves are renames
//   - Free space at the destination
//   - File descriptor limits (recursive watches need one per directory)
//   - No other observer holds the source
//   - The journal opens and the lookup service answers
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(preflight.WithLockDir(config.LockDir()))
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
