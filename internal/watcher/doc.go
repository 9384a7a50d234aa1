// Package watcher reports files arriving in a directory.
//
// fsnotify is used when available, with periodic polling as a fallback for
// file systems that do not deliver notifications (network mounts, some
// container volumes). Events for the same path are coalesced over a short
// window and delivered in batches of absolute paths.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.Options{Recursive: true})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, "/home/me/Downloads") }()
//
//	for batch := range w.Events() {
//	    for _, ev := range batch {
//	        if ev.Operation.Arrival() {
//	            // handle ev.Path
//	        }
//	    }
//	}
package watcher
