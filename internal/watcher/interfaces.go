// Package watcher monitors Lua sources and manual pages for changes so
// the documentation can be rebuilt on save.
package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing and
// pause/resume support.
type FileWatcher interface {
	// Start begins watching source directories, calling callback with
	// debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during
	// pause, fires immediately.
	Resume()
}
