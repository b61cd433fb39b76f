package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/arrgate/internal/logger"
)

// DefaultDebounce is how long the watcher waits for a burst of file events to
// settle before signalling a change.
const DefaultDebounce = 500 * time.Millisecond

// Watch signals on the returned channel whenever an artifact file is created,
// written, renamed or removed. Bursts of events are coalesced into one signal.
// The channel is closed when ctx is done.
func (r *Repository) Watch(ctx context.Context) (<-chan struct{}, error) {
	return r.watch(ctx, DefaultDebounce)
}

func (r *Repository) watch(ctx context.Context, debounce time.Duration) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	info, err := os.Stat(r.path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}

	// A single file is watched through its directory so that editors replacing
	// the file (rename over) are still seen.
	root := r.path
	if !info.IsDir() {
		root = filepath.Dir(r.path)
	}
	if err := addTree(watcher, root); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	logger.Info("Watching %s for artifact changes", root)

	changes := make(chan struct{}, 1)
	go r.run(ctx, watcher, changes, debounce, !info.IsDir())
	return changes, nil
}

func (r *Repository) run(
	ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}, debounce time.Duration, singleFile bool,
) {
	defer close(changes)
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !singleFile {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn("Cannot watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !r.relevant(event, singleFile) {
				continue
			}
			logger.Debug("Artifact event: %s %s", event.Op, event.Name)
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Artifact watcher error: %v", err)

		case <-timer.C:
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

func (r *Repository) relevant(event fsnotify.Event, singleFile bool) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if singleFile {
		return filepath.Clean(event.Name) == r.path
	}
	return isArtifactFile(event.Name)
}

// addTree adds root and every directory below it; fsnotify is not recursive.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
