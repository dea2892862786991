package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sanderbog/testwave/packages/core/runner"
)

// WatchDebounceDelay is the debounce delay for file watch events.
const WatchDebounceDelay = 300 * time.Millisecond

// watch re-runs the input list whenever one of the watched files
// changes, until the context is cancelled. The driver's exit code
// tracks the most recent pass.
func (d *driver) watch(ctx context.Context, inputs []string, runPass func() (*runner.Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	relevant := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		relevant[input] = true
		dir := filepath.Dir(input)
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(d.stderr, "testwave: cannot watch %s: %v\n", dir, err)
		}
		watched[dir] = true
	}

	fmt.Fprintln(d.stdout, "testwave: watching for changes... (press Ctrl+C to stop)")

	var debounce *time.Timer
	rerun := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			if !relevant[event.Name] && filepath.Ext(event.Name) != runner.TestFileExt {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})

		case <-rerun:
			fmt.Fprintln(d.stdout, "testwave: change detected, re-running tests...")
			res, err := runPass()
			if err != nil {
				return err
			}
			d.exitCode = res.ErrorCount

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(d.stderr, "testwave: watcher error: %v\n", err)
		}
	}
}
