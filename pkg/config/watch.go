package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultWatchDelay is how long Watch waits for writes to settle before reloading.
const DefaultWatchDelay = 200 * time.Millisecond

// Watch reloads the registry at path whenever the file is written or
// replaced and passes the result to reloadFn. Files that fail to load are
// logged and skipped. Watching stops when ctx is cancelled.
//
// The parent directory is watched rather than the file itself, because
// editors and WriteFile replace the file by renaming over it.
func Watch(ctx context.Context, path string, logger zerolog.Logger, reloadFn func(*Registry) error) error {
	return watch(ctx, path, DefaultWatchDelay, logger, reloadFn)
}

func watch(ctx context.Context, path string, delay time.Duration, logger zerolog.Logger, reloadFn func(*Registry) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	logger = logger.With().Str("component", "config-watch").Str("file", abs).Logger()
	go processEvents(ctx, watcher, abs, delay, logger, reloadFn)

	logger.Debug().Msg("Watching engine configuration")
	return nil
}

func processEvents(ctx context.Context, watcher *fsnotify.Watcher, path string, delay time.Duration, logger zerolog.Logger, reloadFn func(*Registry) error) {
	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			logger.Debug().Str("op", event.Op.String()).Msg("Engine configuration changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(delay, func() {
				if ctx.Err() != nil {
					return
				}
				reg, err := ReadFile(path)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to reload engine configuration")
					return
				}
				if err := reloadFn(reg); err != nil {
					logger.Error().Err(err).Msg("Failed to apply reloaded engine configuration")
					return
				}
				logger.Info().Int("engines", reg.Len()).Msg("Engine configuration reloaded")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
