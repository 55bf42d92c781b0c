package site

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"qapages/errors"
)

// Watch calls onChange with the folder name whenever a run folder appears
// under the root. It blocks until ctx is done.
func (s *Site) Watch(ctx context.Context, logger zerolog.Logger, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create site watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(s.Root); err != nil {
		return errors.Wrapf(err, "watch %s", s.Root)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(ev.Name)
			if _, err := ParseRunName(name); err != nil {
				continue
			}
			logger.Debug().Str("run", name).Msg("run folder appeared")
			onChange(name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("site watcher error")
		}
	}
}
