package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/cadenroberts/OllamaBot-sub010/internal/logging"
	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Watcher reloads config.yaml on write, for long-running processes (the
// HTTP server, primarily) that would otherwise need a restart to pick up
// a changed model mapping or tier override. Start/stop shape is
// generalized from the teacher's internal/vcs.Watcher — this package has
// no analogue of its own since the CLI only ever reads config once per
// invocation.
type Watcher struct {
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher watches Path() for writes, invoking onChange with the
// freshly reloaded config each time. A reload error is logged and
// skipped rather than propagated, so a transient write-in-progress read
// never tears down the watcher.
func NewWatcher(onChange func(*types.Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(Dir()); err != nil {
		w.Close()
		return nil, err
	}

	watcher := &Watcher{watcher: w, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	go watcher.run(onChange)
	return watcher, nil
}

func (w *Watcher) run(onChange func(*types.Config)) {
	defer close(w.doneCh)
	path := Path()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(Dir())
			if err != nil {
				logging.Warn().Str("component", "config").Err(err).Msg("config: reload after file-watch event failed, keeping prior config")
				continue
			}
			onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Str("component", "config").Err(err).Msg("config: watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
