package main

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/util"
)

// configWatcher reloads the log level when the config file changes. Other
// fields only take effect on the next run.
type configWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// watchConfig watches the directory holding path so that editors which
// replace the file by rename are also seen.
func watchConfig(path string) (*configWatcher, error) {
	path = expandPath(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	cw := &configWatcher{watcher: w, path: filepath.Clean(path), done: make(chan struct{})}
	util.SafeGoWithName("config-watcher", cw.loop)
	return cw, nil
}

func (cw *configWatcher) loop() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cw.reload()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("config watcher error", logging.Component("config"), logging.Err(err))
		}
	}
}

func (cw *configWatcher) reload() {
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		logging.Warn("ignoring invalid config change", logging.Component("config"), logging.Err(err))
		return
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return
	}
	if level != logging.Level() {
		logging.SetLevel(level)
		logging.Info("log level changed", logging.Component("config"), "level", level.String())
	}
}

// Close stops watching and waits for the loop to exit.
func (cw *configWatcher) Close() error {
	err := cw.watcher.Close()
	<-cw.done
	return err
}
