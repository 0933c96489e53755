package config

import (
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the config file when it changes on disk. The directory is
// watched rather than the file so editors that save via rename still trigger
// a reload.
type Watcher struct {
	path     string
	onChange func(Config)
	log      *log.Logger

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func Watch(path string, onChange func(Config), logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		log:      logger,
		watcher:  fw,
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

// run reloads once the file has been quiet for reloadDebounce. Saves that
// truncate and then write produce several events; only the last one counts.
func (w *Watcher) run() {
	defer close(w.done)
	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case <-timer.C:
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Printf("config watch: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Printf("config reload %s: %v (keeping previous config)", w.path, err)
		return
	}
	cfg, _, err = Migrate(cfg)
	if err != nil {
		w.log.Printf("config reload %s: %v (keeping previous config)", w.path, err)
		return
	}
	w.log.Printf("config reloaded from %s", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
