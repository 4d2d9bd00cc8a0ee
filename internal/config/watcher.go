package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fsnotify/fsnotify"

	"smartctlexporter/internal/logger"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 250 * time.Millisecond

// FileWatcher monitors a single file and invokes a callback once per burst
// of modifications.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	clock    clock.Clock
	debounce time.Duration

	mu       sync.Mutex
	running  bool
	timer    *clock.Timer
	stopChan chan struct{}
	done     chan struct{}
}

// WatcherOption customizes a FileWatcher.
type WatcherOption func(*FileWatcher)

// WithClock replaces the clock used for debouncing.
func WithClock(c clock.Clock) WatcherOption {
	return func(fw *FileWatcher) { fw.clock = c }
}

// WithDebounce sets the quiet period before onChange fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(fw *FileWatcher) { fw.debounce = d }
}

// NewFileWatcher creates a watcher that calls onChange when path is written
// or recreated.
func NewFileWatcher(path string, onChange func(), opts ...WatcherOption) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		clock:    clock.New(),
		debounce: DefaultDebounce,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw, nil
}

// Start begins watching. The parent directory is watched so that atomic
// rename-on-save is seen as a Create.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}
	fw.running = true

	log := logger.WithComponent("file-watcher")
	log.Info().Str("path", fw.path).Msg("Started watching file")

	go fw.watch()
	return nil
}

// Stop stops watching and cancels a pending callback.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return fw.watcher.Close()
	}
	fw.running = false
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()

	close(fw.stopChan)
	err := fw.watcher.Close()
	<-fw.done
	return err
}

// IsRunning returns whether the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

func (fw *FileWatcher) watch() {
	defer close(fw.done)
	log := logger.WithComponent("file-watcher")
	filename := filepath.Base(fw.path)

	for {
		select {
		case <-fw.stopChan:
			log.Info().Str("path", fw.path).Msg("File watcher stopped")
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug().
				Str("path", fw.path).
				Str("event", event.Op.String()).
				Msg("File changed")
			fw.schedule()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Str("path", fw.path).Msg("File watcher error")
		}
	}
}

func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if !fw.running {
		return
	}
	if fw.timer == nil {
		fw.timer = fw.clock.AfterFunc(fw.debounce, fw.fire)
		return
	}
	fw.timer.Reset(fw.debounce)
}

func (fw *FileWatcher) fire() {
	fw.mu.Lock()
	running := fw.running
	fw.mu.Unlock()
	if running && fw.onChange != nil {
		fw.onChange()
	}
}

// NewConfigWatcher creates a watcher that reloads the full Config on change.
// Parse errors are logged and the previous configuration stays in effect.
func NewConfigWatcher(path string, callback func(*Config), opts ...WatcherOption) (*FileWatcher, error) {
	return NewFileWatcher(path, func() {
		log := logger.WithComponent("config-watcher")
		cfg, err := Load(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to reload configuration")
			return
		}
		if callback != nil {
			callback(cfg)
		}
	}, opts...)
}
