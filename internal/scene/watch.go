package scene

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports scene files that changed on disk. It runs its own
// goroutine and never touches the World; the game loop drains Changed().
type Watcher struct {
	fs      *fsnotify.Watcher
	files   map[string]bool
	changed chan string
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	log     *zap.Logger
}

func NewWatcher(log *zap.Logger) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:      fsWatch,
		files:   make(map[string]bool),
		changed: make(chan string, 16),
		done:    make(chan struct{}),
		log:     log,
	}
	go w.start()
	return w, nil
}

// Add starts watching path. The parent directory is watched so that editors
// which replace files atomically are still seen.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.files[abs] = true
	w.mu.Unlock()
	select {
	case <-w.done:
		return errors.New("scene watcher already closed")
	default:
	}
	return w.fs.Add(filepath.Dir(abs))
}

// Changed delivers absolute paths of watched files that were written.
func (w *Watcher) Changed() <-chan string { return w.changed }

func (w *Watcher) start() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			w.mu.Lock()
			watched := w.files[abs]
			w.mu.Unlock()
			if !watched {
				continue
			}
			select {
			case w.changed <- abs:
			default:
				// A reload is already pending; it will read the latest content.
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("scene watcher", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}
