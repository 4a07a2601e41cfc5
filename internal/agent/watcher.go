package agent

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/vimo-ai/ai-cli-session-db/internal/pathparser"
)

// fileWatcher watches every known transcript root (and its project
// subdirectories) for .jsonl writes and debounces them before invoking
// onChange. Rapid successive writes to the same file collapse into one
// callback; a change that arrives while that file is already being
// processed is remembered and re-run once processing finishes, rather than
// racing a second collection pass against the first.
type fileWatcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func(path string)
	log      zerolog.Logger

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	inFlightMu sync.Mutex
	inFlight   map[string]bool
	dirty      map[string]bool

	watchedMu sync.Mutex
	watched   map[string]bool
}

func newFileWatcher(debounce time.Duration, onChange func(path string), log zerolog.Logger) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &fileWatcher{
		fsw:      fsw,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		timers:   make(map[string]*time.Timer),
		inFlight: make(map[string]bool),
		dirty:    make(map[string]bool),
		watched:  make(map[string]bool),
	}, nil
}

// watchRoots adds every root directory plus its immediate project
// subdirectories (where the .jsonl files actually live) to the watch set.
func (w *fileWatcher) watchRoots(roots []pathparser.Root) {
	for _, root := range roots {
		dir, err := root.Dir()
		if err != nil {
			continue
		}
		w.addDir(dir)
		projects, err := pathparser.ListProjects(root.Source, dir, 0)
		if err != nil {
			continue
		}
		for _, p := range projects {
			w.addDir(p.DirPath)
		}
	}
}

func (w *fileWatcher) addDir(dir string) {
	w.watchedMu.Lock()
	defer w.watchedMu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Warn().Str("dir", dir).Err(err).Msg("watcher: failed to watch directory")
		return
	}
	w.watched[dir] = true
}

// Run blocks, dispatching debounced onChange calls, until ctx is canceled.
func (w *fileWatcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceChange(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher: fsnotify error")

		case <-ctx.Done():
			return w.fsw.Close()
		}
	}
}

func (w *fileWatcher) debounceChange(path string) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.runChange(path) })
}

func (w *fileWatcher) runChange(path string) {
	w.inFlightMu.Lock()
	if w.inFlight[path] {
		w.dirty[path] = true
		w.inFlightMu.Unlock()
		return
	}
	w.inFlight[path] = true
	w.inFlightMu.Unlock()

	for {
		w.onChange(path)

		w.inFlightMu.Lock()
		if !w.dirty[path] {
			delete(w.inFlight, path)
			w.inFlightMu.Unlock()
			return
		}
		delete(w.dirty, path)
		w.inFlightMu.Unlock()
	}
}
