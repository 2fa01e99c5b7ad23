package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/five82/matdeck/internal/actions"
	"github.com/five82/matdeck/internal/asset"
)

// DefaultDebounce is how long a folder must be quiet before pending files are
// uploaded. Material exporters write in several chunks.
const DefaultDebounce = 2 * time.Second

// shutdownFlushTimeout bounds the final upload of pending files after Run's
// context is cancelled.
const shutdownFlushTimeout = time.Minute

// Uploader is the part of actions.Service the watcher needs.
type Uploader interface {
	Upload(ctx context.Context, paths []string, opts actions.UploadOptions) actions.UploadResult
}

var _ Uploader = (*actions.Service)(nil)

// Options configure a Watcher.
type Options struct {
	Dir      string
	Debounce time.Duration // zero uses DefaultDebounce
	Tags     []string      // applied to every upload
	Existing bool          // upload files already in Dir on start
	Logger   *zap.Logger

	// OnUpload is called after each flush. Optional.
	OnUpload func(paths []string, res actions.UploadResult)
}

// Watcher uploads .sbs and .sbsar files that appear or change in a folder.
// Each file is uploaded at most once per modification time.
type Watcher struct {
	up   Uploader
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	seen    map[string]time.Time
	flush   chan struct{}
	timer   *time.Timer
}

// New validates opts and returns a Watcher. Run starts it.
func New(up Uploader, opts Options) (*Watcher, error) {
	if up == nil {
		return nil, errors.New("watch: uploader is required")
	}
	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", abs)
	}
	opts.Dir = abs
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		up:      up,
		opts:    opts,
		log:     log,
		pending: make(map[string]struct{}),
		seen:    make(map[string]time.Time),
		flush:   make(chan struct{}, 1),
	}, nil
}

// Dir returns the absolute watched directory.
func (w *Watcher) Dir() string {
	return w.opts.Dir
}

// Run watches until ctx is cancelled. Files still waiting for the quiet
// period are uploaded before it returns, with a context detached from ctx
// and limited to one minute.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.opts.Dir, err)
	}
	w.log.Info("watching folder", zap.String("dir", w.opts.Dir), zap.Duration("debounce", w.opts.Debounce))

	if w.opts.Existing {
		if err := w.queueExisting(); err != nil {
			return err
		}
	}

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-w.flush:
			w.Flush(ctx)

		case <-ctx.Done():
			w.stopTimer()
			fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			w.Flush(fctx)
			cancel()
			return nil
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !Eligible(event.Name) {
		return
	}
	w.log.Debug("material changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.enqueue(event.Name)
}

// Eligible reports whether path names a material file worth uploading.
// Hidden files and editor temporaries are skipped.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	_, ok := asset.FileTypeFromPath(path)
	return ok
}

func (w *Watcher) queueExisting() error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.opts.Dir, err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && Eligible(e.Name()) {
			w.enqueue(filepath.Join(w.opts.Dir, e.Name()))
		}
	}
	return nil
}

// enqueue adds path and restarts the quiet-period timer.
func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() {
		select {
		case w.flush <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Flush uploads every pending file whose modification time has not been
// uploaded yet. It returns the paths it submitted.
func (w *Watcher) Flush(ctx context.Context) []string {
	w.mu.Lock()
	candidates := make([]string, 0, len(w.pending))
	for p := range w.pending {
		candidates = append(candidates, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	slices.Sort(candidates)

	var (
		paths   []string
		modTime = make(map[string]time.Time, len(candidates))
	)
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		w.mu.Lock()
		prev, done := w.seen[p]
		w.mu.Unlock()
		if done && prev.Equal(info.ModTime()) {
			continue
		}
		paths = append(paths, p)
		modTime[p] = info.ModTime()
	}
	if len(paths) == 0 {
		return nil
	}

	w.log.Info("uploading changed materials", zap.Int("count", len(paths)))
	res := w.up.Upload(ctx, paths, actions.UploadOptions{Tags: w.opts.Tags})

	failed := make(map[string]struct{}, len(res.Failed))
	for _, f := range res.Failed {
		failed[f.ID] = struct{}{}
	}
	w.mu.Lock()
	for _, p := range paths {
		// Failed uploads stay unseen so the next change retries them.
		if _, bad := failed[p]; !bad {
			w.seen[p] = modTime[p]
		}
	}
	w.mu.Unlock()

	if w.opts.OnUpload != nil {
		w.opts.OnUpload(paths, res)
	}
	return paths
}
