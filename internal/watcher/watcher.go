// Package watcher extracts palettes for images dropped into a directory and
// writes them next to the image as JSON sidecars.
package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/image"
)

// SidecarSuffix is appended to an image's file name to name its sidecar.
const SidecarSuffix = ".palette.json"

// DefaultDebounce is how long a file must be quiet before it is processed.
const DefaultDebounce = 500 * time.Millisecond

// Sidecar is the JSON document written next to each processed image.
type Sidecar struct {
	Source string               `json:"source"`
	Colors []colour.ColorRecord `json:"colors"`
}

// Event reports the outcome of processing one image.
type Event struct {
	Source  string
	Sidecar string
	Colours int
	Err     error
}

// Options configures a Watcher.
type Options struct {
	// Count is the number of colours to extract. Zero means 6.
	Count int

	// Debounce is the quiet period before a file is processed. Zero means
	// DefaultDebounce.
	Debounce time.Duration

	// Loader decodes images. Nil means image.NewFileLoader().
	Loader image.Loader

	// Logger receives progress and errors. Nil discards output.
	Logger hclog.Logger
}

// Watcher monitors one directory for new or changed images.
type Watcher struct {
	dir       string
	extractor colour.Extractor
	loader    image.Loader
	count     int
	debounce  time.Duration
	logger    hclog.Logger

	fs     *fsnotify.Watcher
	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*pendingFile
	stopped bool
}

// pendingFile is a debounced change waiting to be processed.
type pendingFile struct {
	timer *time.Timer
}

// New creates a Watcher for dir. Call Start to begin watching.
func New(dir string, extractor colour.Extractor, opts Options) (*Watcher, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	if opts.Count == 0 {
		opts.Count = 6
	}
	if opts.Count < 1 || opts.Count > colour.MaxColorCount {
		return nil, fmt.Errorf("%w: %d", colour.ErrInvalidColorCount, opts.Count)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Loader == nil {
		opts.Loader = image.NewFileLoader()
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		dir:       dir,
		extractor: extractor,
		loader:    opts.Loader,
		count:     opts.Count,
		debounce:  opts.Debounce,
		logger:    opts.Logger,
		fs:        fsWatcher,
		events:    make(chan Event, 100),
		done:      make(chan struct{}),
		pending:   make(map[string]*pendingFile),
	}, nil
}

// Start begins watching the directory.
func (w *Watcher) Start() error {
	if err := w.fs.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory", "dir", w.dir, "colours", w.count)

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Events returns the channel on which processing results are published.
// It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops watching, cancels pending work and closes the Events channel.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.done)
	for name, p := range w.pending {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, name)
	}
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	close(w.events)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// ScanExisting processes every image in the directory that has no sidecar yet.
func (w *Watcher) ScanExisting() ([]Event, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var results []Event
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.IsDir() || !Eligible(path) {
			continue
		}
		if _, err := os.Stat(SidecarPath(path)); err == nil {
			continue
		}
		results = append(results, w.Process(path))
	}
	return results, nil
}

// Process extracts the palette of the image at path and writes its sidecar.
func (w *Watcher) Process(path string) Event {
	ev := Event{Source: path}

	img, err := w.loader.Load(path)
	if err != nil {
		ev.Err = fmt.Errorf("failed to load %s: %w", path, err)
		w.logger.Warn("skipping file", "file", path, "error", err)
		return ev
	}

	records, err := w.extractor.Extract(img, w.count)
	if err != nil {
		ev.Err = fmt.Errorf("failed to extract palette from %s: %w", path, err)
		w.logger.Error("extraction failed", "file", path, "error", err)
		return ev
	}
	if records == nil {
		records = []colour.ColorRecord{}
	}

	data, err := json.MarshalIndent(Sidecar{Source: filepath.Base(path), Colors: records}, "", "  ")
	if err != nil {
		ev.Err = fmt.Errorf("failed to marshal sidecar: %w", err)
		return ev
	}

	sidecar := SidecarPath(path)
	if err := os.WriteFile(sidecar, append(data, '\n'), 0o644); err != nil { // #nosec G306 - Sidecars are ordinary output files
		ev.Err = fmt.Errorf("failed to write sidecar: %w", err)
		w.logger.Error("failed to write sidecar", "file", sidecar, "error", err)
		return ev
	}

	ev.Sidecar = sidecar
	ev.Colours = len(records)
	w.logger.Info("wrote palette", "file", filepath.Base(path), "colours", len(records))
	return ev
}

// SidecarPath returns the sidecar path for an image.
func SidecarPath(path string) string {
	return path + SidecarSuffix
}

// Eligible reports whether path names an image the watcher should process:
// a supported image (optionally .xz compressed) that is neither hidden nor a
// sidecar.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, SidecarSuffix) {
		return false
	}
	if strings.EqualFold(filepath.Ext(base), ".xz") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return image.IsImageFile(base)
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !Eligible(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	if p, ok := w.pending[event.Name]; ok {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, event.Name)
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.logger.Debug("file changed", "file", event.Name, "op", event.Op.String())
		name := event.Name
		p := &pendingFile{}
		w.wg.Add(1)
		p.timer = time.AfterFunc(w.debounce, func() { w.fire(name, p) })
		w.pending[name] = p
	}
}

// fire processes name once its debounce timer p has expired. A timer that
// was superseded or cancelled while waiting for the lock does nothing.
func (w *Watcher) fire(name string, p *pendingFile) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.stopped || w.pending[name] != p {
		w.mu.Unlock()
		return
	}
	delete(w.pending, name)
	w.mu.Unlock()

	ev := w.Process(name)
	select {
	case w.events <- ev:
	case <-w.done:
	}
}
