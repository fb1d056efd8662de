// Package scanner implements the auto-sync scanner: a state machine over a
// configured source folder that detects new and modified .note files and
// feeds them through the import pipeline.
//
// Change detection is polling-based and compares each file's (lastModified,
// fileSize) pair against the persisted watcher state. An fsnotify watcher on
// the source folder only shortens the wait: its events schedule an early
// scan, they never classify changes themselves.
package scanner

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/tuannvm/viwoods-obsidian/internal/manifest"
	"github.com/tuannvm/viwoods-obsidian/internal/models"
	"github.com/tuannvm/viwoods-obsidian/internal/storage"
)

// State is the scanner's lifecycle state.
type State string

const (
	Stopped        State = "stopped"
	Idle           State = "idle"
	ScanInProgress State = "scanning"
	ChangesPending State = "changes-pending"
)

// sourceExts are the accepted source container extensions.
var sourceExts = []string{".note", ".zip"}

// Importer runs the import pipeline for one source file. Satisfied by
// *importer.Service.
type Importer interface {
	ImportFile(ctx context.Context, src storage.Provider, name string) (*models.ImportSummary, error)
}

// Options configures scan scheduling. Interval is the polling period;
// StartupDelay postpones the first scan after Start; BatchSize caps how many
// changed files one import pass consumes (0 means no cap).
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
	ScanOnStart  bool
	BatchSize    int
	DebounceFor  time.Duration // quiet period after an fsnotify event
}

// Status is a point-in-time snapshot for the API surface.
type Status struct {
	State        State     `json:"state"`
	LastScan     time.Time `json:"lastScan"`
	PendingCount int       `json:"pendingCount"`
	KnownFiles   int       `json:"knownFiles"`
}

// Scanner polls the source folder and drives imports for detected changes.
// All state transitions happen under one mutex, so the periodic timer and a
// manual scan-now are mutually exclusive on the same watcher state.
type Scanner struct {
	src    *storage.FS
	store  *manifest.Store
	imp    Importer
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	ws      *models.WatcherState
	pending []models.DetectedChange

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scanner over the given source folder.
func New(src *storage.FS, store *manifest.Store, imp Importer, opts Options, logger *slog.Logger) *Scanner {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.DebounceFor <= 0 {
		opts.DebounceFor = 2 * time.Second
	}
	return &Scanner{
		src:    src,
		store:  store,
		imp:    imp,
		opts:   opts,
		logger: logger,
		state:  Stopped,
	}
}

// State returns the current lifecycle state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the scanner.
func (s *Scanner) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, PendingCount: len(s.pending)}
	if s.ws != nil {
		st.LastScan = s.ws.LastScan
		st.KnownFiles = len(s.ws.KnownFiles)
	}
	return st
}

// Start transitions Stopped → Idle, loads the persisted watcher state, and
// launches the scheduling loop. Calling Start on a running scanner is a no-op.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Stopped {
		s.mu.Unlock()
		return nil
	}
	ws, err := s.store.LoadWatcherState(s.src.Root())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	ws.IsEnabled = true
	s.ws = ws
	s.state = Idle

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

// Stop cancels scheduled scans and waits for any in-flight scan or import to
// finish, then transitions to Stopped. No scan runs after Stop returns until
// Start is called again.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.state = Stopped
	if s.ws != nil {
		s.ws.IsEnabled = false
	}
	s.mu.Unlock()
}

// run is the scheduling loop: startup scan, periodic ticker, and debounced
// fsnotify triggers. Each cycle scans and, when changes are pending, imports
// them in the same cycle.
func (s *Scanner) run(ctx context.Context) {
	defer close(s.done)

	var notifyCh chan struct{}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("scanner: fsnotify unavailable, polling only", slog.String("error", err.Error()))
	} else {
		defer w.Close()
		if err := w.Add(s.src.Root()); err != nil {
			s.logger.Warn("scanner: watch source failed", slog.String("error", err.Error()))
		} else {
			notifyCh = make(chan struct{}, 1)
			go forwardEvents(ctx, w, notifyCh)
		}
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	if s.opts.ScanOnStart {
		select {
		case <-time.After(s.opts.StartupDelay):
			s.cycle(ctx)
		case <-ctx.Done():
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			s.logger.Info("scanner: stopped")
			return

		case <-ticker.C:
			s.cycle(ctx)

		case <-notifyCh:
			if debounce == nil {
				debounce = time.NewTimer(s.opts.DebounceFor)
				debounceCh = debounce.C
			} else {
				debounce.Reset(s.opts.DebounceFor)
			}

		case <-debounceCh:
			s.cycle(ctx)
		}
	}
}

// forwardEvents collapses fsnotify events for source files into scan triggers.
func forwardEvents(ctx context.Context, w *fsnotify.Watcher, out chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isSourceExt(ev.Name) {
				continue
			}
			select {
			case out <- struct{}{}:
			default:
			}
		case _, ok := <-w.Errors:
			if !ok {
				return
			}
		}
	}
}

func isSourceExt(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range sourceExts {
		if ext == e {
			return true
		}
	}
	return false
}

// cycle runs one scan and, when changes are found, one import pass.
func (s *Scanner) cycle(ctx context.Context) {
	changes, err := s.ScanForChanges()
	if err != nil {
		s.logger.Warn("scanner: scan failed", slog.String("error", err.Error()))
		return
	}
	if len(changes) == 0 {
		return
	}
	if err := s.ImportDetectedChanges(ctx); err != nil {
		s.logger.Warn("scanner: import pass failed", slog.String("error", err.Error()))
	}
}

// ScanForChanges lists the source folder and compares each file against the
// known-file set by (lastModified, fileSize). Any divergence or new file name
// is provisionally a change. Transitions Idle → ScanInProgress →
// ChangesPending|Idle; returns the pending set.
func (s *Scanner) ScanForChanges() ([]models.DetectedChange, error) {
	s.mu.Lock()
	if s.state != Idle && s.state != ChangesPending {
		s.mu.Unlock()
		return nil, nil // stopped, or a scan/import is already running
	}
	s.state = ScanInProgress
	ws := s.ws
	s.mu.Unlock()

	metas, err := s.src.List("", sourceExts...)
	if err != nil {
		s.setState(Idle)
		return nil, err
	}

	// ws is read and mutated only under the mutex: Status serves concurrent
	// reads of LastScan and the known-file set from the HTTP surface.
	s.mu.Lock()
	var changes []models.DetectedChange
	onDisk := make(map[string]struct{}, len(metas))
	for _, meta := range metas {
		name := filepath.Base(meta.Path)
		onDisk[name] = struct{}{}

		known, ok := ws.KnownFiles[name]
		switch {
		case !ok:
			changes = append(changes, models.DetectedChange{
				FileName:     name,
				FilePath:     meta.Path,
				ChangeType:   models.ChangeNew,
				LastModified: meta.ModTime,
			})
		case !known.LastModified.Equal(meta.ModTime) || known.FileSize != meta.Size:
			changes = append(changes, models.DetectedChange{
				FileName:     name,
				FilePath:     meta.Path,
				ChangeType:   models.ChangeModified,
				LastModified: meta.ModTime,
			})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].FileName < changes[j].FileName })

	// Entries are removed only when the underlying file disappears.
	removed := 0
	for name := range ws.KnownFiles {
		if _, ok := onDisk[name]; !ok {
			delete(ws.KnownFiles, name)
			removed++
		}
	}

	ws.LastScan = time.Now()
	if err := s.store.SaveWatcherState(ws); err != nil {
		s.state = Idle
		s.mu.Unlock()
		return nil, err
	}

	s.pending = changes
	if len(changes) > 0 {
		s.state = ChangesPending
	} else {
		s.state = Idle
	}
	s.mu.Unlock()

	s.logger.Debug("scanner: scan complete",
		slog.Int("files", len(metas)),
		slog.Int("changes", len(changes)),
		slog.Int("removed", removed))
	return changes, nil
}

// ImportDetectedChanges consumes the pending change set and feeds each file
// through the import pipeline, updating the known-file set as it goes. A
// single file's failure is recorded and skipped, never aborting the batch.
// Returns to Idle when done.
func (s *Scanner) ImportDetectedChanges(ctx context.Context) error {
	s.mu.Lock()
	if s.state != ChangesPending {
		s.mu.Unlock()
		return nil
	}
	batch := s.pending
	if s.opts.BatchSize > 0 && len(batch) > s.opts.BatchSize {
		batch = batch[:s.opts.BatchSize]
		s.pending = s.pending[s.opts.BatchSize:]
	} else {
		s.pending = nil
	}
	s.state = ScanInProgress
	ws := s.ws
	s.mu.Unlock()

	for _, ch := range batch {
		if ctx.Err() != nil {
			break
		}
		summary, err := s.imp.ImportFile(ctx, s.src, ch.FilePath)
		if err != nil {
			s.logger.Warn("scanner: import failed",
				slog.String("file", ch.FileName), slog.String("error", err.Error()))
			continue
		}

		meta, err := s.src.Stat(ch.FilePath)
		if err != nil {
			s.logger.Warn("scanner: stat after import failed",
				slog.String("file", ch.FileName), slog.String("error", err.Error()))
			continue
		}
		s.mu.Lock()
		ws.KnownFiles[ch.FileName] = models.KnownFile{
			FilePath:     ch.FilePath,
			LastModified: meta.ModTime,
			FileSize:     meta.Size,
			LastImported: time.Now(),
			BookName:     summary.BookName,
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	if err := s.store.SaveWatcherState(ws); err != nil {
		s.state = Idle
		s.mu.Unlock()
		return err
	}
	if len(s.pending) > 0 {
		s.state = ChangesPending
	} else {
		s.state = Idle
	}
	s.mu.Unlock()
	return nil
}

func (s *Scanner) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
