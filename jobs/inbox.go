package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/odyssey-erp/odyssey-ledger/internal/banking"
	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// queuedSuffix marks inbox files that were handed to the queue.
const queuedSuffix = ".queued"

// ImportEnqueuer submits statement import tasks.
type ImportEnqueuer interface {
	EnqueueStatementImport(ctx context.Context, payload StatementImportPayload) error
}

// InboxWatcher enqueues statement files dropped into <dir>/<tenantID>/.
type InboxWatcher struct {
	dir      string
	queue    ImportEnqueuer
	logger   *slog.Logger
	settle   time.Duration
	maxBytes int64

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// NewInboxWatcher builds a watcher. A file is picked up once it has not been
// written for settle.
func NewInboxWatcher(dir string, queue ImportEnqueuer, logger *slog.Logger, settle time.Duration, maxBytes int64) *InboxWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = banking.DefaultMaxStatementBytes
	}
	return &InboxWatcher{
		dir:      dir,
		queue:    queue,
		logger:   logger,
		settle:   settle,
		maxBytes: maxBytes,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}
}

// Run watches until ctx is cancelled. Files already present at start are
// enqueued as well.
func (w *InboxWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	defer watcher.Close()
	defer close(w.done)

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.watchTenantDir(watcher, filepath.Join(w.dir, entry.Name()))
		}
	}
	w.logger.Info("statement inbox watching", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("statement inbox watcher error", slog.Any("error", err))
		case path := <-w.ready:
			w.enqueue(ctx, path)
		}
	}
}

func (w *InboxWatcher) watchTenantDir(watcher *fsnotify.Watcher, dir string) {
	if _, err := tenantFromDir(filepath.Base(dir)); err != nil {
		return
	}
	if err := watcher.Add(dir); err != nil {
		w.logger.Warn("statement inbox watch tenant dir", slog.Any("error", err), slog.String("dir", dir))
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.schedule(filepath.Join(dir, entry.Name()))
		}
	}
}

func (w *InboxWatcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if filepath.Dir(event.Name) == filepath.Clean(w.dir) {
			w.watchTenantDir(watcher, event.Name)
		}
		return
	}
	w.schedule(event.Name)
}

// schedule (re)starts the settle timer of path.
func (w *InboxWatcher) schedule(path string) {
	if _, _, err := w.locate(path); err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *InboxWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// locate validates that path is <dir>/<tenantID>/<file> and returns the tenant.
func (w *InboxWatcher) locate(path string) (shared.TenantID, string, error) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return 0, "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 2 {
		return 0, "", errors.New("inbox: file outside a tenant directory")
	}
	name := parts[1]
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, queuedSuffix) {
		return 0, "", errors.New("inbox: ignored file")
	}
	tenant, err := tenantFromDir(parts[0])
	if err != nil {
		return 0, "", err
	}
	return tenant, name, nil
}

func (w *InboxWatcher) enqueue(ctx context.Context, path string) {
	tenant, name, err := w.locate(path)
	if err != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Size() > w.maxBytes {
		w.logger.Warn("statement inbox file too large", slog.String("path", path), slog.Int64("bytes", info.Size()))
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("statement inbox read", slog.Any("error", err), slog.String("path", path))
		return
	}
	payload := StatementImportPayload{TenantID: int64(tenant), Filename: name, Content: content}
	if err := w.queue.EnqueueStatementImport(ctx, payload); err != nil {
		w.logger.Error("statement inbox enqueue", slog.Any("error", err), slog.String("path", path))
		return
	}
	if err := os.Rename(path, path+queuedSuffix); err != nil {
		w.logger.Warn("statement inbox rename", slog.Any("error", err), slog.String("path", path))
	}
	w.logger.Info("statement queued from inbox", slog.Int64("tenant_id", int64(tenant)), slog.String("filename", name))
}

func tenantFromDir(name string) (shared.TenantID, error) {
	return shared.ParseTenantID(name)
}
