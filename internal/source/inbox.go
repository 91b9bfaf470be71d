package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"cashcue/internal/logging"
)

const (
	inboxPoll      = 250 * time.Millisecond
	inboxSettle    = 300 * time.Millisecond
	inboxQueueSize = 64
)

// ProcessedDir is the inbox subfolder that handled images move into.
const ProcessedDir = "processed"

// InboxHandler processes one settled image dropped into the inbox.
type InboxHandler func(ctx context.Context, path string)

// Inbox watches a directory for new images and hands each one to a handler
// once writes have settled. Handled files move into a processed/ subfolder.
type Inbox struct {
	dir    string
	logger *slog.Logger
	settle time.Duration
}

// NewInbox constructs an inbox watcher for dir.
func NewInbox(dir string, logger *slog.Logger) *Inbox {
	return &Inbox{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "inbox"),
		settle: inboxSettle,
	}
}

// Dir returns the watched directory.
func (i *Inbox) Dir() string { return i.dir }

// Run processes existing images, then watches for new ones until ctx ends.
func (i *Inbox) Run(ctx context.Context, handle InboxHandler) error {
	if err := os.MkdirAll(filepath.Join(i.dir, ProcessedDir), 0o755); err != nil {
		return fmt.Errorf("ensure inbox: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(i.dir); err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}
	i.logger.Info("watching inbox", logging.String("dir", i.dir))

	files := make(chan string, inboxQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for path := range files {
			i.process(ctx, path, handle)
		}
	}()
	defer func() {
		close(files)
		<-done
	}()

	for _, name := range i.existing() {
		select {
		case files <- filepath.Join(i.dir, name):
		case <-ctx.Done():
			return nil
		}
	}

	pending := map[string]time.Time{}
	ticker := time.NewTicker(inboxPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !IsSupportedImage(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for path, seen := range pending {
				if now.Sub(seen) < i.settle {
					continue
				}
				delete(pending, path)
				select {
				case files <- path:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(i.logger, "inbox watch error", "inbox_watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some dropped images may be missed"),
			)
		}
	}
}

func (i *Inbox) process(ctx context.Context, path string, handle InboxHandler) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	handle(ctx, path)
	dest := filepath.Join(i.dir, ProcessedDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		logging.WarnWithContext(i.logger, "failed to archive inbox image", "inbox_archive_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "image will be processed again on restart"),
		)
	}
}

func (i *Inbox) existing() []string {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsSupportedImage(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}
