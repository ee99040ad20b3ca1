package logview

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
)

// followPollInterval is the fallback re-read cadence for platforms where
// file watch events are unreliable or coalesced.
const followPollInterval = time.Second

// Follow streams bytes appended to path until the context is cancelled.
// Truncation and rotation reset the read offset, so a rotated log keeps
// streaming from its new beginning. Previously emitted content is never
// re-emitted.
func Follow(ctx context.Context, w io.Writer, path string, logger logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewIOError("failed to open log file", err).WithContext("path", path)
	}
	defer func() {
		f.Close()
	}()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.NewIOError("failed to seek log file", err).WithContext("path", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewIOError("failed to create file watcher", err)
	}

	// Watch the directory, not the file: rotation replaces the inode and a
	// file-level watch would go stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return errors.NewIOError("failed to watch log directory", err).WithContext("path", path)
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		watcher.Close()
	})

	// Periodic wakeups cover appends that produce no watch event.
	wake := make(chan struct{}, 1)
	sctx.Go(func(sctx *stopper.Context) error {
		ticker := time.NewTicker(followPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sctx.Stopping():
				return nil
			case <-ticker.C:
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}
	})
	defer func() {
		sctx.Stop(100 * time.Millisecond)
		_ = sctx.Wait()
	}()

	emit := func() error {
		info, err := os.Stat(path)
		if err != nil {
			// The file can vanish briefly mid-rotation.
			return nil
		}
		current, statErr := f.Stat()
		replaced := statErr != nil || !os.SameFile(info, current)
		if replaced || info.Size() < offset {
			// Truncated, or rotation swapped in a new inode under the same
			// path: reopen from the start.
			reopened, err := os.Open(path)
			if err != nil {
				return errors.NewIOError("failed to reopen log file", err).WithContext("path", path)
			}
			f.Close()
			f = reopened
			offset = 0
		}
		n, err := io.Copy(w, io.NewSectionReader(f, offset, info.Size()-offset))
		offset += n
		if err != nil {
			return errors.NewIOError("failed to stream log file", err).WithContext("path", path)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := emit(); err != nil {
					return err
				}
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("Log watch error, path: %s, error: %v", path, watchErr)
		case <-wake:
			if err := emit(); err != nil {
				return err
			}
		}
	}
}
