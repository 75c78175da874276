package bus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// DefaultRetention is how long message files stay in the bus directory.
const DefaultRetention = time.Minute

const msgSuffix = ".msg"

// Dir connects processes on one device through a shared directory.
//
// Announce writes one small file per message, named
// "<unix-nanos>-<seq>_<origin>.msg", via a temporary file and a rename so readers
// never see a partial message. Every Dir watches the directory with
// fsnotify and delivers messages whose origin is not its own. Files older
// than the retention period are pruned by announcers.
type Dir struct {
	dir       string
	origin    string
	logger    *slog.Logger
	retention time.Duration
	now       func() time.Time

	watcher  *fsnotify.Watcher
	handlers handlers
	seq      atomic.Uint64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ Bus = (*Dir)(nil)

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DirOption {
	return func(d *Dir) {
		d.logger = logger
	}
}

// WithRetention sets how long message files are kept.
func WithRetention(retention time.Duration) DirOption {
	return func(d *Dir) {
		d.retention = retention
	}
}

// WithOrigin overrides the generated origin id.
func WithOrigin(origin string) DirOption {
	return func(d *Dir) {
		d.origin = origin
	}
}

// NewDir attaches to the bus directory at path, creating it if needed.
func NewDir(path string, opts ...DirOption) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bus directory %s: %w", path, err)
	}

	d := &Dir{
		dir:       path,
		origin:    uuid.Must(uuid.NewV7()).String(),
		logger:    slog.Default(),
		retention: DefaultRetention,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if strings.ContainsAny(d.origin, "_/"+string(filepath.Separator)) || d.origin == "" {
		return nil, fmt.Errorf("invalid origin %q", d.origin)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	d.watcher = w

	d.wg.Add(1)
	go d.watch()
	return d, nil
}

// Origin returns this attachment's origin id.
func (d *Dir) Origin() string {
	return d.origin
}

// Announce implements Bus.
func (d *Dir) Announce(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	data, err := Update(table).Marshal()
	if err != nil {
		return fmt.Errorf("announce %q: %w", table, err)
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("announce %q: %w", table, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // No-op after a successful rename
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("announce %q: write: %w", table, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("announce %q: close: %w", table, err)
	}

	name := fmt.Sprintf("%d-%d_%s%s", d.now().UnixNano(), d.seq.Add(1), d.origin, msgSuffix)
	if err := os.Rename(tmpName, filepath.Join(d.dir, name)); err != nil {
		return fmt.Errorf("announce %q: rename: %w", table, err)
	}

	d.prune()
	return nil
}

// OnReceive implements Bus.
func (d *Dir) OnReceive(h Handler) {
	d.handlers.add(h)
}

// Close stops watching. It waits for an in-flight delivery to finish.
func (d *Dir) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		err = d.watcher.Close()
		d.wg.Wait()
	})
	return err
}

func (d *Dir) watch() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				d.receive(event.Name)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("bus watcher error", "dir", d.dir, "error", err)
		}
	}
}

func (d *Dir) receive(path string) {
	origin, ok := parseName(filepath.Base(path))
	if !ok || origin == d.origin {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Pruned before we got to it.
		if !os.IsNotExist(err) {
			d.logger.Warn("reading bus message", "path", path, "error", err)
		}
		return
	}
	m, err := ParseMessage(data)
	if err != nil {
		d.logger.Warn("dropping bus message", "path", path, "error", err)
		return
	}
	d.logger.Debug("bus message received", "table", m.Table, "origin", origin)
	d.handlers.dispatch(m)
}

// parseName extracts the origin from "<nanos>-<seq>_<origin>.msg".
func parseName(name string) (origin string, ok bool) {
	if !strings.HasSuffix(name, msgSuffix) {
		return "", false
	}
	stamp, origin, found := strings.Cut(strings.TrimSuffix(name, msgSuffix), "_")
	if !found || stamp == "" || origin == "" {
		return "", false
	}
	return origin, true
}

// prune removes message files older than the retention period.
func (d *Dir) prune() {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		d.logger.Warn("listing bus directory", "dir", d.dir, "error", err)
		return
	}
	cutoff := d.now().Add(-d.retention)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), msgSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(d.dir, e.Name()))
		}
	}
}
