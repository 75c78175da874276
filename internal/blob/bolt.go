package blob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("snapshots")

// DefaultLockTimeout bounds how long a Bolt call waits for another process
// holding the database file.
const DefaultLockTimeout = 5 * time.Second

// Bolt stores values in a bbolt database file.
//
// bbolt takes an exclusive file lock for as long as the database is open.
// To let several processes share the file, Bolt opens it for each call and
// closes it again; the lock is held only for the duration of one Get or Put.
type Bolt struct {
	path        string
	logger      *slog.Logger
	lockTimeout time.Duration
	noSync      bool

	mu     sync.Mutex
	closed bool
}

// BoltOption configures a Bolt store.
type BoltOption func(*Bolt)

// WithBoltLogger sets the logger.
func WithBoltLogger(logger *slog.Logger) BoltOption {
	return func(b *Bolt) {
		b.logger = logger
	}
}

// WithLockTimeout sets how long to wait for the file lock.
func WithLockTimeout(d time.Duration) BoltOption {
	return func(b *Bolt) {
		b.lockTimeout = d
	}
}

// WithNoSync disables fsync per transaction.
// WARNING: use only for tests; a crash may lose the last snapshot.
func WithNoSync(noSync bool) BoltOption {
	return func(b *Bolt) {
		b.noSync = noSync
	}
}

// NewBolt returns a Bolt store for the database file at path. The file and
// its bucket are created on first use.
func NewBolt(path string, opts ...BoltOption) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	b := &Bolt{
		path:        path,
		logger:      slog.Default(),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	// Create the file and bucket up front so a bad path fails here.
	err := b.with(false, func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bolt) with(readOnly bool, fn func(tx *bbolt.Tx) error) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	db, err := bbolt.Open(b.path, 0o600, &bbolt.Options{
		Timeout:  b.lockTimeout,
		ReadOnly: readOnly,
		NoSync:   b.noSync,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", b.path, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			b.logger.Warn("closing bolt database", "path", b.path, "error", err)
		}
	}()

	if readOnly {
		return db.View(fn)
	}
	return db.Update(fn)
}

// Get implements Store.
func (b *Bolt) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var (
		value string
		ok    bool
	)
	err := b.with(true, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key)); v != nil {
			// v is only valid inside the transaction.
			value = string(v)
			ok = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, ok, nil
}

// Put implements Store.
func (b *Bolt) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.with(false, func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	b.logger.Debug("snapshot stored", "key", key, "bytes", len(value))
	return nil
}

// Close implements Store. The file is never held open between calls, so
// Close only marks the store unusable.
func (b *Bolt) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
