package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/tabsync/internal/blob"
	"github.com/roach88/tabsync/internal/bus"
	"github.com/roach88/tabsync/internal/registry"
	"github.com/roach88/tabsync/internal/schema"
	"github.com/roach88/tabsync/internal/snapshot"
	"github.com/roach88/tabsync/internal/store"
)

// DefaultKey is the blob store key holding the snapshot.
const DefaultKey = "social_db"

// State is the lifecycle state of a DB.
type State int32

const (
	// StateUninitialized is the state before Open completes.
	StateUninitialized State = iota
	// StateReady means the engine is loaded and accepting calls.
	StateReady
	// StateUnready means bootstrap failed. It is permanent.
	StateUnready
	// StateClosed means Close was called.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateUnready:
		return "unready"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DB is one context's handle on the local data engine. Create one per
// context with Open and pass it to callers; there is no global instance.
//
// Thread-safety: all methods are safe for concurrent use. Commits and
// remote reloads are serialized.
type DB struct {
	blob     blob.Store
	bus      bus.Bus
	registry *registry.Registry
	logger   *slog.Logger

	key          string
	origin       string
	catalog      []schema.Table
	tables       map[string]schema.Table
	remoteReload bool
	newEngine    func() (*store.Store, error)

	state          atomic.Int32
	applyingRemote atomic.Bool
	bootErr        error

	// mu serializes commits and engine swaps. Readers load engine
	// without it.
	mu     sync.Mutex
	engine atomic.Pointer[store.Store]
}

// Option configures a DB.
type Option func(*DB)

// WithBus connects the DB to a cross-context bus.
func WithBus(b bus.Bus) Option {
	return func(d *DB) {
		d.bus = b
	}
}

// WithKey sets the blob store key. Default: DefaultKey.
func WithKey(key string) Option {
	return func(d *DB) {
		d.key = key
	}
}

// WithTables overrides the table catalog. Default: schema.Load().
func WithTables(tables []schema.Table) Option {
	return func(d *DB) {
		d.catalog = tables
	}
}

// WithRemoteReload enables reloading the stored snapshot when another
// context announces a change.
func WithRemoteReload(enabled bool) Option {
	return func(d *DB) {
		d.remoteReload = enabled
	}
}

// WithOrigin sets the id recorded as last writer in committed snapshots.
// Default: a fresh UUIDv7.
func WithOrigin(origin string) Option {
	return func(d *DB) {
		d.origin = origin
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// withEngineFactory replaces engine construction, for tests.
func withEngineFactory(fn func() (*store.Store, error)) Option {
	return func(d *DB) {
		d.newEngine = fn
	}
}

// Open bootstraps a DB from the snapshot stored in b.
//
// If the engine cannot be built, Open returns a DB in StateUnready together
// with the error; every later call on that DB fails with
// CodeEngineUnavailable. A stored snapshot that cannot be decoded is logged
// and replaced by empty tables.
func Open(ctx context.Context, b blob.Store, opts ...Option) (*DB, error) {
	d := &DB{
		blob:      b,
		key:       DefaultKey,
		logger:    slog.Default(),
		newEngine: store.Open,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.origin == "" {
		d.origin = uuid.Must(uuid.NewV7()).String()
	}
	d.registry = registry.New(d.logger)

	if err := d.bootstrap(ctx); err != nil {
		d.bootErr = err
		d.state.Store(int32(StateUnready))
		d.logger.Error("bootstrap failed", "error", err)
		return d, err
	}

	if d.bus != nil {
		d.bus.OnReceive(d.handleRemote)
	}
	d.state.Store(int32(StateReady))
	return d, nil
}

func (d *DB) bootstrap(ctx context.Context) error {
	unavailable := func(err error) error {
		return &Error{Code: CodeEngineUnavailable, Op: "bootstrap", Err: err}
	}

	if d.blob == nil {
		return unavailable(errors.New("no blob store"))
	}
	if d.key == "" {
		return unavailable(errors.New("empty snapshot key"))
	}
	if d.catalog == nil {
		catalog, err := schema.Load()
		if err != nil {
			return unavailable(err)
		}
		d.catalog = catalog
	}
	d.tables = make(map[string]schema.Table, len(d.catalog))
	for _, t := range d.catalog {
		d.tables[t.Name] = t
	}

	text, found, err := d.blob.Get(ctx, d.key)
	if err != nil {
		// Starting empty here would overwrite data we merely failed to read.
		return unavailable(fmt.Errorf("read snapshot: %w", err))
	}

	engine, loaded, err := d.buildEngine(ctx, text, found)
	if err != nil {
		return unavailable(err)
	}
	d.engine.Store(engine)

	gen, origin, err := engine.Generation(ctx)
	if err != nil {
		return unavailable(err)
	}
	d.logger.Info("engine ready",
		"key", d.key, "loaded", loaded, "generation", gen, "origin", origin, "tables", len(d.catalog))

	if !loaded {
		if err := d.persist(ctx); err != nil {
			// The next commit persists the full image again.
			d.logger.Warn("persisting initial snapshot", "key", d.key, "error", err)
		}
	}
	return nil
}

// buildEngine creates an engine holding the catalog tables, loaded from the
// stored text when present and decodable. loaded reports whether the
// snapshot was used.
func (d *DB) buildEngine(ctx context.Context, text string, found bool) (engine *store.Store, loaded bool, err error) {
	engine, err = d.newEngine()
	if err != nil {
		return nil, false, err
	}

	if found {
		if err := importSnapshot(ctx, engine, text); err != nil {
			d.logger.Warn("stored snapshot unusable, starting empty",
				"key", d.key, "error", &Error{Code: CodeDecodeFailed, Op: "bootstrap", Err: err})
		} else {
			loaded = true
		}
	}

	for _, t := range d.catalog {
		if err := engine.CreateTable(ctx, t.Name, t.Ordered); err != nil {
			engine.Close()
			return nil, false, err
		}
	}
	return engine, loaded, nil
}

func importSnapshot(ctx context.Context, engine *store.Store, text string) error {
	image, err := snapshot.Decode(text)
	if err != nil {
		return err
	}
	return engine.ImportImage(ctx, image)
}

// State returns the lifecycle state.
func (d *DB) State() State {
	return State(d.state.Load())
}

// Origin returns the id this DB records as writer.
func (d *DB) Origin() string {
	return d.origin
}

// ApplyingRemote reports whether a remote reload is in progress.
func (d *DB) ApplyingRemote() bool {
	return d.applyingRemote.Load()
}

// Catalog returns the tables created at bootstrap.
func (d *DB) Catalog() []schema.Table {
	out := make([]schema.Table, len(d.catalog))
	copy(out, d.catalog)
	return out
}

// ready returns an error unless the DB is serving calls.
func (d *DB) ready(op string) error {
	switch d.State() {
	case StateReady:
		return nil
	case StateUnready:
		return &Error{Code: CodeEngineUnavailable, Op: op, Err: d.bootErr}
	default:
		return &Error{Code: CodeEngineUnavailable, Op: op, Err: fmt.Errorf("db is %s", d.State())}
	}
}

// Close releases the engine. The durable snapshot is left as is. The bus
// is owned by the caller and not closed.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.State() == StateClosed {
		return nil
	}
	d.state.Store(int32(StateClosed))
	engine := d.engine.Load()
	if engine == nil {
		return nil
	}
	return engine.Close()
}
