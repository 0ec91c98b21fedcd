package ontocloud

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite" // SQLite driver
)

// config holds configuration options for the Store.
type config struct {
	pragmas map[string]string
	clock   clockwork.Clock
}

// StoreOption is a function that configures a Store.
type StoreOption func(*config)

// WithPragma sets a specific SQLite PRAGMA statement.
// For example: WithPragma("synchronous", "NORMAL").
// This will override any default value for the given PRAGMA key.
// PostgreSQL stores ignore it.
func WithPragma(key, value string) StoreOption {
	return func(c *config) {
		if c.pragmas == nil {
			c.pragmas = make(map[string]string)
		}
		c.pragmas[key] = value
	}
}

// WithClock sets the clock used to timestamp new records.
func WithClock(clock clockwork.Clock) StoreOption {
	return func(c *config) {
		c.clock = clock
	}
}

// defaultConfig returns a new config with default PRAGMA settings
// for performance and concurrency.
func defaultConfig() *config {
	return &config{
		pragmas: map[string]string{
			"journal_mode": "WAL",
			"synchronous":  "NORMAL",
			"cache_size":   "-64000",
			"temp_store":   "MEMORY",
			"busy_timeout": "5000",
			"foreign_keys": "OFF",
		},
		clock: clockwork.NewRealClock(),
	}
}

func applyOptions(opts []StoreOption) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewStoreSQLite creates a new SQLite-backed Store.
// Pass ":memory:" for dbPath to create an in-memory database.
func NewStoreSQLite(dbPath string, opts ...StoreOption) (*Store, error) {
	// For in-memory databases, use a unique name with shared cache
	// This allows concurrent connections within the same database while keeping
	// different database instances separate
	if dbPath == ":memory:" {
		id := inMemoryDBCounter.Add(1)
		dbPath = fmt.Sprintf("file:ontocloud_%d?mode=memory&cache=shared", id)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	store, err := newSQLiteStore(db, true, applyOptions(opts))
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStoreSQLiteFromDB creates a new SQLite-backed Store from an existing
// database connection. The caller retains ownership of db and must close it
// separately; PRAGMA options are still applied to it.
func NewStoreSQLiteFromDB(db *sql.DB, opts ...StoreOption) (*Store, error) {
	return newSQLiteStore(db, false, applyOptions(opts))
}

func newSQLiteStore(db *sql.DB, ownsDB bool, cfg *config) (*Store, error) {
	// Sort keys for deterministic execution order (good for testing)
	keys := make([]string, 0, len(cfg.pragmas))
	for k := range cfg.pragmas {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		pragmaSQL := fmt.Sprintf("PRAGMA %s=%s", key, cfg.pragmas[key])
		if _, err := db.Exec(pragmaSQL); err != nil {
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragmaSQL, err)
		}
	}

	store := &Store{
		db:      db,
		ownsDB:  ownsDB,
		dialect: sqliteDialect{},
		clock:   cfg.clock,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}
