package ontocloud

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewStorePostgreSQL creates a new PostgreSQL-backed Store.
// It accepts a standard PostgreSQL connection string.
func NewStorePostgreSQL(connStr string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	store := &Store{
		db:      db,
		ownsDB:  true,
		dialect: postgresDialect{},
		clock:   applyOptions(opts).clock,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema for PostgreSQL: %w", err)
	}
	return store, nil
}

// NewStorePostgreSQLFromDB creates a new PostgreSQL-backed Store from an
// existing database connection. The caller retains ownership of the db
// connection and must close it separately.
func NewStorePostgreSQLFromDB(db *sql.DB, opts ...StoreOption) (*Store, error) {
	store := &Store{
		db:      db,
		ownsDB:  false,
		dialect: postgresDialect{},
		clock:   applyOptions(opts).clock,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema for PostgreSQL: %w", err)
	}
	return store, nil
}
