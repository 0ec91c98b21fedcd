package ontocloud

import (
	"fmt"
	"strings"
)

const datasetColumns = "id, name, description, json_data, file_size, uploaded_by, created_at"

const ttlColumns = "id, dataset_id, ttl_content, created_by, created_at"

// dialect defines an interface for generating database-specific SQL.
type dialect interface {
	// schemaSQL returns the statements creating the tables and indexes, in order.
	schemaSQL() []string
	// insertDatasetSQL returns the SQL for inserting a single dataset row.
	insertDatasetSQL() string
	// getDatasetSQL returns the SQL for selecting a dataset by id.
	getDatasetSQL() string
	// deleteDatasetSQL returns the SQL for deleting a dataset by id.
	deleteDatasetSQL() string
	// lockDatasetSQL returns the SQL that checks a dataset exists and keeps it
	// from being deleted until the surrounding transaction ends.
	lockDatasetSQL() string
	// detachTTLSQL returns the SQL for unlinking the Turtle documents of a dataset.
	detachTTLSQL() string
	// insertTTLSQL returns the SQL for inserting a Turtle document row.
	insertTTLSQL() string
	// getTTLSQL returns the SQL for selecting a Turtle document by id.
	getTTLSQL() string
	// listTTLByDatasetSQL returns the SQL for listing the Turtle documents of a dataset.
	listTTLByDatasetSQL() string
	// batchInsertDatasetsSQL builds a multi-row INSERT statement for a given number of rows.
	batchInsertDatasetsSQL(numRows int) string
}

// schemaStatements creates the tables. Both dialects keep json_data as TEXT so that
// object members come back in the order they were stored. ttl_files.dataset_id
// is checked and detached by the store rather than by a foreign key, since the
// SQLite connection runs with foreign_keys=OFF.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		json_data TEXT,
		file_size BIGINT NOT NULL DEFAULT 0,
		uploaded_by TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets(created_at)`,
	`CREATE TABLE IF NOT EXISTS ttl_files (
		id TEXT PRIMARY KEY,
		dataset_id TEXT,
		ttl_content TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ttl_files_dataset_id ON ttl_files(dataset_id)`,
}

// Queries without parameters are shared by both dialects.
const (
	listDatasetsSQL = `SELECT ` + datasetColumns + ` FROM datasets ORDER BY created_at DESC, id`
	listTTLSQL      = `SELECT ` + ttlColumns + ` FROM ttl_files ORDER BY created_at DESC, id`
	exportSQL       = `SELECT ` + datasetColumns + ` FROM datasets ORDER BY created_at, id`
)

// --- SQLite Dialect ---

type sqliteDialect struct{}

func (d sqliteDialect) schemaSQL() []string {
	return schemaStatements
}

func (d sqliteDialect) insertDatasetSQL() string {
	return `INSERT INTO datasets (` + datasetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
}

func (d sqliteDialect) getDatasetSQL() string {
	return `SELECT ` + datasetColumns + ` FROM datasets WHERE id = ?`
}

func (d sqliteDialect) deleteDatasetSQL() string {
	return `DELETE FROM datasets WHERE id = ?`
}

// SQLite takes the database write lock on the insert that follows, so a
// plain read is enough.
func (d sqliteDialect) lockDatasetSQL() string {
	return `SELECT 1 FROM datasets WHERE id = ?`
}

func (d sqliteDialect) detachTTLSQL() string {
	return `UPDATE ttl_files SET dataset_id = NULL WHERE dataset_id = ?`
}

func (d sqliteDialect) insertTTLSQL() string {
	return `INSERT INTO ttl_files (` + ttlColumns + `) VALUES (?, ?, ?, ?, ?)`
}

func (d sqliteDialect) getTTLSQL() string {
	return `SELECT ` + ttlColumns + ` FROM ttl_files WHERE id = ?`
}

func (d sqliteDialect) listTTLByDatasetSQL() string {
	return `SELECT ` + ttlColumns + ` FROM ttl_files WHERE dataset_id = ? ORDER BY created_at DESC, id`
}

func (d sqliteDialect) batchInsertDatasetsSQL(numRows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO datasets (" + datasetColumns + ") VALUES ")
	for i := 0; i < numRows; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?,?,?,?,?,?)")
	}
	// Re-importing an export keeps the rows already present.
	sb.WriteString(" ON CONFLICT DO NOTHING")
	return sb.String()
}

// --- PostgreSQL Dialect ---

type postgresDialect struct{}

func (d postgresDialect) schemaSQL() []string {
	return schemaStatements
}

func (d postgresDialect) insertDatasetSQL() string {
	return `INSERT INTO datasets (` + datasetColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
}

func (d postgresDialect) getDatasetSQL() string {
	return `SELECT ` + datasetColumns + ` FROM datasets WHERE id = $1`
}

func (d postgresDialect) deleteDatasetSQL() string {
	return `DELETE FROM datasets WHERE id = $1`
}

func (d postgresDialect) lockDatasetSQL() string {
	return `SELECT 1 FROM datasets WHERE id = $1 FOR SHARE`
}

func (d postgresDialect) detachTTLSQL() string {
	return `UPDATE ttl_files SET dataset_id = NULL WHERE dataset_id = $1`
}

func (d postgresDialect) insertTTLSQL() string {
	return `INSERT INTO ttl_files (` + ttlColumns + `) VALUES ($1, $2, $3, $4, $5)`
}

func (d postgresDialect) getTTLSQL() string {
	return `SELECT ` + ttlColumns + ` FROM ttl_files WHERE id = $1`
}

func (d postgresDialect) listTTLByDatasetSQL() string {
	return `SELECT ` + ttlColumns + ` FROM ttl_files WHERE dataset_id = $1 ORDER BY created_at DESC, id`
}

func (d postgresDialect) batchInsertDatasetsSQL(numRows int) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO datasets (" + datasetColumns + ") VALUES ")
	paramIndex := 1
	for i := 0; i < numRows; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4, paramIndex+5, paramIndex+6)
		paramIndex += 7
	}
	// PostgreSQL requires specifying the conflict target column(s).
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")
	return sb.String()
}
