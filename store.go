package ontocloud

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/twinfer/ontocloud/ttl"
)

// Counter for generating unique in-memory database names
var inMemoryDBCounter atomic.Uint64

var (
	// ErrNotFound is returned when no dataset or Turtle document has the given id.
	ErrNotFound = errors.New("not found")
	// ErrMissingName is returned when a dataset has no name.
	ErrMissingName = errors.New("dataset name is required")
	// ErrMissingContent is returned when a Turtle document is empty.
	ErrMissingContent = errors.New("ttl_content is required")
	// ErrInvalidJSON is returned when a dataset's json_data is not valid JSON.
	ErrInvalidJSON = errors.New("json_data is not valid JSON")
)

// Dataset is an uploaded JSON document. Data is kept byte for byte, so member
// order survives a round trip through the store.
type Dataset struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Data        jsontext.Value `json:"json_data,omitzero"`
	FileSize    int64          `json:"file_size"`
	UploadedBy  string         `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TTLFile is a saved Turtle document, optionally linked to the dataset it was
// produced from. The content is opaque to the store.
type TTLFile struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"dataset_id,omitempty"`
	Content   string    `json:"ttl_content"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists datasets and Turtle documents in a SQL database.
type Store struct {
	db *sql.DB
	// ownsDB is false for stores built around a caller's *sql.DB.
	ownsDB bool
	// dialect handles SQL syntax differences between databases.
	dialect dialect
	clock   clockwork.Clock
	// Prepared statements for the hot paths
	insertDatasetStmt *sql.Stmt
	getDatasetStmt    *sql.Stmt
	insertTTLStmt     *sql.Stmt
	getTTLStmt        *sql.Stmt
}

// CreateDataset stores d under a new id and returns the stored record.
// FileSize defaults to the length of Data.
func (s *Store) CreateDataset(ctx context.Context, d Dataset) (*Dataset, error) {
	if err := validateDataset(&d); err != nil {
		return nil, err
	}
	d.ID = uuid.NewString()
	d.CreatedAt = s.now()
	if d.FileSize == 0 {
		d.FileSize = int64(len(d.Data))
	}

	if _, err := s.insertDatasetStmt.ExecContext(ctx, datasetParams(&d)...); err != nil {
		return nil, fmt.Errorf("failed to insert dataset: %w", err)
	}
	return &d, nil
}

// GetDataset returns the dataset with the given id.
func (s *Store) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	d, err := scanDataset(s.getDatasetStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return d, nil
}

// ListDatasets returns every dataset, newest first.
func (s *Store) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, listDatasetsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	datasets := []Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, *d)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes a dataset. Turtle documents produced from it are kept
// and unlinked.
func (s *Store) DeleteDataset(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is a no-op if Commit succeeds

	res, err := tx.ExecContext(ctx, s.dialect.deleteDatasetSQL(), id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("dataset %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, s.dialect.detachTTLSQL(), id); err != nil {
		return fmt.Errorf("failed to unlink Turtle documents: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset delete: %w", err)
	}
	return nil
}

// SaveTTL stores f under a new id. A non-empty DatasetID must name an
// existing dataset.
func (s *Store) SaveTTL(ctx context.Context, f TTLFile) (*TTLFile, error) {
	if f.Content == "" {
		return nil, ErrMissingContent
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is a no-op if Commit succeeds

	if f.DatasetID != "" {
		var one int
		err := tx.QueryRowContext(ctx, s.dialect.lockDatasetSQL(), f.DatasetID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dataset %s: %w", f.DatasetID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check dataset: %w", err)
		}
	}
	f.ID = uuid.NewString()
	f.CreatedAt = s.now()

	_, err = tx.StmtContext(ctx, s.insertTTLStmt).ExecContext(ctx,
		f.ID, nullString(f.DatasetID), f.Content, f.CreatedBy, f.CreatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to insert Turtle document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit Turtle document: %w", err)
	}
	return &f, nil
}

// GetTTL returns the Turtle document with the given id.
func (s *Store) GetTTL(ctx context.Context, id string) (*TTLFile, error) {
	f, err := scanTTL(s.getTTLStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ttl file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get Turtle document: %w", err)
	}
	return f, nil
}

// ListTTL returns the saved Turtle documents, newest first. A non-empty
// datasetID restricts the list to documents produced from that dataset.
func (s *Store) ListTTL(ctx context.Context, datasetID string) ([]TTLFile, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if datasetID == "" {
		rows, err = s.db.QueryContext(ctx, listTTLSQL)
	} else {
		rows, err = s.db.QueryContext(ctx, s.dialect.listTTLByDatasetSQL(), datasetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query Turtle documents: %w", err)
	}
	defer rows.Close()

	files := []TTLFile{}
	for rows.Next() {
		f, err := scanTTL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan Turtle document: %w", err)
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// batchInsertDatasets inserts datasets using multi-row INSERT statements in a
// single transaction. Rows whose id already exists are skipped.
func (s *Store) batchInsertDatasets(datasets []Dataset) error {
	const batchSize = 500 // Keeps every statement well under SQLite's parameter limit

	if len(datasets) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is a no-op if Commit succeeds

	for i := 0; i < len(datasets); i += batchSize {
		end := min(i+batchSize, len(datasets))
		batch := datasets[i:end]

		params := make([]any, 0, len(batch)*7)
		for j := range batch {
			params = append(params, datasetParams(&batch[j])...)
		}

		if _, err := tx.Exec(s.dialect.batchInsertDatasetsSQL(len(batch)), params...); err != nil {
			return fmt.Errorf("failed to execute batch insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WriteTo writes every dataset to w as a JSON array, oldest first.
// It implements the io.WriterTo interface.
// Rows are streamed to the writer one at a time.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	enc := jsontext.NewEncoder(cw, jsontext.AllowDuplicateNames(true))

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return cw.count, err
	}

	rows, err := s.db.Query(exportSQL)
	if err != nil {
		return cw.count, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return cw.count, fmt.Errorf("failed to scan dataset: %w", err)
		}
		if err := json.MarshalEncode(enc, d); err != nil {
			return cw.count, fmt.Errorf("failed to encode dataset %s: %w", d.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return cw.count, err
	}

	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// ReadFrom reads datasets from a JSON stream (r) and bulk-inserts them.
// It implements the io.ReaderFrom interface.
// The expected format is a JSON array of dataset objects, the same format
// produced by WriteTo. Ids and timestamps are kept when present and assigned
// otherwise; datasets whose id already exists are skipped.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}
	dec := jsontext.NewDecoder(cr, jsontext.AllowDuplicateNames(true))

	tok, err := dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read opening token: %w", err)
	}
	if tok.Kind() != '[' {
		return cr.count, fmt.Errorf("expected JSON array start '[', got %v", tok.Kind())
	}

	const batchSize = 500 // Match batchInsertDatasets batch size
	var batch []Dataset

	for i := 0; dec.PeekKind() != ']'; i++ {
		var d Dataset
		if err := json.UnmarshalDecode(dec, &d); err != nil {
			return cr.count, fmt.Errorf("failed to unmarshal dataset from stream: %w", err)
		}
		if err := validateDataset(&d); err != nil {
			return cr.count, fmt.Errorf("dataset %d: %w", i, err)
		}
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = s.now()
		}
		if d.FileSize == 0 {
			d.FileSize = int64(len(d.Data))
		}
		batch = append(batch, d)

		if len(batch) >= batchSize {
			if err := s.batchInsertDatasets(batch); err != nil {
				return cr.count, fmt.Errorf("failed to insert batch: %w", err)
			}
			batch = batch[:0] // Reset slice while keeping capacity
		}
	}

	if err := s.batchInsertDatasets(batch); err != nil {
		return cr.count, fmt.Errorf("failed to insert final batch: %w", err)
	}

	tok, err = dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read closing token: %w", err)
	}
	if tok.Kind() != ']' {
		return cr.count, fmt.Errorf("expected JSON array end ']', got %v", tok.Kind())
	}
	return cr.count, nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}

// countingReader wraps an io.Reader and counts bytes read.
type countingReader struct {
	r     io.Reader
	count int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	cr.count += int64(n)
	return n, err
}

// Close releases the prepared statements, and the database connection when
// the store opened it.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertDatasetStmt, s.getDatasetStmt, s.insertTTLStmt, s.getTTLStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// initSchemaAndStatements creates the tables, indexes, and prepared statements.
func (s *Store) initSchemaAndStatements() error {
	for _, stmt := range s.dialect.schemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	prepare := func(dst **sql.Stmt, name, query string) error {
		stmt, err := s.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s statement: %w", name, err)
		}
		*dst = stmt
		return nil
	}
	if err := prepare(&s.insertDatasetStmt, "insert dataset", s.dialect.insertDatasetSQL()); err != nil {
		return err
	}
	if err := prepare(&s.getDatasetStmt, "get dataset", s.dialect.getDatasetSQL()); err != nil {
		return err
	}
	if err := prepare(&s.insertTTLStmt, "insert ttl", s.dialect.insertTTLSQL()); err != nil {
		return err
	}
	return prepare(&s.getTTLStmt, "get ttl", s.dialect.getTTLSQL())
}

func (s *Store) now() time.Time {
	// Stored with millisecond precision; truncate so returned records match
	// what a later read yields.
	return time.UnixMilli(s.clock.Now().UnixMilli()).UTC()
}

// Helper Functions

func validateDataset(d *Dataset) error {
	if d.Name == "" {
		return ErrMissingName
	}
	// A missing or null json_data is stored as NULL.
	if len(bytes.TrimSpace(d.Data)) == 0 || string(bytes.TrimSpace(d.Data)) == "null" {
		d.Data = nil
		return nil
	}
	if _, err := ttl.Parse(d.Data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// datasetParams returns the column values of d in datasetColumns order.
func datasetParams(d *Dataset) []any {
	var data sql.NullString
	if d.Data != nil {
		data = sql.NullString{String: string(d.Data), Valid: true}
	}
	return []any{d.ID, d.Name, d.Description, data, d.FileSize, d.UploadedBy, d.CreatedAt.UnixMilli()}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	var (
		d         Dataset
		data      sql.NullString
		createdAt int64
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &data, &d.FileSize, &d.UploadedBy, &createdAt); err != nil {
		return nil, err
	}
	if data.Valid {
		d.Data = jsontext.Value(data.String)
	}
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &d, nil
}

func scanTTL(row rowScanner) (*TTLFile, error) {
	var (
		f         TTLFile
		datasetID sql.NullString
		createdAt int64
	)
	if err := row.Scan(&f.ID, &datasetID, &f.Content, &f.CreatedBy, &createdAt); err != nil {
		return nil, err
	}
	f.DatasetID = datasetID.String
	f.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
