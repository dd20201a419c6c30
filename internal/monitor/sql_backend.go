package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
)

// SQL drivers accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// DefaultCacheSize is the number of decoded records kept by SQLBackend.
const DefaultCacheSize = 256

var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS execution_records (
		name TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		success BOOLEAN NOT NULL,
		quality DOUBLE PRECISION NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_execution_records_started ON execution_records(started_at)`,
	`CREATE TABLE IF NOT EXISTS performance_reports (
		name TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		payload TEXT NOT NULL
	)`,
}

// SQLBackend stores records in SQLite (modernc) or PostgreSQL (pgx).
type SQLBackend struct {
	db     *sql.DB
	driver string
	dsn    string
	cache  *lru.Cache[string, ExecutionRecord]
	mu     sync.RWMutex
}

// OpenSQL opens dsn with driver and creates the schema. Use ":memory:" with
// the sqlite driver for an in-memory database.
func OpenSQL(ctx context.Context, driver, dsn string, cacheSize int) (*SQLBackend, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, derrors.ConfigError("unsupported monitor sql driver").
			WithContext("driver", driver).
			Build()
	}
	db, err := sql.Open(driver, strings.TrimSpace(dsn))
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to open monitor database").
			WithContext("driver", driver).
			Build()
	}
	if driver == DriverSQLite {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, ExecutionRecord](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, derrors.WrapError(err, derrors.CategoryInternal, "failed to create record cache").Build()
	}

	b := &SQLBackend{db: db, driver: driver, dsn: dsn, cache: cache}
	if err := b.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to initialize monitor schema").
			WithContext("driver", driver).
			Build()
	}
	return b, nil
}

func (b *SQLBackend) initialize(ctx context.Context) error {
	for _, stmt := range sqlSchema {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (b *SQLBackend) rebind(query string) string {
	if b.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (b *SQLBackend) Name() string {
	if b.driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Location returns the database address with any password removed.
func (b *SQLBackend) Location() string {
	if b.driver == DriverSQLite {
		return "sqlite:" + b.dsn
	}
	if u, err := url.Parse(b.dsn); err == nil && u.Scheme != "" {
		return u.Redacted()
	}
	return "postgres"
}

func (b *SQLBackend) SaveRecord(ctx context.Context, rec ExecutionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryMonitor, "failed to encode execution record").Build()
	}
	name := rec.Name()

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err = b.db.ExecContext(ctx, b.rebind(`INSERT INTO execution_records (name, run_id, started_at, success, quality, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET success = excluded.success, quality = excluded.quality, payload = excluded.payload`),
		name, rec.ID, rec.StartedAt.UnixNano(), rec.Success, rec.Quality, string(payload),
	)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryStorage, "failed to insert execution record").
			WithContext("name", name).
			Build()
	}
	b.cache.Add(name, rec.Clone())
	return nil
}

func (b *SQLBackend) LoadRecord(ctx context.Context, name string) (ExecutionRecord, error) {
	if rec, ok := b.cache.Get(name); ok {
		return rec.Clone(), nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var payload string
	err := b.db.QueryRowContext(ctx, b.rebind(`SELECT payload FROM execution_records WHERE name = ?`), name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ExecutionRecord{}, derrors.NotFoundError("execution record not found").
			WithContext("name", name).
			Build()
	}
	if err != nil {
		return ExecutionRecord{}, derrors.WrapError(err, derrors.CategoryStorage, "failed to query execution record").
			WithContext("name", name).
			Build()
	}
	rec, err := decodeRecord(payload)
	if err != nil {
		return ExecutionRecord{}, err
	}
	b.cache.Add(name, rec.Clone())
	return rec, nil
}

func (b *SQLBackend) Recent(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	query := `SELECT payload FROM execution_records ORDER BY started_at ASC`
	args := []any{}
	if limit > 0 {
		query = `SELECT payload FROM (
			SELECT payload, started_at FROM execution_records ORDER BY started_at DESC LIMIT ?
		) AS recent ORDER BY started_at ASC`
		args = append(args, limit)
	}
	rows, err := b.db.QueryContext(ctx, b.rebind(query), args...)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to query execution records").Build()
	}
	defer func() { _ = rows.Close() }()

	var records []ExecutionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to scan execution record").Build()
		}
		rec, err := decodeRecord(payload)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to read execution records").Build()
	}
	return records, nil
}

func (b *SQLBackend) SaveReport(ctx context.Context, name string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, b.rebind(`INSERT INTO performance_reports (name, created_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET created_at = excluded.created_at, payload = excluded.payload`),
		name, nowFunc().UnixNano(), string(data),
	)
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryStorage, "failed to insert performance report").
			WithContext("name", name).
			Build()
	}
	return fmt.Sprintf("%s#%s", b.Location(), name), nil
}

func (b *SQLBackend) List(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM execution_records UNION ALL SELECT name FROM performance_reports ORDER BY name`)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to list metrics entries").Build()
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryStorage, "failed to scan metrics entry").Build()
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (b *SQLBackend) DeleteRecords(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	res, err := b.db.ExecContext(ctx, `DELETE FROM execution_records`)
	if err != nil {
		return 0, derrors.WrapError(err, derrors.CategoryStorage, "failed to delete execution records").Build()
	}
	b.cache.Purge()
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CheckWritable inserts a probe row inside a transaction that is rolled back.
func (b *SQLBackend) CheckWritable(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx, b.rebind(`INSERT INTO performance_reports (name, created_at, payload) VALUES (?, ?, ?)`),
		".write-probe", nowFunc().UnixNano(), "{}")
	return err
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}

func decodeRecord(payload string) (ExecutionRecord, error) {
	var rec ExecutionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return ExecutionRecord{}, derrors.WrapError(err, derrors.CategoryMonitor, "failed to decode execution record").Build()
	}
	return rec, nil
}
