package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/shubham-shewale/fx-platform/pkg/config"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// DB is the storage handle. It is created once by each process's main and
// passed to every store; each query borrows a pooled connection for its own duration.
type DB struct {
	conn    *sql.DB
	dialect dialect
	sq      squirrel.StatementBuilderType
	now     func() time.Time
}

type dialect struct {
	name string
	// sequences: ids come from nextval('<table>_id_seq') instead of LastInsertId
	sequences bool
	schema    []string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dsn, err := normalizeDSN(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{
		conn:    conn,
		dialect: d,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now:     time.Now,
	}, nil
}

// normalizeDSN forces parseTime on MySQL DSNs so DATETIME columns scan into time.Time.
func normalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// OpenMemory opens an empty, migrated in-process DuckDB database.
func OpenMemory(ctx context.Context) (*DB, error) {
	db, err := Open(ctx, config.DatabaseConfig{Driver: "duckdb", DSN: ""})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SetClock overrides the time source used for created_at/updated_at.
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate creates the schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range db.dialect.schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", db.dialect.name, err)
		}
	}
	return nil
}

func (db *DB) Instruments() *InstrumentStore {
	return &InstrumentStore{db: db}
}

func (db *DB) Configurations() *ConfigurationStore {
	return &ConfigurationStore{db: db}
}

func (db *DB) Notifications() *NotificationStore {
	return &NotificationStore{db: db}
}

// insert adds one row to table and returns its id.
func (db *DB) insert(ctx context.Context, table string, columns []string, values []interface{}) (int64, error) {
	if db.dialect.sequences {
		var id int64
		seq := fmt.Sprintf("SELECT nextval('%s_id_seq')", table)
		if err := db.conn.QueryRowContext(ctx, seq).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to get next ID from sequence: %w", err)
		}

		query, args, err := db.sq.Insert(table).
			Columns(append([]string{"id"}, columns...)...).
			Values(append([]interface{}{id}, values...)...).
			ToSql()
		if err != nil {
			return 0, err
		}
		if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := db.sq.Insert(table).Columns(columns...).Values(values...).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) exec(ctx context.Context, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, query, args...)
	return err
}

func (db *DB) queryRow(ctx context.Context, b squirrel.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return db.conn.QueryRowContext(ctx, query, args...), nil
}

func (db *DB) query(ctx context.Context, b squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return db.conn.QueryContext(ctx, query, args...)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
