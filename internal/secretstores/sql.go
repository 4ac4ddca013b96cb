package secretstores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL
	_ "github.com/lib/pq"              // PostgreSQL
	_ "modernc.org/sqlite"             // SQLite

	"github.com/systmms/secretsplit/pkg/secretstore"
)

// SQLConfig holds the sql store settings.
type SQLConfig struct {
	Dialect      string `mapstructure:"dialect"`
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	Migrate      bool   `mapstructure:"migrate"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// Supported SQL dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// DefaultSQLTable is the table secrets are kept in.
const DefaultSQLTable = "secrets"

var dialectMap = map[string]string{
	"postgresql": DialectPostgres,
	"postgres":   DialectPostgres,
	"mysql":      DialectMySQL,
	"mariadb":    DialectMySQL,
	"sqlite":     DialectSQLite,
	"sqlite3":    DialectSQLite,
}

// database/sql driver names registered by the blank imports above.
var driverNames = map[string]string{
	DialectPostgres: "postgres",
	DialectMySQL:    "mysql",
	DialectSQLite:   "sqlite",
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps one row per coordinate in a relational table:
//
//	secrets(coordinate PRIMARY KEY, payload, created_at, updated_at)
//
// Writes are upserts, so retrying a write is harmless.
type SQLStore struct {
	name       string
	dialect    string
	db         *sql.DB
	statements sqlStatements
}

type sqlStatements struct {
	create        string
	selectPayload string
	upsert        string
}

func newSQLFactory(ctx context.Context, name string, settings map[string]interface{}) (secretstore.Persistence, error) {
	var cfg SQLConfig
	if err := decodeSettings(name, settings, &cfg); err != nil {
		return nil, err
	}
	return NewSQLStore(ctx, name, cfg)
}

// NewSQLStore opens the database described by cfg. When cfg.Migrate is set
// the secrets table is created if missing.
func NewSQLStore(ctx context.Context, name string, cfg SQLConfig) (*SQLStore, error) {
	if err := requireSetting(name, "dsn", cfg.DSN); err != nil {
		return nil, err
	}

	dialect, ok := dialectMap[strings.ToLower(cfg.Dialect)]
	if !ok {
		return nil, fmt.Errorf("unsupported sql dialect %q (supported: postgres, mysql, sqlite)", cfg.Dialect)
	}

	db, err := sql.Open(driverNames[dialect], cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases alive across statements.
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	store, err := NewSQLStoreFromDB(name, dialect, db, cfg.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, secretstore.NewStoreError(name, "migrate", secretstore.Coordinate{}, err)
		}
	}

	return store, nil
}

// NewSQLStoreFromDB wraps an open database. table defaults to
// DefaultSQLTable.
func NewSQLStoreFromDB(name, dialect string, db *sql.DB, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultSQLTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid sql table name %q", table)
	}

	stmts, err := buildStatements(dialect, table)
	if err != nil {
		return nil, err
	}

	return &SQLStore{name: name, dialect: dialect, db: db, statements: stmts}, nil
}

func buildStatements(dialect, table string) (sqlStatements, error) {
	switch dialect {
	case DialectPostgres:
		return sqlStatements{
			create: "CREATE TABLE IF NOT EXISTS " + table + " (" +
				"coordinate VARCHAR(255) PRIMARY KEY, " +
				"payload TEXT NOT NULL, " +
				"created_at TIMESTAMPTZ NOT NULL, " +
				"updated_at TIMESTAMPTZ NOT NULL)",
			selectPayload: "SELECT payload FROM " + table + " WHERE coordinate = $1",
			upsert: "INSERT INTO " + table + " (coordinate, payload, created_at, updated_at) VALUES ($1, $2, $3, $4) " +
				"ON CONFLICT (coordinate) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at",
		}, nil
	case DialectMySQL:
		return sqlStatements{
			create: "CREATE TABLE IF NOT EXISTS " + table + " (" +
				"coordinate VARCHAR(255) NOT NULL PRIMARY KEY, " +
				"payload LONGTEXT NOT NULL, " +
				"created_at DATETIME(6) NOT NULL, " +
				"updated_at DATETIME(6) NOT NULL)",
			selectPayload: "SELECT payload FROM " + table + " WHERE coordinate = ?",
			upsert: "INSERT INTO " + table + " (coordinate, payload, created_at, updated_at) VALUES (?, ?, ?, ?) " +
				"ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)",
		}, nil
	case DialectSQLite:
		return sqlStatements{
			create: "CREATE TABLE IF NOT EXISTS " + table + " (" +
				"coordinate TEXT PRIMARY KEY, " +
				"payload TEXT NOT NULL, " +
				"created_at TIMESTAMP NOT NULL, " +
				"updated_at TIMESTAMP NOT NULL)",
			selectPayload: "SELECT payload FROM " + table + " WHERE coordinate = ?",
			upsert: "INSERT INTO " + table + " (coordinate, payload, created_at, updated_at) VALUES (?, ?, ?, ?) " +
				"ON CONFLICT(coordinate) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at",
		}, nil
	default:
		return sqlStatements{}, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
}

// Name returns the store name.
func (s *SQLStore) Name() string {
	return s.name
}

// Dialect returns the SQL dialect in use.
func (s *SQLStore) Dialect() string {
	return s.dialect
}

// Migrate creates the secrets table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.statements.create); err != nil {
		return fmt.Errorf("create secrets table: %w", err)
	}
	return nil
}

// Read implements secretstore.Reader.
func (s *SQLStore) Read(ctx context.Context, coord secretstore.Coordinate) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, s.statements.selectPayload, coord.Full()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, secretstore.NewStoreError(s.name, "read", coord, err)
	}
	return payload, true, nil
}

// Write implements secretstore.Writer.
func (s *SQLStore) Write(ctx context.Context, coord secretstore.Coordinate, payload string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, s.statements.upsert, coord.Full(), payload, now, now); err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, err)
	}

	if err := tx.Commit(); err != nil {
		return secretstore.NewStoreError(s.name, "write", coord, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// Validate pings the database.
func (s *SQLStore) Validate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
