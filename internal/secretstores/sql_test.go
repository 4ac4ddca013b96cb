package secretstores_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretsplit/internal/secretstores"
	"github.com/systmms/secretsplit/pkg/secretstore"
	"github.com/systmms/secretsplit/tests/testutil"
)

func newSQLiteStore(t *testing.T) *secretstores.SQLStore {
	t.Helper()

	store, err := secretstores.NewSQLStore(context.Background(), "db", secretstores.SQLConfig{
		Dialect: "sqlite",
		DSN:     filepath.Join(t.TempDir(), "secrets.db"),
		Migrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLStore_SQLiteContract(t *testing.T) {
	store := newSQLiteStore(t)

	testutil.RunPersistenceContractTests(t, testutil.PersistenceTestCase{
		Name:  "db",
		Store: store,
	})
}

func TestSQLStore_SQLiteInMemory(t *testing.T) {
	ctx := context.Background()
	store, err := secretstores.NewSQLStore(ctx, "mem", secretstores.SQLConfig{
		Dialect: "sqlite3",
		DSN:     ":memory:",
		Migrate: true,
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	assert.Equal(t, secretstores.DialectSQLite, store.Dialect())

	coord := testutil.NewTestCoordinate(t, 1)
	require.NoError(t, store.Write(ctx, coord, "hunter2"))

	payload, found, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hunter2", payload)
}

func TestNewSQLStore_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     secretstores.SQLConfig
		wantErr string
	}{
		{
			name:    "missing dsn",
			cfg:     secretstores.SQLConfig{Dialect: "postgres"},
			wantErr: "dsn is required",
		},
		{
			name:    "unknown dialect",
			cfg:     secretstores.SQLConfig{Dialect: "oracle", DSN: "x"},
			wantErr: `unsupported sql dialect "oracle"`,
		},
		{
			name:    "bad table name",
			cfg:     secretstores.SQLConfig{Dialect: "sqlite", DSN: ":memory:", Table: "secrets; DROP TABLE users"},
			wantErr: "invalid sql table name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := secretstores.NewSQLStore(context.Background(), "db", tt.cfg)
			testutil.AssertErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSQLStore_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store, err := secretstores.NewSQLStoreFromDB("pg", secretstores.DialectPostgres, db, "")
	require.NoError(t, err)

	ctx := context.Background()
	coord := testutil.NewTestCoordinate(t, 2)

	t.Run("Migrate", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS secrets (coordinate VARCHAR(255) PRIMARY KEY")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.Migrate(ctx))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Write", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO secrets (coordinate, payload, created_at, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (coordinate) DO UPDATE")).
			WithArgs(coord.Full(), "hunter2", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, store.Write(ctx, coord, "hunter2"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Read", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM secrets WHERE coordinate = $1")).
			WithArgs(coord.Full()).
			WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow("hunter2"))

		payload, found, err := store.Read(ctx, coord)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "hunter2", payload)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReadAbsent", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM secrets WHERE coordinate = $1")).
			WithArgs(coord.Next().Full()).
			WillReturnError(sql.ErrNoRows)

		_, found, err := store.Read(ctx, coord.Next())
		require.NoError(t, err)
		assert.False(t, found)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReadFailure", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM secrets WHERE coordinate = $1")).
			WithArgs(coord.Full()).
			WillReturnError(errors.New("connection reset by peer"))

		_, found, err := store.Read(ctx, coord)
		require.Error(t, err)
		assert.False(t, found)

		var storeErr *secretstore.StoreError
		require.True(t, errors.As(err, &storeErr))
		assert.Equal(t, "pg", storeErr.Store)
		assert.Equal(t, coord.Full(), storeErr.Coordinate)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("WriteRollsBackOnFailure", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO secrets")).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err := store.Write(ctx, coord, "hunter2")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "hunter2")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_MySQLCustomTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store, err := secretstores.NewSQLStoreFromDB("my", secretstores.DialectMySQL, db, "app_secrets")
	require.NoError(t, err)

	ctx := context.Background()
	coord := testutil.NewTestCoordinate(t, 1)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO app_secrets (coordinate, payload, created_at, updated_at) VALUES (?, ?, ?, ?) ON DUPLICATE KEY UPDATE")).
		WithArgs(coord.Full(), `{"k":"v"}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	require.NoError(t, store.Write(ctx, coord, `{"k":"v"}`))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM app_secrets WHERE coordinate = ?")).
		WithArgs(coord.Full()).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(`{"k":"v"}`))
	payload, found, err := store.Read(ctx, coord)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"k":"v"}`, payload)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Validate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store, err := secretstores.NewSQLStoreFromDB("pg", secretstores.DialectPostgres, db, "")
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, store.Validate(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("no route to host"))
	testutil.AssertErrorContains(t, store.Validate(context.Background()), "failed to connect to database")

	require.NoError(t, mock.ExpectationsWereMet())
}
