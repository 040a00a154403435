package adapter

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdwh/pkg/core"
	"github.com/leapstack-labs/leapdwh/pkg/dialect"
)

var testDialect = dialect.NewDialect("base-test").
	DefaultSchema("public").
	PlaceholderStyle(dialect.PlaceholderDollar).
	WithReservedWords("time").
	Build()

func newMock(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLAdapter{}

	assert.False(t, base.IsConnected())
	assert.NoError(t, base.Close())

	_, err := base.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = base.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = base.Begin(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)
	_, err = base.GetTableMetadataCommon(ctx, "songplays", testDialect)
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		wantRows  int64
		errMsg    string
	}{
		{
			name: "reports rows affected",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 104))
			},
			sql:      "INSERT INTO users SELECT 1",
			wantRows: 104,
		},
		{
			name: "unknown row count",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewErrorResult(assert.AnError))
			},
			sql:      "DROP TABLE IF EXISTS users",
			wantRows: -1,
		},
		{
			name: "exec error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:    "INVALID SQL",
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMock(t)
			tt.setupMock(mock)

			n, err := base.Exec(context.Background(), tt.sql)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.ErrorIs(t, err, assert.AnError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRows, n)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	base, mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(333))

	rows, err := base.Query(context.Background(), "SELECT COUNT(*) FROM songplays")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	assert.Equal(t, int64(333), n)
	require.NoError(t, rows.Err())

	mock.ExpectQuery("BROKEN").WillReturnError(assert.AnError)
	_, err = base.Query(context.Background(), "BROKEN")
	assert.ErrorContains(t, err, "failed to execute query")
}

func TestBaseSQLAdapter_Tx(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		base, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("COPY staging_events").WillReturnResult(sqlmock.NewResult(0, 8056))
		mock.ExpectCommit()

		tx, err := base.Begin(context.Background())
		require.NoError(t, err)
		n, err := tx.Exec(context.Background(), "COPY staging_events FROM 's3://b/k'")
		require.NoError(t, err)
		assert.Equal(t, int64(8056), n)
		require.NoError(t, tx.Commit())
		assert.NoError(t, tx.Rollback(), "rollback after commit is a no-op")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on failure", func(t *testing.T) {
		base, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("COPY staging_songs").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		tx, err := base.Begin(context.Background())
		require.NoError(t, err)
		_, err = tx.Exec(context.Background(), "COPY staging_songs FROM 's3://b/k'")
		assert.ErrorContains(t, err, "failed to execute SQL")
		require.NoError(t, tx.Rollback())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin error", func(t *testing.T) {
		base, mock := newMock(t)
		mock.ExpectBegin().WillReturnError(assert.AnError)

		_, err := base.Begin(context.Background())
		assert.ErrorContains(t, err, "failed to begin transaction")
	})
}

func TestParseQualifiedName(t *testing.T) {
	schema, name := ParseQualifiedName("analytics.songplays", testDialect)
	assert.Equal(t, "analytics", schema)
	assert.Equal(t, "songplays", name)

	schema, name = ParseQualifiedName("songplays", testDialect)
	assert.Equal(t, "public", schema)
	assert.Equal(t, "songplays", name)
}

var metadataQuery = regexp.QuoteMeta("FROM information_schema.columns")

func TestGetTableMetadataCommon(t *testing.T) {
	base, mock := newMock(t)
	base.Cfg = core.AdapterConfig{Schema: "dwh"}

	mock.ExpectQuery(metadataQuery).
		WithArgs("dwh", "time").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("start_time", "timestamp", "NO", 1).
			AddRow("hour", "integer", "YES", 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM dwh."time"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(6813))

	meta, err := base.GetTableMetadataCommon(context.Background(), "time", testDialect)
	require.NoError(t, err)
	assert.Equal(t, &core.TableMetadata{
		Schema: "dwh",
		Name:   "time",
		Columns: []core.Column{
			{Name: "start_time", Type: "timestamp", Nullable: false, Position: 1},
			{Name: "hour", Type: "integer", Nullable: true, Position: 2},
		},
		RowCount: 6813,
	}, meta)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTableMetadataCommon_NotFound(t *testing.T) {
	base, mock := newMock(t)
	mock.ExpectQuery(metadataQuery).
		WithArgs("public", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	_, err := base.GetTableMetadataCommon(context.Background(), "missing", testDialect)
	assert.ErrorIs(t, err, core.ErrTableNotFound)
}
