package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)
	assert.Equal(t, "pgx", d.driverName())

	d, err = ParseDialect("mysql")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.driverName())

	_, err = ParseDialect("sqlite")
	require.Error(t, err)
}

func TestSQLStore_PostgresQueries(t *testing.T) {
	s := NewSQLStore(nil, DialectPostgres)

	query, args, err := s.insertQuery(NewProduct{Name: "X", Price: 10, ImageURL: "u"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO products (name,price,image_url) VALUES ($1,$2,$3) RETURNING id", query)
	assert.Equal(t, []any{"X", 10.0, "u"}, args)

	query, args, err = s.listQuery().ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name, price, image_url, category, description FROM products ORDER BY id ASC", query)
	assert.Empty(t, args)

	query, args, err = s.deleteQuery(7).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM products WHERE id = $1", query)
	assert.Equal(t, []any{int64(7)}, args)

	query, _, err = s.markerQuery().ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO catalog_init (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", query)
}

func TestSQLStore_MySQLQueries(t *testing.T) {
	s := NewSQLStore(nil, DialectMySQL)

	query, _, err := s.insertQuery(NewProduct{Name: "X", Price: 10, ImageURL: "u"}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO products (name,price,image_url) VALUES (?,?,?)", query)

	query, args, err := s.deleteQuery(7).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM products WHERE id = ?", query)
	assert.Equal(t, []any{int64(7)}, args)

	query, _, err = s.markerQuery().ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT IGNORE INTO catalog_init (id) VALUES (?)", query)
}

func newMockSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, DialectPostgres), mock
}

func expectSchema(mock sqlmock.Sqlmock) {
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS products (")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS catalog_init (")).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectMarker(mock sqlmock.Sqlmock, inserted int64) {
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO catalog_init (id) VALUES ($1) ON CONFLICT (id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, inserted))
}

func expectSeeds(mock sqlmock.Sqlmock) {
	insert := regexp.QuoteMeta("INSERT INTO products (name,price,image_url) VALUES ($1,$2,$3) RETURNING id")
	mock.ExpectExec(insert).
		WithArgs("Sample Product 1", 1999.0, "/next.svg").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).
		WithArgs("Sample Product 2", 2999.0, "/vercel.svg").
		WillReturnResult(sqlmock.NewResult(2, 1))
}

func TestSQLStore_SeedsFreshDatabaseOnce(t *testing.T) {
	s, mock := newMockSQLStore(t)
	ctx := context.Background()

	expectSchema(mock)
	mock.ExpectBegin()
	expectMarker(mock, 1)
	expectSeeds(mock)
	mock.ExpectCommit()

	require.NoError(t, s.ensureInitialized(ctx))
	// Any further query would be unexpected and fail here.
	require.NoError(t, s.ensureInitialized(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SkipsSeedsWhenMarkerExists(t *testing.T) {
	s, mock := newMockSQLStore(t)

	expectSchema(mock)
	mock.ExpectBegin()
	expectMarker(mock, 0)
	mock.ExpectCommit()

	require.NoError(t, s.ensureInitialized(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_RetriesFailedInitialization(t *testing.T) {
	s, mock := newMockSQLStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS products (")).
		WillReturnError(errors.New("connection refused"))

	err := s.ensureInitialized(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema")
	assert.False(t, s.inited)

	expectSchema(mock)
	mock.ExpectBegin()
	expectMarker(mock, 1)
	expectSeeds(mock)
	mock.ExpectCommit()

	require.NoError(t, s.ensureInitialized(ctx))
	assert.True(t, s.inited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SeedFailureRollsBack(t *testing.T) {
	s, mock := newMockSQLStore(t)

	expectSchema(mock)
	mock.ExpectBegin()
	expectMarker(mock, 1)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	require.Error(t, s.ensureInitialized(context.Background()))
	assert.False(t, s.inited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListAfterInit(t *testing.T) {
	s, mock := newMockSQLStore(t)

	expectSchema(mock)
	mock.ExpectBegin()
	expectMarker(mock, 0)
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, price, image_url, category, description FROM products ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "image_url", "category", "description"}).
			AddRow(int64(2), "Sample Product 2", 2999.0, "/vercel.svg", "", "").
			AddRow(int64(5), "Lamp", 15.5, "/lamp.svg", "home", ""))

	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Product{
		{ID: 2, Name: "Sample Product 2", Price: 2999, ImageURL: "/vercel.svg"},
		{ID: 5, Name: "Lamp", Price: 15.5, ImageURL: "/lamp.svg", Category: "home"},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
