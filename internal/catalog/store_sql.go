package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	initTimeout  = 10 * time.Second
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(s); d {
	case DialectPostgres, DialectMySQL:
		return d, nil
	default:
		return "", fmt.Errorf("sql dialect %q: want %s or %s", s, DialectPostgres, DialectMySQL)
	}
}

func (d Dialect) driverName() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "pgx"
}

func (d Dialect) placeholders() sq.PlaceholderFormat {
	if d == DialectMySQL {
		return sq.Question
	}
	return sq.Dollar
}

func (d Dialect) schema() []string {
	if d == DialectMySQL {
		return []string{
			`CREATE TABLE IF NOT EXISTS products (
				id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				price DOUBLE NOT NULL,
				image_url VARCHAR(2048) NOT NULL,
				category VARCHAR(255) NOT NULL DEFAULT '',
				description VARCHAR(4096) NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS catalog_init (id INT NOT NULL PRIMARY KEY)`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			image_url TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS catalog_init (id INT PRIMARY KEY)`,
	}
}

// SQLStore keeps the catalog in a products table. Ids come from the
// table's identity column, so id order is insertion order.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType

	initMu sync.Mutex
	inited bool
}

func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		sb:      sq.StatementBuilder.PlaceholderFormat(d.placeholders()),
	}
}

// OpenSQLStore opens dsn with the driver for d. The caller owns the
// returned *sql.DB.
func OpenSQLStore(ctx context.Context, d Dialect, dsn string) (*SQLStore, *sql.DB, error) {
	db, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", d, err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	s := NewSQLStore(db, d)
	if err := s.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", d, err)
	}
	return s, db, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// ensureInitialized creates the schema and seeds it the first time this
// database is ever initialized. A failed attempt is retried on the next call.
func (s *SQLStore) ensureInitialized(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.inited {
		return nil
	}
	err := withTimeout(ctx, initTimeout, s.initialize)
	if err != nil {
		return fmt.Errorf("initialize catalog: %w", err)
	}
	s.inited = true
	return nil
}

func (s *SQLStore) initialize(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := s.markerQuery().ToSql()
	if err != nil {
		return fmt.Errorf("building marker query: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 1 {
		for _, p := range seedProducts {
			query, args, err := s.insertQuery(NewProduct{Name: p.Name, Price: p.Price, ImageURL: p.ImageURL}).ToSql()
			if err != nil {
				return fmt.Errorf("building seed query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert seed: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLStore) List(ctx context.Context) ([]Product, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	query, args, err := s.listQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	out := make([]Product, 0, 16)
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.ImageURL, &p.Category, &p.Description); err != nil {
				return fmt.Errorf("scanning row: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Create(ctx context.Context, np NewProduct) (Product, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return Product{}, err
	}

	query, args, err := s.insertQuery(np).ToSql()
	if err != nil {
		return Product{}, fmt.Errorf("building insert query: %w", err)
	}

	var id int64
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if s.dialect == DialectPostgres {
			return s.db.QueryRowContext(ctx, query, args...).Scan(&id)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return Product{}, err
	}

	return Product{ID: id, Name: np.Name, Price: np.Price, ImageURL: np.ImageURL}, nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return false, err
	}

	query, args, err := s.deleteQuery(id).ToSql()
	if err != nil {
		return false, fmt.Errorf("building delete query: %w", err)
	}

	var n int64
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) markerQuery() sq.InsertBuilder {
	q := s.sb.Insert("catalog_init").Columns("id").Values(1)
	if s.dialect == DialectMySQL {
		return q.Options("IGNORE")
	}
	return q.Suffix("ON CONFLICT (id) DO NOTHING")
}

func (s *SQLStore) insertQuery(np NewProduct) sq.InsertBuilder {
	q := s.sb.Insert("products").
		Columns("name", "price", "image_url").
		Values(np.Name, np.Price, np.ImageURL)
	if s.dialect == DialectPostgres {
		q = q.Suffix("RETURNING id")
	}
	return q
}

func (s *SQLStore) listQuery() sq.SelectBuilder {
	return s.sb.
		Select("id", "name", "price", "image_url", "category", "description").
		From("products").
		OrderBy("id ASC")
}

func (s *SQLStore) deleteQuery(id int64) sq.DeleteBuilder {
	return s.sb.Delete("products").Where(sq.Eq{"id": id})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
