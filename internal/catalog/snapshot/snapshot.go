// Package snapshot persists catalogs in a SQL database so that a workspace can be
// exported again without contacting the analytics backend.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/electwix/catalog-export/internal/catalog"
)

// Dialect selects placeholder syntax and the database/sql driver.
type Dialect string

const (
	// DialectSQLite stores snapshots in a local SQLite file via modernc.org/sqlite.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres stores snapshots in PostgreSQL via pgx.
	DialectPostgres Dialect = "postgres"
)

// ErrNotSnapshot reports a location that is neither a SQLite file nor a PostgreSQL DSN.
var ErrNotSnapshot = errors.New("snapshot: unsupported location")

// rootDataSet marks attributes that do not belong to a date data set.
const rootDataSet = -1

const (
	kindMetric      = "metric"
	kindFact        = "fact"
	kindInsight     = "insight"
	kindDateDataSet = "date_data_set"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS md_objects (
	kind TEXT NOT NULL,
	seq INTEGER NOT NULL,
	title TEXT NOT NULL,
	identifier TEXT NOT NULL,
	PRIMARY KEY (kind, seq)
)`,
	`CREATE TABLE IF NOT EXISTS md_attributes (
	data_set_seq INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	title TEXT NOT NULL,
	identifier TEXT NOT NULL,
	PRIMARY KEY (data_set_seq, seq)
)`,
	`CREATE TABLE IF NOT EXISTS md_display_forms (
	data_set_seq INTEGER NOT NULL,
	attribute_seq INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	title TEXT NOT NULL,
	identifier TEXT NOT NULL,
	PRIMARY KEY (data_set_seq, attribute_seq, seq)
)`,
}

// DetectDialect maps a snapshot location to a dialect.
func DetectDialect(location string) (Dialect, error) {
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "file:"):
		return DialectSQLite, nil
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotSnapshot, location)
}

// IsLocation reports whether location names a snapshot database.
func IsLocation(location string) bool {
	_, err := DetectDialect(location)
	return err == nil
}

// Store reads and writes catalog snapshots.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the snapshot database and ensures the schema exists.
func Open(ctx context.Context, location string) (*Store, error) {
	dialect, err := DetectDialect(location)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName(dialect), location)
	if err != nil {
		return nil, fmt.Errorf("open %s snapshot: %w", dialect, err)
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenExisting connects to a snapshot that must already exist. It never
// creates a SQLite file or the schema, so a mistyped location fails instead of
// loading an empty catalog.
func OpenExisting(ctx context.Context, location string) (*Store, error) {
	dialect, err := DetectDialect(location)
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite {
		if _, err := os.Stat(sqliteFile(location)); err != nil {
			return nil, fmt.Errorf("open sqlite snapshot: %w", err)
		}
	}
	db, err := sql.Open(driverName(dialect), location)
	if err != nil {
		return nil, fmt.Errorf("open %s snapshot: %w", dialect, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s snapshot: %w", dialect, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func driverName(dialect Dialect) string {
	if dialect == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// sqliteFile strips the file: scheme and URI parameters from a SQLite location.
func sqliteFile(location string) string {
	if len(location) >= len("file:") && strings.EqualFold(location[:len("file:")], "file:") {
		location = location[len("file:"):]
		if i := strings.IndexByte(location, '?'); i >= 0 {
			location = location[:i]
		}
	}
	return location
}

// NewStore wraps an existing connection. The caller keeps ownership of db.
func NewStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("snapshot schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $N for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save replaces the stored snapshot with cat.
func (s *Store) Save(ctx context.Context, cat *catalog.Catalog) (err error) {
	if err := cat.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"md_objects", "md_attributes", "md_display_forms"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insertObject := s.rebind(`INSERT INTO md_objects (kind, seq, title, identifier) VALUES (?, ?, ?, ?)`)
	putObjects := func(kind string, titles, ids []string) error {
		for i := range titles {
			if _, err := tx.ExecContext(ctx, insertObject, kind, i, titles[i], ids[i]); err != nil {
				return fmt.Errorf("insert %s %q: %w", kind, ids[i], err)
			}
		}
		return nil
	}

	metricTitles, metricIDs := split(cat.Metrics, func(m catalog.Metric) (string, string) { return m.Title, m.Identifier })
	if err = putObjects(kindMetric, metricTitles, metricIDs); err != nil {
		return err
	}
	factTitles, factIDs := split(cat.Facts, func(f catalog.Fact) (string, string) { return f.Title, f.Identifier })
	if err = putObjects(kindFact, factTitles, factIDs); err != nil {
		return err
	}
	insightTitles, insightIDs := split(cat.Insights, func(in catalog.Insight) (string, string) { return in.Title, in.Identifier })
	if err = putObjects(kindInsight, insightTitles, insightIDs); err != nil {
		return err
	}
	ddTitles, ddIDs := split(cat.DateDataSets, func(dd catalog.DateDataSet) (string, string) { return dd.Title, dd.Identifier })
	if err = putObjects(kindDateDataSet, ddTitles, ddIDs); err != nil {
		return err
	}

	if err = s.saveAttributes(ctx, tx, rootDataSet, cat.Attributes); err != nil {
		return err
	}
	for i, dd := range cat.DateDataSets {
		if err = s.saveAttributes(ctx, tx, i, dd.Attributes); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *Store) saveAttributes(ctx context.Context, tx *sql.Tx, dataSet int, attrs []catalog.Attribute) error {
	insertAttr := s.rebind(`INSERT INTO md_attributes (data_set_seq, seq, title, identifier) VALUES (?, ?, ?, ?)`)
	insertDF := s.rebind(`INSERT INTO md_display_forms (data_set_seq, attribute_seq, seq, title, identifier) VALUES (?, ?, ?, ?, ?)`)
	for i, a := range attrs {
		if _, err := tx.ExecContext(ctx, insertAttr, dataSet, i, a.Title, a.Identifier); err != nil {
			return fmt.Errorf("insert attribute %q: %w", a.Identifier, err)
		}
		for j, df := range a.DisplayForms {
			if _, err := tx.ExecContext(ctx, insertDF, dataSet, i, j, df.Title, df.Identifier); err != nil {
				return fmt.Errorf("insert display form %q: %w", df.Identifier, err)
			}
		}
	}
	return nil
}

// Load restores the stored snapshot in the order it was saved.
func (s *Store) Load(ctx context.Context) (*catalog.Catalog, error) {
	cat := &catalog.Catalog{}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, title, identifier FROM md_objects ORDER BY kind, seq`)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	for rows.Next() {
		var kind, title, id string
		if err := rows.Scan(&kind, &title, &id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan object: %w", err)
		}
		switch kind {
		case kindMetric:
			cat.Metrics = append(cat.Metrics, catalog.Metric{Title: title, Identifier: id})
		case kindFact:
			cat.Facts = append(cat.Facts, catalog.Fact{Title: title, Identifier: id})
		case kindInsight:
			cat.Insights = append(cat.Insights, catalog.Insight{Title: title, Identifier: id})
		case kindDateDataSet:
			cat.DateDataSets = append(cat.DateDataSets, catalog.DateDataSet{Title: title, Identifier: id})
		default:
			_ = rows.Close()
			return nil, fmt.Errorf("snapshot: unknown object kind %q", kind)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read objects: %w", err)
	}

	attrs, err := s.loadAttributes(ctx)
	if err != nil {
		return nil, err
	}
	cat.Attributes = attrs[rootDataSet]
	for i := range cat.DateDataSets {
		cat.DateDataSets[i].Attributes = attrs[i]
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return cat, nil
}

func (s *Store) loadAttributes(ctx context.Context) (map[int][]catalog.Attribute, error) {
	out := make(map[int][]catalog.Attribute)

	rows, err := s.db.QueryContext(ctx, `SELECT data_set_seq, title, identifier FROM md_attributes ORDER BY data_set_seq, seq`)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	for rows.Next() {
		var ds int
		var a catalog.Attribute
		if err := rows.Scan(&ds, &a.Title, &a.Identifier); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		out[ds] = append(out[ds], a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read attributes: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT data_set_seq, attribute_seq, title, identifier FROM md_display_forms ORDER BY data_set_seq, attribute_seq, seq`)
	if err != nil {
		return nil, fmt.Errorf("query display forms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ds, attr int
		var df catalog.DisplayForm
		if err := rows.Scan(&ds, &attr, &df.Title, &df.Identifier); err != nil {
			return nil, fmt.Errorf("scan display form: %w", err)
		}
		list := out[ds]
		if attr < 0 || attr >= len(list) {
			return nil, fmt.Errorf("snapshot: display form %q references missing attribute %d", df.Identifier, attr)
		}
		list[attr].DisplayForms = append(list[attr].DisplayForms, df)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read display forms: %w", err)
	}
	return out, nil
}

func split[T any](items []T, fn func(T) (string, string)) ([]string, []string) {
	titles := make([]string, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		titles[i], ids[i] = fn(item)
	}
	return titles, ids
}
