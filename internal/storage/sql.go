package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqlStore persists each record as one JSON document row. Predicates are
// evaluated over the document text with gjson after narrowing by
// collection; patches are applied with sjson so unknown fields survive
// untouched.
type sqlStore struct {
	db      *sql.DB
	dialect string
}

const createTableStmt = `
CREATE TABLE IF NOT EXISTS entities (
	collection VARCHAR(64) NOT NULL,
	id VARCHAR(64) NOT NULL,
	doc TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

func NewSQLStore(cfg Config) (Store, error) {
	var driver, dialect string

	switch cfg.Dialect {
	case "postgres", "pgx", "pg", "postgresql":
		driver, dialect = "pgx", "postgres"
	case "sqlite", "sqlite3":
		driver, dialect = "sqlite", "sqlite"
	case "mysql", "tidb":
		driver, dialect = "mysql", "mysql"
	default:
		return nil, fmt.Errorf("storage: invalid dialect: %s", cfg.Dialect)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dialect, err)
	}

	if _, err := db.Exec(createTableStmt); err != nil {
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}

	return &sqlStore{db: db, dialect: dialect}, nil
}

// rebind rewrites ? placeholders for the postgres dialect.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	var b strings.Builder

	n := 0

	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

func (s *sqlStore) scanCollection(ctx context.Context, collection string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT doc FROM entities WHERE collection = ? ORDER BY id`), collection)
	if err != nil {
		return nil, fmt.Errorf("storage: query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []string

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// docMatches evaluates the filter on the raw document without a full decode.
func docMatches(doc string, filter Filter) bool {
	for field, want := range filter {
		if field == "$or" {
			if !docMatchesAny(doc, want) {
				return false
			}

			continue
		}

		res := gjson.Get(doc, field)

		var stored any
		if res.Exists() {
			stored = res.Value()
		}

		if !matchField(stored, want) {
			return false
		}
	}

	return true
}

func docMatchesAny(doc string, branches any) bool {
	switch list := branches.(type) {
	case []any:
		for _, branch := range list {
			if f, ok := branch.(map[string]any); ok && docMatches(doc, f) {
				return true
			}
		}
	case []Filter:
		for _, f := range list {
			if docMatches(doc, f) {
				return true
			}
		}
	}

	return false
}

func (s *sqlStore) Find(ctx context.Context, collection string, q Query) ([]Record, error) {
	docs, err := s.scanCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	var matched []Record

	for _, doc := range docs {
		if !docMatches(doc, q.Filter) {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(doc), &rec); err != nil {
			return nil, fmt.Errorf("storage: decode document: %w", err)
		}

		matched = append(matched, rec)
	}

	sortFields := q.Sort
	if len(sortFields) == 0 {
		sortFields = []string{"id"}
	}

	sortRecords(matched, sortFields)

	matched = paginate(matched, q.Offset, q.Limit)

	out := make([]Record, len(matched))
	for i, rec := range matched {
		out[i] = project(rec, q.Fields)
	}

	return out, nil
}

func (s *sqlStore) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	id, ok := rec["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("storage: record id is required")
	}

	norm, err := normalize(rec)
	if err != nil {
		return nil, err
	}

	doc, err := json.Marshal(norm)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO entities (collection, id, doc) VALUES (?, ?, ?)`),
		collection, id, string(doc))
	if err != nil {
		return nil, fmt.Errorf("storage: insert %s/%s: %w", collection, id, err)
	}

	return norm, nil
}

func (s *sqlStore) get(ctx context.Context, collection, id string) (string, error) {
	var doc string

	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT doc FROM entities WHERE collection = ? AND id = ?`),
		collection, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}

	return doc, err
}

func (s *sqlStore) Update(ctx context.Context, collection string, id string, patch Record) (Record, error) {
	doc, err := s.get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	norm, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	for field, value := range norm {
		doc, err = sjson.Set(doc, field, value)
		if err != nil {
			return nil, fmt.Errorf("storage: patch field %s: %w", field, err)
		}
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`UPDATE entities SET doc = ? WHERE collection = ? AND id = ?`),
		doc, collection, id)
	if err != nil {
		return nil, fmt.Errorf("storage: update %s/%s: %w", collection, id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("storage: decode document: %w", err)
	}

	return rec, nil
}

func (s *sqlStore) Remove(ctx context.Context, collection string, id string) (Record, error) {
	doc, err := s.get(ctx, collection, id)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM entities WHERE collection = ? AND id = ?`),
		collection, id)
	if err != nil {
		return nil, fmt.Errorf("storage: delete %s/%s: %w", collection, id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("storage: decode document: %w", err)
	}

	return rec, nil
}

func (s *sqlStore) Count(ctx context.Context, collection string, filter Filter) (int, error) {
	if len(filter) == 0 {
		var count int

		err := s.db.QueryRowContext(ctx,
			s.rebind(`SELECT COUNT(*) FROM entities WHERE collection = ?`),
			collection).Scan(&count)

		return count, err
	}

	docs, err := s.scanCollection(ctx, collection)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, doc := range docs {
		if docMatches(doc, filter) {
			count++
		}
	}

	return count, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
