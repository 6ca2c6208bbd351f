package addressing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// SetupSchema creates the table holding format overrides. It is idempotent
// and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaFormats = `
CREATE TABLE IF NOT EXISTS address_formats (
    country_code  TEXT     PRIMARY KEY,
    locale        TEXT     NOT NULL DEFAULT '',
    format        TEXT     NOT NULL,
    local_format  TEXT     NOT NULL DEFAULT '',
    subdivisions  TEXT     NOT NULL DEFAULT '{}',
    updated_at    DATETIME NOT NULL
);
`
	if _, err := db.Exec(schemaFormats); err != nil {
		return fmt.Errorf("could not create address_formats schema: %w", err)
	}
	return nil
}

// StoredFormat is an override as persisted, with its modification time.
type StoredFormat struct {
	AddressFormat
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists format overrides in SQLite. It holds prepared statements
// and must be closed when no longer needed.
type Store struct {
	db         *sql.DB
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtPut    *sql.Stmt
	stmtDelete *sql.Stmt
	logger     *slog.Logger
}

// NewStore prepares the statements used by the store. SetupSchema must have
// been called on db beforehand.
func NewStore(db *sql.DB) (_ *Store, err error) {
	var prepared []*sql.Stmt
	defer func() {
		if err != nil {
			for _, stmt := range prepared {
				_ = stmt.Close()
			}
		}
	}()
	prepare := func(name, query string) (*sql.Stmt, error) {
		stmt, err := db.Prepare(query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %s statement: %w", name, err)
		}
		prepared = append(prepared, stmt)
		return stmt, nil
	}

	s := &Store{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if s.stmtGet, err = prepare("get", `SELECT locale, format, local_format, subdivisions, updated_at FROM address_formats WHERE country_code = ?;`); err != nil {
		return nil, err
	}
	if s.stmtList, err = prepare("list", `SELECT country_code, locale, format, local_format, subdivisions, updated_at FROM address_formats ORDER BY country_code;`); err != nil {
		return nil, err
	}
	if s.stmtPut, err = prepare("put", `INSERT INTO address_formats (country_code, locale, format, local_format, subdivisions, updated_at) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(country_code) DO UPDATE SET locale = excluded.locale, format = excluded.format, local_format = excluded.local_format, subdivisions = excluded.subdivisions, updated_at = excluded.updated_at;`); err != nil {
		return nil, err
	}
	if s.stmtDelete, err = prepare("delete", `DELETE FROM address_formats WHERE country_code = ?;`); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the prepared statements.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{s.stmtGet, s.stmtList, s.stmtPut, s.stmtDelete} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Put validates and stores an override, replacing any previous one.
func (s *Store) Put(ctx context.Context, def AddressFormat) (StoredFormat, error) {
	if err := def.Validate(); err != nil {
		return StoredFormat{}, err
	}
	def.CountryCode, _ = NormalizeCountryCode(def.CountryCode)

	subs, err := json.Marshal(def.Subdivisions)
	if err != nil {
		return StoredFormat{}, fmt.Errorf("failed to encode subdivisions: %w", err)
	}
	now := time.Now().UTC()
	if _, err = s.stmtPut.ExecContext(ctx, def.CountryCode, def.Locale, def.Format, def.LocalFormat, string(subs), now); err != nil {
		return StoredFormat{}, fmt.Errorf("failed to store format for %s: %w", def.CountryCode, err)
	}
	s.logger.InfoContext(ctx, "Address format stored", slog.String("country_code", def.CountryCode))
	return StoredFormat{AddressFormat: def, UpdatedAt: now}, nil
}

// PutAll stores several overrides in a single transaction.
func (s *Store) PutAll(ctx context.Context, defs []AddressFormat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmt := tx.StmtContext(ctx, s.stmtPut)
	now := time.Now().UTC()
	for _, def := range defs {
		if err = def.Validate(); err != nil {
			return err
		}
		code, _ := NormalizeCountryCode(def.CountryCode)
		subs, err := json.Marshal(def.Subdivisions)
		if err != nil {
			return fmt.Errorf("failed to encode subdivisions for %s: %w", code, err)
		}
		if _, err = stmt.ExecContext(ctx, code, def.Locale, def.Format, def.LocalFormat, string(subs), now); err != nil {
			return fmt.Errorf("failed to store format for %s: %w", code, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Address formats imported", slog.Int("count", len(defs)))
	return nil
}

// Get returns the stored override for a country. A missing override yields
// sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, countryCode string) (StoredFormat, error) {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return StoredFormat{}, err
	}
	out := StoredFormat{AddressFormat: AddressFormat{CountryCode: code}}
	var subs string
	err = s.stmtGet.QueryRowContext(ctx, code).Scan(&out.Locale, &out.Format, &out.LocalFormat, &subs, &out.UpdatedAt)
	if err != nil {
		return StoredFormat{}, err
	}
	if err = decodeSubdivisions(subs, &out.AddressFormat); err != nil {
		return StoredFormat{}, err
	}
	return out, nil
}

// List returns every stored override ordered by country code.
func (s *Store) List(ctx context.Context) ([]StoredFormat, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var out []StoredFormat
	for rows.Next() {
		var f StoredFormat
		var subs string
		if err = rows.Scan(&f.CountryCode, &f.Locale, &f.Format, &f.LocalFormat, &subs, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if err = decodeSubdivisions(subs, &f.AddressFormat); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes an override. It reports whether one existed.
func (s *Store) Delete(ctx context.Context, countryCode string) (bool, error) {
	code, err := NormalizeCountryCode(countryCode)
	if err != nil {
		return false, err
	}
	res, err := s.stmtDelete.ExecContext(ctx, code)
	if err != nil {
		return false, fmt.Errorf("failed to delete format for %s: %w", code, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.InfoContext(ctx, "Address format override removed", slog.String("country_code", code))
	}
	return n > 0, nil
}

func decodeSubdivisions(raw string, f *AddressFormat) error {
	if raw == "" || raw == "null" || raw == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &f.Subdivisions); err != nil {
		return errors.Join(fmt.Errorf("corrupt subdivisions for %s", f.CountryCode), err)
	}
	return nil
}
