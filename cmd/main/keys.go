package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Scopes granted to API keys. scopeMaster implies every other scope.
const (
	scopeMaster         = "*"
	scopeAddressFormat  = "address:format"
	scopeFormatsRead    = "formats:read"
	scopeFormatsWrite   = "formats:write"
	scopeTemplatesRead  = "templates:read"
	scopeTemplatesWrite = "templates:write"
	scopeStatsRead      = "stats:read"
	scopeServerConfig   = "server:config"
	scopeServerControl  = "server:control"
	scopeAuthManage     = "auth:manage"
)

var knownScopes = []string{
	scopeMaster,
	scopeAddressFormat,
	scopeFormatsRead,
	scopeFormatsWrite,
	scopeTemplatesRead,
	scopeTemplatesWrite,
	scopeStatsRead,
	scopeServerConfig,
	scopeServerControl,
	scopeAuthManage,
}

const apiKeyPrefix = "addr_"

var (
	errKeyNotFound   = errors.New("api key not found")
	errUnknownScope  = errors.New("unknown scope")
	errNoScopes      = errors.New("at least one scope is required")
	errLastMasterKey = errors.New("the last master key cannot be deleted")
)

const authSchema = `
CREATE TABLE IF NOT EXISTS api_keys (
    id            INTEGER   PRIMARY KEY,
    key_hash      TEXT      NOT NULL UNIQUE,
    scopes        TEXT      NOT NULL,
    description   TEXT      NOT NULL,
    created_at    DATETIME  NOT NULL,
    last_used_at  DATETIME
);
`

func setupAuthSchema(db *sql.DB) error {
	if _, err := db.Exec(authSchema); err != nil {
		return fmt.Errorf("could not create api_keys schema: %w", err)
	}
	return nil
}

// ScopeSet is the set of scopes held by a key.
type ScopeSet map[string]struct{}

// NewScopeSet validates requested scopes. Duplicates and surrounding blanks
// are dropped.
func NewScopeSet(scopes []string) (ScopeSet, error) {
	set := make(ScopeSet, len(scopes))
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if !isKnownScope(scope) {
			return nil, fmt.Errorf("%w: %q", errUnknownScope, scope)
		}
		set[scope] = struct{}{}
	}
	if len(set) == 0 {
		return nil, errNoScopes
	}
	return set, nil
}

func isKnownScope(scope string) bool {
	for _, known := range knownScopes {
		if scope == known {
			return true
		}
	}
	return false
}

func parseScopeSet(stored string) ScopeSet {
	set := make(ScopeSet)
	for _, scope := range strings.Fields(stored) {
		set[scope] = struct{}{}
	}
	return set
}

// Has reports whether the set grants scope.
func (s ScopeSet) Has(scope string) bool {
	if _, ok := s[scopeMaster]; ok {
		return true
	}
	_, ok := s[scope]
	return ok
}

// Covers reports whether every scope of other is granted by s.
func (s ScopeSet) Covers(other ScopeSet) bool {
	for scope := range other {
		if !s.Has(scope) {
			return false
		}
	}
	return true
}

// List returns the scopes sorted.
func (s ScopeSet) List() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

func (s ScopeSet) String() string {
	return strings.Join(s.List(), " ")
}

// APIKey describes a stored key. The raw key is never stored.
type APIKey struct {
	ID          int64      `json:"id"`
	Scopes      []string   `json:"scopes"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// KeyStore keeps hashed API keys in SQLite.
type KeyStore struct {
	db         *sql.DB
	stmtCount  *sql.Stmt
	stmtLookup *sql.Stmt
	stmtTouch  *sql.Stmt
	stmtList   *sql.Stmt
	stmtInsert *sql.Stmt
	stmtScopes *sql.Stmt
	stmtDelete *sql.Stmt
}

// NewKeyStore prepares the key statements. setupAuthSchema must have run.
func NewKeyStore(db *sql.DB) (_ *KeyStore, err error) {
	var prepared []*sql.Stmt
	defer func() {
		if err != nil {
			for _, stmt := range prepared {
				_ = stmt.Close()
			}
		}
	}()
	prepare := func(query string) (*sql.Stmt, error) {
		stmt, err := db.Prepare(query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare %q: %w", query, err)
		}
		prepared = append(prepared, stmt)
		return stmt, nil
	}

	k := &KeyStore{db: db}
	if k.stmtCount, err = prepare(`SELECT COUNT(*) FROM api_keys;`); err != nil {
		return nil, err
	}
	if k.stmtLookup, err = prepare(`SELECT id, scopes FROM api_keys WHERE key_hash = ?;`); err != nil {
		return nil, err
	}
	if k.stmtTouch, err = prepare(`UPDATE api_keys SET last_used_at = ? WHERE id = ?;`); err != nil {
		return nil, err
	}
	if k.stmtList, err = prepare(`SELECT id, scopes, description, created_at, last_used_at FROM api_keys ORDER BY id;`); err != nil {
		return nil, err
	}
	if k.stmtInsert, err = prepare(`INSERT INTO api_keys (key_hash, scopes, description, created_at) VALUES (?, ?, ?, ?) RETURNING id;`); err != nil {
		return nil, err
	}
	if k.stmtScopes, err = prepare(`SELECT scopes FROM api_keys WHERE id = ?;`); err != nil {
		return nil, err
	}
	if k.stmtDelete, err = prepare(`DELETE FROM api_keys WHERE id = ?;`); err != nil {
		return nil, err
	}
	return k, nil
}

// Close releases the prepared statements.
func (k *KeyStore) Close() {
	for _, stmt := range []*sql.Stmt{k.stmtCount, k.stmtLookup, k.stmtTouch, k.stmtList, k.stmtInsert, k.stmtScopes, k.stmtDelete} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// Count returns the number of keys. Zero keys leaves the API open.
func (k *KeyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := k.stmtCount.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count api keys: %w", err)
	}
	return n, nil
}

// Lookup resolves a raw key to its id and scopes and records its use.
func (k *KeyStore) Lookup(ctx context.Context, rawKey string) (int64, ScopeSet, error) {
	var (
		id     int64
		scopes string
	)
	err := k.stmtLookup.QueryRowContext(ctx, hashAPIKey(rawKey)).Scan(&id, &scopes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, errKeyNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if _, err = k.stmtTouch.ExecContext(ctx, time.Now().UTC(), id); err != nil {
		return 0, nil, fmt.Errorf("failed to record api key use: %w", err)
	}
	return id, parseScopeSet(scopes), nil
}

// List returns every key, oldest first.
func (k *KeyStore) List(ctx context.Context) ([]APIKey, error) {
	rows, err := k.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	keys := []APIKey{}
	for rows.Next() {
		var (
			key      APIKey
			scopes   string
			lastUsed sql.NullTime
		)
		if err = rows.Scan(&key.ID, &scopes, &key.Description, &key.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		key.Scopes = parseScopeSet(scopes).List()
		if lastUsed.Valid {
			key.LastUsedAt = &lastUsed.Time
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Create stores a new key and returns it with its raw value. The first key
// of an empty store is always a master key, so the API cannot be left
// without one.
func (k *KeyStore) Create(ctx context.Context, scopes ScopeSet, description string) (APIKey, string, error) {
	rawKey, err := generateAPIKey()
	if err != nil {
		return APIKey{}, "", err
	}

	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return APIKey{}, "", fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var n int
	if err = tx.StmtContext(ctx, k.stmtCount).QueryRowContext(ctx).Scan(&n); err != nil {
		return APIKey{}, "", fmt.Errorf("failed to count api keys: %w", err)
	}
	if n == 0 {
		scopes = ScopeSet{scopeMaster: {}}
	}

	key := APIKey{Scopes: scopes.List(), Description: description, CreatedAt: time.Now().UTC()}
	err = tx.StmtContext(ctx, k.stmtInsert).
		QueryRowContext(ctx, hashAPIKey(rawKey), scopes.String(), description, key.CreatedAt).
		Scan(&key.ID)
	if err != nil {
		return APIKey{}, "", fmt.Errorf("failed to insert api key: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return APIKey{}, "", fmt.Errorf("failed to commit api key: %w", err)
	}
	return key, rawKey, nil
}

// Delete removes a key. The last master key is kept.
func (k *KeyStore) Delete(ctx context.Context, id int64) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var scopes string
	err = tx.StmtContext(ctx, k.stmtScopes).QueryRowContext(ctx, id).Scan(&scopes)
	if errors.Is(err, sql.ErrNoRows) {
		return errKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read api key %d: %w", id, err)
	}

	if _, master := parseScopeSet(scopes)[scopeMaster]; master {
		var masters int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys WHERE ' ' || scopes || ' ' LIKE '% * %'`).Scan(&masters)
		if err != nil {
			return fmt.Errorf("failed to count master keys: %w", err)
		}
		if masters <= 1 {
			return errLastMasterKey
		}
	}

	if _, err = tx.StmtContext(ctx, k.stmtDelete).ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete api key %d: %w", id, err)
	}
	return tx.Commit()
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
