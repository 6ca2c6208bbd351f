package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/Addressline/pkg/formatter"
)

const statsSchema = `
CREATE TABLE IF NOT EXISTS stats_country (
    country_code  TEXT PRIMARY KEY,
    total_hits    INTEGER NOT NULL DEFAULT 0,
    local_hits    INTEGER NOT NULL DEFAULT 0,
    first_seen    DATETIME NOT NULL,
    last_seen     DATETIME NOT NULL
);
`

// CountryStats is the usage record of one country.
type CountryStats struct {
	CountryCode string    `json:"country_code"`
	TotalHits   int64     `json:"total_hits"`
	LocalHits   int64     `json:"local_hits"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// GlobalStatsSummary provides a high-level overview of all collected stats.
type GlobalStatsSummary struct {
	TotalFormatted  int64 `json:"total_formatted"`
	LocalFormatted  int64 `json:"local_formatted"`
	UniqueCountries int64 `json:"unique_countries"`
}

// StatsAPI records formatting counters and serves them.
type StatsAPI struct {
	db     *sql.DB
	logger *slog.Logger
}

func setupStatsSchema(db *sql.DB) error {
	_, err := db.Exec(statsSchema)
	return err
}

func NewStatsAPI(db *sql.DB, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		db:     db,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", s.handleSummary)
	mux.HandleFunc("/api/stats/top_countries", s.handleTopCountries)
}

// RecordFormats counts the given elements in a single transaction.
func (s *StatsAPI) RecordFormats(ctx context.Context, elements []formatter.Element) error {
	if len(elements) == 0 {
		return nil
	}
	now := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO stats_country (country_code, total_hits, local_hits, first_seen, last_seen) VALUES (?, 1, ?, ?, ?)
        ON CONFLICT(country_code) DO UPDATE SET total_hits = total_hits + 1, local_hits = local_hits + excluded.local_hits, last_seen = excluded.last_seen
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare stats_country upsert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmt)

	for _, el := range elements {
		local := 0
		if el.Local {
			local = 1
		}
		if _, err = stmt.ExecContext(ctx, el.CountryCode, local, now, now); err != nil {
			return fmt.Errorf("failed to upsert stats_country: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stats transaction: %w", err)
	}
	return nil
}

func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, scopeStatsRead) {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	var summary GlobalStatsSummary
	err := s.db.QueryRowContext(r.Context(),
		"SELECT COALESCE(SUM(total_hits), 0), COALESCE(SUM(local_hits), 0), COUNT(*) FROM stats_country").
		Scan(&summary.TotalFormatted, &summary.LocalFormatted, &summary.UniqueCountries)
	if err != nil {
		s.logger.Error("Failed to query stats summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (s *StatsAPI) handleTopCountries(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, scopeStatsRead) {
		respondWithError(w, http.StatusForbidden, "Forbidden")
		return
	}
	rows, err := s.db.QueryContext(r.Context(), "SELECT country_code, total_hits, local_hits, first_seen, last_seen FROM stats_country ORDER BY total_hits DESC, country_code LIMIT 100")
	if err != nil {
		s.logger.Error("Failed to query top countries", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	results := []CountryStats{}
	for rows.Next() {
		var cs CountryStats
		if err = rows.Scan(&cs.CountryCode, &cs.TotalHits, &cs.LocalHits, &cs.FirstSeen, &cs.LastSeen); err != nil {
			s.logger.Error("Failed to scan top countries", "error", err)
			continue
		}
		results = append(results, cs)
	}
	respondWithJSON(w, http.StatusOK, results)
}
