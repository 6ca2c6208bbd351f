package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/CTAG07/Addressline/pkg/addressing"
)

// maxImportSize bounds the body of a YAML import.
const maxImportSize = 4 << 20

// FormatsAPI manages the address format table and its stored overrides.
type FormatsAPI struct {
	base      *addressing.Repository
	overlay   *addressing.Overlay
	store     *addressing.Store
	countries *addressing.CountryRepository
	metrics   *Metrics
	logger    *slog.Logger
}

// NewFormatsAPI creates a new instance of the FormatsAPI.
func NewFormatsAPI(base *addressing.Repository, overlay *addressing.Overlay, store *addressing.Store,
	countries *addressing.CountryRepository, metrics *Metrics, logger *slog.Logger) *FormatsAPI {
	return &FormatsAPI{
		base:      base,
		overlay:   overlay,
		store:     store,
		countries: countries,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes sets up the routing for all /api/formats endpoints.
func (f *FormatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/formats", f.handleList)
	mux.HandleFunc("/api/formats/import", f.handleImport)
	mux.HandleFunc("/api/formats/export", f.handleExport)
	mux.HandleFunc("/api/formats/", f.handleFormat)
}

// FormatInfo is one entry of the format listing.
type FormatInfo struct {
	CountryCode string `json:"country_code"`
	Name        string `json:"name"`
	Overridden  bool   `json:"overridden"`
}

// FormatDetail is the effective definition of one country.
type FormatDetail struct {
	addressing.AddressFormat
	Name       string   `json:"name"`
	Overridden bool     `json:"overridden"`
	Fields     []string `json:"fields"`
}

func (f *FormatsAPI) isOverridden(code string) bool {
	for _, c := range f.overlay.Overridden() {
		if c == code {
			return true
		}
	}
	return false
}

// handleList returns every country with a dedicated or overridden format,
// sorted by display name.
func (f *FormatsAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, scopeFormatsRead) {
		forbidden(w, scopeFormatsRead)
		return
	}

	overridden := make(map[string]bool)
	for _, code := range f.overlay.Overridden() {
		overridden[code] = true
	}
	codes := f.base.Codes()
	for code := range overridden {
		if !f.base.Has(code) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	countries := f.countries.List(codes, r.URL.Query().Get("lang"))
	out := make([]FormatInfo, 0, len(countries))
	for _, c := range countries {
		out = append(out, FormatInfo{CountryCode: c.Code, Name: c.Name, Overridden: overridden[c.Code]})
	}
	respondWithJSON(w, http.StatusOK, out)
}

// handleFormat reads, overrides or resets the format of one country.
func (f *FormatsAPI) handleFormat(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/formats/"), "/")
	code, err := addressing.NormalizeCountryCode(raw)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, scopeFormatsRead) {
			forbidden(w, scopeFormatsRead)
			return
		}
		def, err := f.overlay.Get(code)
		if err != nil {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		name, _ := f.countries.Name(code, r.URL.Query().Get("lang"))
		detail := FormatDetail{AddressFormat: def, Name: name, Overridden: f.isOverridden(code)}
		for _, field := range def.UsedFields() {
			detail.Fields = append(detail.Fields, string(field))
		}
		respondWithJSON(w, http.StatusOK, detail)

	case http.MethodPut:
		if !hasScope(r, scopeFormatsWrite) {
			forbidden(w, scopeFormatsWrite)
			return
		}
		var def addressing.AddressFormat
		if err = json.NewDecoder(r.Body).Decode(&def); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		def.CountryCode = code
		stored, err := f.store.Put(r.Context(), def)
		if err != nil {
			if errors.Is(err, addressing.ErrInvalidFormat) {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			f.logger.Error("Failed to store format override", "country_code", code, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to store format: %v", err))
			return
		}
		if err = f.overlay.Set(stored.AddressFormat); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to apply format: %v", err))
			return
		}
		f.metrics.SetOverrides(len(f.overlay.Overridden()))
		f.logger.Info("Format override stored via API", "country_code", code)
		respondWithJSON(w, http.StatusOK, stored)

	case http.MethodDelete:
		if !hasScope(r, scopeFormatsWrite) {
			forbidden(w, scopeFormatsWrite)
			return
		}
		existed, err := f.store.Delete(r.Context(), code)
		if err != nil {
			f.logger.Error("Failed to delete format override", "country_code", code, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete format: %v", err))
			return
		}
		f.overlay.Remove(code)
		f.metrics.SetOverrides(len(f.overlay.Overridden()))
		if !existed {
			respondWithError(w, http.StatusNotFound, "No override stored for this country")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleImport stores every definition of a YAML document as an override.
func (f *FormatsAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, scopeFormatsWrite) {
		forbidden(w, scopeFormatsWrite)
		return
	}

	defs, err := addressing.ParseDefinitions(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(defs) == 0 {
		respondWithError(w, http.StatusBadRequest, "No format definitions in request body")
		return
	}
	if err = f.store.PutAll(r.Context(), defs); err != nil {
		f.logger.Error("Failed to import format definitions", "count", len(defs), "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to import formats: %v", err))
		return
	}
	for _, def := range defs {
		if err = f.overlay.Set(def); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to apply format: %v", err))
			return
		}
	}
	f.metrics.SetOverrides(len(f.overlay.Overridden()))
	f.logger.Info("Format definitions imported via API", "count", len(defs))
	respondWithJSON(w, http.StatusOK, map[string]int{"imported": len(defs)})
}

// handleExport writes the stored overrides as YAML.
func (f *FormatsAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, scopeFormatsRead) {
		forbidden(w, scopeFormatsRead)
		return
	}

	stored, err := f.store.List(r.Context())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		f.logger.Error("Failed to list format overrides", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	defs := make([]addressing.AddressFormat, 0, len(stored))
	for _, s := range stored {
		defs = append(defs, s.AddressFormat)
	}

	w.Header().Set("Content-Type", "application/yaml")
	if err = addressing.WriteDefinitions(w, defs); err != nil {
		f.logger.Error("Failed to write format export", "error", err)
	}
}
