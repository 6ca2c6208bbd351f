package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/CTAG07/Addressline/pkg/formatter"
	"github.com/CTAG07/Addressline/pkg/templating"
)

// AddressAPI serves address formatting and rendering.
type AddressAPI struct {
	svc     *AddressService
	tm      *templating.TemplateManager
	cm      *ConfigManager
	metrics *Metrics
	logger  *slog.Logger
}

// NewAddressAPI creates a new instance of the AddressAPI.
func NewAddressAPI(svc *AddressService, tm *templating.TemplateManager, cm *ConfigManager, metrics *Metrics, logger *slog.Logger) *AddressAPI {
	return &AddressAPI{
		svc:     svc,
		tm:      tm,
		cm:      cm,
		metrics: metrics,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routing for all /api/address endpoints.
func (a *AddressAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/address/format", a.handleFormat)
	mux.HandleFunc("/api/address/render", a.handleRender)
	mux.HandleFunc("/api/address/settings", a.handleSettings)
}

// FormatRequest carries either one address or a batch.
type FormatRequest struct {
	Address   *addressing.Address  `json:"address,omitempty"`
	Addresses []addressing.Address `json:"addresses,omitempty"`
	Langcode  string               `json:"langcode,omitempty"`
}

// FormatResponse mirrors FormatRequest: Element and Inline for a single
// address, Elements for a batch.
type FormatResponse struct {
	Element  *formatter.Element  `json:"element,omitempty"`
	Inline   string              `json:"inline,omitempty"`
	Elements []formatter.Element `json:"elements,omitempty"`
}

// SettingsResponse describes the live formatter settings.
type SettingsResponse struct {
	Settings formatter.Settings `json:"settings"`
	Summary  []string           `json:"summary"`
	Options  []formatter.Option `json:"options"`
}

// formatErrorStatus maps a formatting error to an HTTP status.
func formatErrorStatus(err error) int {
	var lookupErr *addressing.LookupError
	if errors.As(err, &lookupErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (a *AddressAPI) handleFormat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, scopeAddressFormat) {
		forbidden(w, scopeAddressFormat)
		return
	}

	var req FormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	switch {
	case req.Address != nil && len(req.Addresses) > 0:
		respondWithError(w, http.StatusBadRequest, "Use either 'address' or 'addresses', not both")
	case req.Address != nil:
		el, err := a.svc.Format(r.Context(), *req.Address, req.Langcode)
		if err != nil {
			respondWithError(w, formatErrorStatus(err), err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, FormatResponse{Element: &el, Inline: el.Inline()})
	case len(req.Addresses) > 0:
		limit := a.cm.Get().Server.BatchLimit
		if len(req.Addresses) > limit {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Batch exceeds the limit of %d addresses", limit))
			return
		}
		elements, err := a.svc.FormatBatch(r.Context(), req.Addresses, req.Langcode)
		if err != nil {
			respondWithError(w, formatErrorStatus(err), err.Error())
			return
		}
		a.logger.Debug("Formatted address batch", "count", len(elements))
		respondWithJSON(w, http.StatusOK, FormatResponse{Elements: elements})
	default:
		respondWithError(w, http.StatusBadRequest, "An 'address' or 'addresses' field is required")
	}
}

// RenderRequest is the body of a render call.
type RenderRequest struct {
	Address  addressing.Address `json:"address"`
	Langcode string             `json:"langcode,omitempty"`
}

func (a *AddressAPI) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !hasScope(r, scopeAddressFormat) {
		forbidden(w, scopeAddressFormat)
		return
	}

	var req RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	display := templating.ParseDisplay(r.URL.Query().Get("display"))

	start := time.Now()
	el, err := a.svc.Format(r.Context(), req.Address, req.Langcode)
	if err != nil {
		respondWithError(w, formatErrorStatus(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err = a.tm.Render(&buf, el, display); err != nil {
		a.logger.Error("Failed to render address", "display", display, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to render address: %v", err))
		return
	}
	a.metrics.ObserveRender(string(display), start)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleSettings reads or replaces the formatter settings.
func (a *AddressAPI) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !hasScope(r, scopeAddressFormat) {
			forbidden(w, scopeAddressFormat)
			return
		}
		a.respondWithSettings(w)
	case http.MethodPut:
		if !hasScope(r, scopeServerConfig) {
			forbidden(w, scopeServerConfig)
			return
		}
		var settings formatter.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if err := a.cm.UpdateFormatter(settings); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, formatter.ErrInvalidSettings) {
				status = http.StatusBadRequest
			}
			respondWithError(w, status, err.Error())
			return
		}
		a.logger.Info("Formatter settings updated via API", "summary", a.svc.Settings().Summary())
		a.respondWithSettings(w)
	default:
		w.Header().Set("Allow", "GET, PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (a *AddressAPI) respondWithSettings(w http.ResponseWriter) {
	settings := a.svc.Settings()
	respondWithJSON(w, http.StatusOK, SettingsResponse{
		Settings: settings,
		Summary:  settings.Summary(),
		Options:  settings.DisplayOptions(),
	})
}
