package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/CTAG07/Addressline/pkg/templating"
)

type Server struct {
	cm          *ConfigManager
	db          *sql.DB
	logger      *slog.Logger
	store       *addressing.Store
	keys        *KeyStore
	svc         *AddressService
	tm          *templating.TemplateManager
	metrics     *Metrics
	authAPI     *AuthAPI
	addressAPI  *AddressAPI
	formatsAPI  *FormatsAPI
	templateAPI *TemplateAPI
	statsAPI    *StatsAPI
	serverAPI   *ServerAPI
	publicMux   *http.ServeMux
	apiMux      *http.ServeMux
}

// NewServer wires every component on top of an initialized database.
func NewServer(cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	config := cm.Get()

	base, err := addressing.DefaultRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded address formats: %w", err)
	}
	store, err := addressing.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating format store: %w", err)
	}
	store.SetLogger(logger)
	keys, err := NewKeyStore(db)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("error creating key store: %w", err)
	}

	overlay := addressing.NewOverlay(base)
	if err = overlay.LoadFromStore(context.Background(), store); err != nil {
		store.Close()
		keys.Close()
		return nil, fmt.Errorf("failed to load format overrides from db: %w", err)
	}
	countries := addressing.NewCountryRepository()
	metrics := NewMetrics()
	metrics.SetOverrides(len(overlay.Overridden()))

	tm, err := templating.NewTemplateManager(logger, config.Templates, config.Server.DataDir)
	if err != nil {
		store.Close()
		keys.Close()
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}

	statsAPI := NewStatsAPI(db, logger)
	svc, err := NewAddressService(overlay, countries, *config.Formatter, statsAPI, metrics, logger, config.Server)
	if err != nil {
		store.Close()
		keys.Close()
		return nil, fmt.Errorf("failed to create address service: %w", err)
	}
	cm.SetTemplateManager(tm)
	cm.SetAddressService(svc)

	server := &Server{
		cm:          cm,
		db:          db,
		logger:      logger,
		store:       store,
		keys:        keys,
		svc:         svc,
		tm:          tm,
		metrics:     metrics,
		authAPI:     NewAuthAPI(keys, logger),
		addressAPI:  NewAddressAPI(svc, tm, cm, metrics, logger),
		formatsAPI:  NewFormatsAPI(base, overlay, store, countries, metrics, logger),
		templateAPI: NewTemplateAPI(tm, svc, logger),
		statsAPI:    statsAPI,
		serverAPI:   NewServerAPI(cm, actionChan, logger),
		publicMux:   http.NewServeMux(),
		apiMux:      http.NewServeMux(),
	}

	apiMux := http.NewServeMux()

	server.authAPI.RegisterRoutes(apiMux)
	server.addressAPI.RegisterRoutes(apiMux)
	server.formatsAPI.RegisterRoutes(apiMux)
	server.templateAPI.RegisterRoutes(apiMux)
	server.statsAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Make sure api functions must pass through authentication first
	authedAPI := server.authAPI.Authenticate(apiMux)
	// ... except for the health check and metrics, which scrapers call without a key
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)
	server.apiMux.Handle("/metrics", metrics.Handler())
	server.apiMux.Handle("/api/", authedAPI)

	server.publicMux.HandleFunc("/favicon.ico", handleFavicon)
	server.publicMux.HandleFunc("/address", server.handleAddress)

	return server, nil
}

// Close releases the prepared statements. The database is closed by the caller.
func (s *Server) Close() {
	s.store.Close()
	s.keys.Close()
}

// addressFromQuery reads an address from query parameters named after the
// fields, e.g. ?country=BE&address_line1=...&postal_code=1000.
func addressFromQuery(r *http.Request) addressing.Address {
	q := r.URL.Query()
	addr := addressing.Address{Locale: q.Get("locale")}
	for _, f := range addressing.AllFields() {
		addr.Set(f, q.Get(f.Key()))
	}
	return addr
}

// handleAddress renders one address from the query string with the
// configured inline template, or the block template for ?display=block.
func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	display := templating.ParseDisplay(r.URL.Query().Get("display"))
	el, err := s.svc.Format(r.Context(), addressFromQuery(r), r.URL.Query().Get("lang"))
	if err != nil {
		s.logger.Debug("Rejected address", "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, err.Error(), formatErrorStatus(err))
		return
	}

	var buf bytes.Buffer
	if err = s.tm.Render(&buf, el, display); err != nil {
		s.logger.Error("Failed to render address", "display", display, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.metrics.ObserveRender(string(display), start)
	s.logger.Debug("Serving address", "country_code", el.CountryCode, "local", el.Local, "display", display)

	for key, value := range s.cm.Get().Server.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	_, _ = buf.WriteTo(w)
}

// handleFavicon answers favicon requests with no content so browsers stop asking.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
