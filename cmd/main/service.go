package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CTAG07/Addressline/pkg/addressing"
	"github.com/CTAG07/Addressline/pkg/formatter"
	"golang.org/x/sync/errgroup"
)

// AddressService formats addresses with the live formatter settings and
// records every result in the stats and metrics.
type AddressService struct {
	mu        sync.RWMutex
	formatter *formatter.Formatter
	formats   *addressing.Overlay
	countries *addressing.CountryRepository
	stats     *StatsAPI
	metrics   *Metrics
	logger    *slog.Logger
	langcode  string
	workers   int
}

// NewAddressService builds the formatter from settings.
func NewAddressService(formats *addressing.Overlay, countries *addressing.CountryRepository, settings formatter.Settings,
	stats *StatsAPI, metrics *Metrics, logger *slog.Logger, server *ServerConfig) (*AddressService, error) {
	f, err := formatter.New(formats, countries, settings)
	if err != nil {
		return nil, err
	}
	return &AddressService{
		formatter: f,
		formats:   formats,
		countries: countries,
		stats:     stats,
		metrics:   metrics,
		logger:    logger,
		langcode:  server.DefaultLangcode,
		workers:   server.BatchWorkers,
	}, nil
}

// SetServerOptions applies the default language and batch worker limit.
func (s *AddressService) SetServerOptions(server *ServerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langcode = server.DefaultLangcode
	s.workers = server.BatchWorkers
}

// SetSettings swaps in a formatter built from settings.
func (s *AddressService) SetSettings(settings formatter.Settings) error {
	f, err := formatter.New(s.formats, s.countries, settings)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formatter = f
	return nil
}

// Settings returns the live formatter settings.
func (s *AddressService) Settings() formatter.Settings {
	return s.current().Settings()
}

func (s *AddressService) current() *formatter.Formatter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formatter
}

func (s *AddressService) resolveLangcode(langcode string) string {
	if langcode != "" {
		return langcode
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.langcode
}

func (s *AddressService) batchWorkers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workers
}

// Format formats one address. An empty langcode selects the configured
// default.
func (s *AddressService) Format(ctx context.Context, addr addressing.Address, langcode string) (formatter.Element, error) {
	el, err := s.current().Format(addr, s.resolveLangcode(langcode))
	if err != nil {
		s.observeError(err)
		return formatter.Element{}, err
	}
	s.record(ctx, []formatter.Element{el})
	return el, nil
}

// Preview formats addr without recording it.
func (s *AddressService) Preview(addr addressing.Address, langcode string) (formatter.Element, error) {
	return s.current().Format(addr, s.resolveLangcode(langcode))
}

// FormatBatch formats addrs concurrently and returns the elements in input
// order. The first failure cancels the rest and is returned with its index.
func (s *AddressService) FormatBatch(ctx context.Context, addrs []addressing.Address, langcode string) ([]formatter.Element, error) {
	f := s.current()
	langcode = s.resolveLangcode(langcode)
	elements := make([]formatter.Element, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchWorkers())
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			el, err := f.Format(addr, langcode)
			if err != nil {
				return fmt.Errorf("address %d: %w", i, err)
			}
			elements[i] = el
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.observeError(err)
		return nil, err
	}
	s.record(ctx, elements)
	return elements, nil
}

func (s *AddressService) observeError(err error) {
	if errors.Is(err, addressing.ErrUnknownCountry) {
		s.metrics.IncrementLookupErrors()
	}
}

// record counts formatted elements. Stats failures are logged only.
func (s *AddressService) record(ctx context.Context, elements []formatter.Element) {
	for _, el := range elements {
		s.metrics.ObserveFormatted(el)
	}
	if err := s.stats.RecordFormats(ctx, elements); err != nil {
		s.logger.Warn("Failed to record format stats", "count", len(elements), "error", err)
	}
}
