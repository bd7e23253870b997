// Package app assembles the triage service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apiaudit "github.com/kilianp07/crisistriage/api/audit"
	apitriage "github.com/kilianp07/crisistriage/api/triage"
	"github.com/kilianp07/crisistriage/app/plugins"
	"github.com/kilianp07/crisistriage/config"
	"github.com/kilianp07/crisistriage/core/audit"
	"github.com/kilianp07/crisistriage/core/extract"
	"github.com/kilianp07/crisistriage/core/factory"
	coregeo "github.com/kilianp07/crisistriage/core/geocode"
	"github.com/kilianp07/crisistriage/core/llm"
	"github.com/kilianp07/crisistriage/core/matching"
	coremetrics "github.com/kilianp07/crisistriage/core/metrics"
	coremon "github.com/kilianp07/crisistriage/core/monitoring"
	corestore "github.com/kilianp07/crisistriage/core/store"
	"github.com/kilianp07/crisistriage/core/triage"
	"github.com/kilianp07/crisistriage/infra/geocode"
	"github.com/kilianp07/crisistriage/infra/logger"
	"github.com/kilianp07/crisistriage/infra/metrics"
	"github.com/kilianp07/crisistriage/infra/monitoring"
	"github.com/kilianp07/crisistriage/infra/mqtt"
	"github.com/kilianp07/crisistriage/internal/eventbus"
)

const (
	busBuffer       = 64
	shutdownTimeout = 5 * time.Second
)

// Service owns every long-lived component of the triage system.
type Service struct {
	Triage *triage.Service

	cfg      *config.Config
	store    corestore.Store
	audit    audit.Store
	bus      *eventbus.Bus
	sink     coremetrics.MetricsSink
	client   *mqtt.PahoClient
	notifier *mqtt.DispatchNotifier
	fleet    *mqtt.FleetListener
	redis    *redis.Client
	log      logger.Logger

	closeOnce sync.Once
}

// New creates a Service from the configuration. Collaborators that are
// optional (LLM, redis cache, MQTT, sentry) are skipped when unconfigured.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	bus := eventbus.New(
		eventbus.WithBuffer(busBuffer),
		eventbus.WithDropHandler(func() { log.Warnf("event bus subscriber full, event dropped") }),
	)
	s := &Service{cfg: cfg, log: log, bus: bus}
	if err := s.build(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) build(ctx context.Context) error {
	cfg := s.cfg
	st, err := plugins.Stores.Create(factory.ModuleConfig{
		Type: cfg.Store.Backend,
		Conf: map[string]any{"dsn": cfg.Store.DSN},
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	s.store = st

	if s.audit, err = audit.Open(cfg.Audit); err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	var gen llm.Generator
	if cfg.LLM.Enabled() {
		gen, err = plugins.Generators.Create(factory.ModuleConfig{
			Type: cfg.LLM.Provider,
			Conf: map[string]any{
				"api_key":     cfg.LLM.APIKey,
				"model":       cfg.LLM.Model,
				"temperature": cfg.LLM.Temperature,
				"max_tokens":  cfg.LLM.MaxTokens,
			},
		})
		if err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	}

	ex, err := buildExtractor(cfg, gen)
	if err != nil {
		return err
	}
	matcher, err := buildMatcher(cfg, gen, st, s.bus)
	if err != nil {
		return err
	}

	svc, err := triage.NewService(ex, s.buildGeocoder(ctx), matcher, st, cfg.Triage(), s.bus, logger.New("triage"))
	if err != nil {
		return err
	}
	svc.SetAuditStore(s.audit)
	s.Triage = svc

	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		s.notifier = mqtt.NewDispatchNotifier(client, s.bus, cfg.MQTT.AckTimeout(), logger.New("notifier"))
		s.fleet = mqtt.NewFleetListener(client, svc, logger.New("fleet"))
	} else {
		s.log.Infof("mqtt disabled: dispatch notices will not be sent")
	}
	return nil
}

func buildExtractor(cfg *config.Config, gen llm.Generator) (extract.Extractor, error) {
	log := logger.New("extract")
	if gen == nil {
		log.Warnf("no llm configured: using keyword extraction only")
		return extract.KeywordExtractor{}, nil
	}
	primary, err := extract.NewLLMExtractor(gen, cfg.Extraction.Weights, log)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	if !cfg.Extraction.FallbackEnabled() {
		return primary, nil
	}
	fb, err := extract.NewFallback(primary, extract.KeywordExtractor{}, log)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	return fb, nil
}

func buildMatcher(cfg *config.Config, gen llm.Generator, finder matching.ResourceFinder, bus eventbus.EventBus) (*matching.Orchestrator, error) {
	log := logger.New("matching")
	rule, err := matching.NewRuleMatcher(cfg.Matching.Weights)
	if err != nil {
		return nil, fmt.Errorf("rule matcher: %w", err)
	}
	var ai matching.Matcher
	if cfg.Matching.AIEnabled && gen != nil {
		m, err := matching.NewAIMatcher(gen, log, 0)
		if err != nil {
			return nil, fmt.Errorf("ai matcher: %w", err)
		}
		ai = m
	}
	return matching.NewOrchestrator(finder, rule, ai, cfg.Matching.Orchestrator(), bus, log)
}

func (s *Service) buildGeocoder(ctx context.Context) coregeo.Geocoder {
	gc := s.cfg.Geocode
	log := logger.New("geocode")
	var g coregeo.Geocoder = geocode.NewNominatim(gc.BaseURL, gc.UserAgent, time.Duration(gc.TimeoutSeconds)*time.Second, log)
	if gc.Cache.RedisURL == "" {
		return g
	}
	rdb, err := geocode.NewRedisClient(ctx, gc.Cache.RedisURL)
	if err != nil {
		log.Warnf("geocode cache disabled: %v", err)
		return g
	}
	s.redis = rdb
	return geocode.NewCached(g, rdb, time.Duration(gc.Cache.TTLMinutes)*time.Minute, log)
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	apitriage.NewHandler(s.Triage, s.store, logger.New("api")).Register(mux)
	mux.Handle("GET /api/audit/logs", apiaudit.NewLogHandler(s.Triage, s.cfg.HTTP.AuditToken))
	return mux
}

// Run starts the background workers and the HTTP server and blocks until
// ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.promEnabled() {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.notifier != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer coremon.Recover()
			s.notifier.Run(ctx)
		}()
	}
	if s.fleet != nil {
		if err := s.fleet.Start(); err != nil {
			s.log.Errorf("fleet status subscription: %v", err)
		}
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Address, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving triage api on %s", s.cfg.HTTP.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

func (s *Service) promEnabled() bool {
	for _, c := range s.cfg.Metrics.Sinks {
		if c.Type == "prometheus" {
			return true
		}
	}
	return false
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.client != nil {
			s.client.Disconnect()
		}
		s.bus.Close()
		if s.redis != nil {
			errs = append(errs, s.redis.Close())
		}
		if s.audit != nil {
			errs = append(errs, s.audit.Close())
		}
		if s.store != nil {
			errs = append(errs, s.store.Close())
		}
		coremon.Flush(2 * time.Second)
	})
	return errors.Join(errs...)
}
