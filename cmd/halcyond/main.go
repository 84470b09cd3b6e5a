// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Command halcyond runs the Halcyon engine as a long-lived daemon: it
// wires storage, the scorer, the learner, and the notification engine
// together, supervises the queue drainer, and serves Prometheus metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/api"
	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/config"
	"github.com/halcyonlabs/halcyon/internal/discovery"
	"github.com/halcyonlabs/halcyon/internal/learner"
	"github.com/halcyonlabs/halcyon/internal/logging"
	"github.com/halcyonlabs/halcyon/internal/notify"
	"github.com/halcyonlabs/halcyon/internal/push"
	"github.com/halcyonlabs/halcyon/internal/recommend"
	"github.com/halcyonlabs/halcyon/internal/recommend/domains"
	"github.com/halcyonlabs/halcyon/internal/storage"
	"github.com/halcyonlabs/halcyon/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("configuration load failed")
	}

	logging.Init(cfg.LoggingConfigValue())
	logger := logging.Logger()
	logger.Info().Str("listen", cfg.ListenAddr()).Msg("halcyond starting")

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("halcyond exited with error")
	}
	logger.Info().Msg("halcyond stopped")
}

// run builds the engine graph and serves until a shutdown signal.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}

	repo, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	scorer, err := recommend.NewScorer(cfg.ScoringConfig(), clk, logger)
	if err != nil {
		return err
	}
	scorer.RegisterShaper(domains.NewTaskShaper(clk))

	// External music and theme discovery is opt-in; without a provider
	// the recommenders degrade to persisted pools.
	var disc *discovery.Client
	if cfg.Discovery.Enabled {
		searcher := discovery.NewHTTPSearcher(cfg.Discovery.URL, cfg.Discovery.Timeout)
		disc = discovery.NewClient(searcher, logger)
	}

	task := domains.NewTaskRecommender(scorer, repo, logger)
	music := domains.NewMusicRecommender(scorer, repo, disc, logger)
	theme := domains.NewThemeRecommender(scorer, repo, disc, logger)
	learn := learner.New(repo, repo, logger)

	// Admitted notifications go out over the WebSocket hub; the log
	// sender keeps a delivery trail either way.
	hub := push.NewHub(logger)
	sender := fanoutSender{senders: []notify.Sender{hub, logSender{logger: logger}}}

	engine, err := notify.NewEngine(cfg.NotifyConfig(), sender, clk, logger)
	if err != nil {
		return err
	}

	apiServer := api.NewServer(task, music, theme, learn, engine, repo, repo, clk, logger)
	routes := apiServer.Routes(api.RouteConfig{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   time.Minute,
		Stream:            hub.Handler(),
	})

	tree := supervisor.NewTree(logging.Slog(), supervisor.DefaultTreeConfig())
	tree.Add(hub)
	tree.Add(notify.NewDrainer(engine, logger))
	tree.Add(newHTTPService(cfg.ListenAddr(), routes, logger))

	return tree.Serve(ctx)
}

// storeHandle is the union of the repository interfaces both stores
// implement.
type storeHandle interface {
	recommend.ItemRepository
	learner.PreferenceRepository
}

// openStore selects the configured repository backend.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openStore(cfg *config.Config, logger zerolog.Logger) (storeHandle, func(), error) {
	if cfg.Storage.InMemory {
		return storage.NewMemoryStore(), func() {}, nil
	}

	store, err := storage.OpenBadger(cfg.Storage.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("store close failed")
		}
	}
	return store, closer, nil
}

// fanoutSender delivers through every transport. The first failure
// aborts; the rate-limit slot stays consumed either way.
type fanoutSender struct {
	senders []notify.Sender
}

func (s fanoutSender) Send(ctx context.Context, n *notify.Notification) error {
	for _, sender := range s.senders {
		if err := sender.Send(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// logSender writes a delivery trail to the structured log.
type logSender struct {
	logger zerolog.Logger
}

func (s logSender) Send(_ context.Context, n *notify.Notification) error {
	s.logger.Info().
		Str("id", n.ID).
		Str("category", string(n.Category)).
		Str("title", n.Title).
		Msg("notification delivered")
	return nil
}

// httpService serves the API and metrics under supervision.
type httpService struct {
	addr    string
	handler http.Handler
	logger  zerolog.Logger
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newHTTPService(addr string, handler http.Handler, logger zerolog.Logger) *httpService {
	return &httpService{
		addr:    addr,
		handler: handler,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// Serve runs the HTTP server until the context is canceled.
func (s *httpService) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info().Str("addr", s.addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// String names the service in supervisor logs.
func (s *httpService) String() string {
	return "http-server"
}
