// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/easly1989/mircrewrr/internal/api/handlers"
	"github.com/easly1989/mircrewrr/internal/config"
	"github.com/easly1989/mircrewrr/internal/forum"
	"github.com/easly1989/mircrewrr/internal/indexer"
	"github.com/easly1989/mircrewrr/internal/metrics"
	"github.com/easly1989/mircrewrr/internal/store"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	indexerService *indexer.Service
	forumClient    *forum.Client
	store          *store.Store
	metricsManager *metrics.Manager
}

type Dependencies struct {
	Config         *config.AppConfig
	Version        string
	IndexerService *indexer.Service
	ForumClient    *forum.Client
	Store          *store.Store
	MetricsManager *metrics.Manager
}

func NewServer(deps *Dependencies) *Server {
	return &Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:         log.Logger.With().Str("module", "api").Logger(),
		config:         deps.Config,
		version:        deps.Version,
		indexerService: deps.IndexerService,
		forumClient:    deps.ForumClient,
		store:          deps.Store,
		metricsManager: deps.MetricsManager,
	}
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msg("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Msgf("Starting Torznab server - caps: http://%s%s/api?t=caps", host, s.config.Config.BaseURL)

	s.server.Handler = s.Handler()

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	// XML feeds compress well; keep the level fast, this sits in front of
	// every Prowlarr poll
	compressor, err := httpcompression.DefaultAdapter(
		httpcompression.MinSize(1024),
		httpcompression.GzipCompressionLevel(2),
		httpcompression.Prefer(httpcompression.PreferServer),
	)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create HTTP compression adapter")
	} else {
		r.Use(compressor)
	}

	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	torznabHandler := handlers.NewTorznabHandler(
		s.indexerService,
		s.config.Config.APIKey,
		s.config.Config.BaseURL,
		s.config.Config.ResultLimit,
		s.metricsManager,
	)
	downloadHandler := handlers.NewDownloadHandler(s.indexerService, s.config.Config.APIKey, s.metricsManager)
	healthHandler := handlers.NewHealthHandler(s.forumClient, s.store, s.version)

	mount := func(r chi.Router) {
		torznabHandler.Routes(r)
		downloadHandler.Routes(r)
		healthHandler.Routes(r)
	}

	baseURL := strings.TrimRight(s.config.Config.BaseURL, "/")
	if baseURL == "" {
		mount(r)
	} else {
		r.Route(baseURL, mount)
	}

	return r
}
