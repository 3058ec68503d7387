// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Server struct {
	manager *Manager
	host    string
	port    int
}

func NewServer(manager *Manager, host string, port int) *Server {
	return &Server{
		manager: manager,
		host:    host,
		port:    port,
	}
}

func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.manager.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("Starting metrics server")

	return srv.ListenAndServe()
}
