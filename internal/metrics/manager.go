// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes Prometheus metrics for the proxy on a dedicated
// listener, kept off the Torznab port so consumers never see it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/easly1989/mircrewrr/internal/forum"
	"github.com/easly1989/mircrewrr/internal/store"
)

type Manager struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	downloads   *prometheus.CounterVec
	unlocks     prometheus.Counter
}

func NewManager(fc *forum.Client, st *store.Store) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mircrewrr_api_requests_total",
			Help: "Torznab API requests by function and outcome",
		}, []string{"function", "outcome"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mircrewrr_downloads_total",
			Help: "Payload resolutions by outcome",
		}, []string{"outcome"}),
		unlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mircrewrr_unlocks_total",
			Help: "One-time topic unlock interactions performed",
		}),
	}

	registry.MustRegister(m.apiRequests, m.downloads, m.unlocks)

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mircrewrr_session_valid",
		Help: "Whether the forum session is currently validated",
	}, func() float64 {
		if fc.Valid() {
			return 1
		}
		return 0
	}))

	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "mircrewrr_acknowledged_topics",
		Help: "Topics unlocked by this account so far",
	}, func() float64 {
		return float64(st.AcknowledgedCount())
	}))

	log.Info().Msg("Metrics manager initialized")

	return m
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordAPIRequest counts one Torznab call.
func (m *Manager) RecordAPIRequest(function string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.apiRequests.WithLabelValues(function, outcome).Inc()
}

// RecordDownload counts one payload resolution attempt.
func (m *Manager) RecordDownload(outcome string) {
	m.downloads.WithLabelValues(outcome).Inc()
}

// RecordUnlock counts a newly acknowledged topic.
func (m *Manager) RecordUnlock() {
	m.unlocks.Inc()
}
