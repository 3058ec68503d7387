// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// SessionStatus is what the health endpoint reveals about the forum login.
type SessionStatus interface {
	Valid() bool
	LastLogin() time.Time
}

// AcknowledgedCounter reports how many topics this account has unlocked.
type AcknowledgedCounter interface {
	AcknowledgedCount() int
}

type HealthHandler struct {
	session SessionStatus
	acks    AcknowledgedCounter
	version string
}

func NewHealthHandler(session SessionStatus, acks AcknowledgedCounter, version string) *HealthHandler {
	return &HealthHandler{
		session: session,
		acks:    acks,
		version: version,
	}
}

// Routes registers the health route.
func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/health", h.Handle)
}

type healthResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Session sessionHealth `json:"session"`

	AcknowledgedTopics int `json:"acknowledgedTopics"`
}

type sessionHealth struct {
	Valid     bool       `json:"valid"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:             "ok",
		Version:            h.version,
		AcknowledgedTopics: h.acks.AcknowledgedCount(),
	}

	resp.Session.Valid = h.session.Valid()
	if last := h.session.LastLogin(); !last.IsZero() {
		resp.Session.LastLogin = &last
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}
