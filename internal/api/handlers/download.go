// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/easly1989/mircrewrr/internal/indexer"
	"github.com/easly1989/mircrewrr/internal/metrics"
	"github.com/easly1989/mircrewrr/internal/torznab"
)

// Resolver turns a payload address into a magnet URI, unlocking the topic
// if needed.
type Resolver interface {
	Resolve(ctx context.Context, req indexer.ResolveRequest) (string, error)
}

// DownloadHandler serves the /download endpoint: it resolves the requested
// payload and redirects the consumer to the magnet.
type DownloadHandler struct {
	resolver Resolver
	apiKey   string
	metrics  *metrics.Manager
	logger   zerolog.Logger
}

func NewDownloadHandler(resolver Resolver, apiKey string, m *metrics.Manager) *DownloadHandler {
	return &DownloadHandler{
		resolver: resolver,
		apiKey:   apiKey,
		metrics:  m,
		logger:   log.Logger.With().Str("module", "api").Logger(),
	}
}

// Routes registers the download route.
func (h *DownloadHandler) Routes(r chi.Router) {
	r.Get("/download", h.Handle)
}

func (h *DownloadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("apikey") != h.apiKey {
		h.record("forbidden")
		writeXML(w, http.StatusForbidden, torznab.NewProtocolError(torznab.ErrCodeIncorrectCredentials, "Incorrect user credentials"))
		return
	}

	topicID, err := strconv.Atoi(q.Get("topic"))
	if err != nil || topicID <= 0 {
		h.record("bad_request")
		writeXML(w, http.StatusBadRequest, torznab.NewProtocolError(torznab.ErrCodeMissingParameter, "Missing parameter (topic)"))
		return
	}

	req := indexer.ResolveRequest{
		TopicID:  topicID,
		InfoHash: q.Get("infohash"),
		Season:   queryIntPtr(q, "season"),
		Episode:  queryIntPtr(q, "ep"),
	}

	magnet, err := h.resolver.Resolve(r.Context(), req)
	switch {
	case errors.Is(err, indexer.ErrNotFound):
		h.record("not_found")
		writeXML(w, http.StatusNotFound, torznab.NewProtocolError(torznab.ErrCodeNoSuchItem, "No such item"))
		return
	case err != nil:
		h.record("error")
		h.logger.Error().Err(err).Int("topicID", topicID).Msg("Payload resolution failed")
		writeXML(w, http.StatusInternalServerError, torznab.NewProtocolError(torznab.ErrCodeUnknownError, "Resolution failed: "+err.Error()))
		return
	}

	h.record("ok")
	http.Redirect(w, r, magnet, http.StatusFound)
}

func (h *DownloadHandler) record(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordDownload(outcome)
	}
}
