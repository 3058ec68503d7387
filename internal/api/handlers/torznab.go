// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package handlers implements the HTTP surface of the proxy: the Torznab
// API, the download redirect and the health endpoint.
package handlers

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/easly1989/mircrewrr/internal/indexer"
	"github.com/easly1989/mircrewrr/internal/metrics"
	"github.com/easly1989/mircrewrr/internal/torznab"
)

const maxResultLimit = 300

var (
	errBadCredentials = errors.New("incorrect credentials")
	errNoSuchFunction = errors.New("no such function")
)

// Searcher runs normalized queries against the forum.
type Searcher interface {
	Search(ctx context.Context, req indexer.SearchRequest) ([]indexer.SearchResult, error)
}

// TorznabHandler serves the /api endpoint.
type TorznabHandler struct {
	searcher     Searcher
	apiKey       string
	baseURL      string
	limitDefault int
	metrics      *metrics.Manager
	logger       zerolog.Logger
}

func NewTorznabHandler(searcher Searcher, apiKey, baseURL string, limitDefault int, m *metrics.Manager) *TorznabHandler {
	if limitDefault <= 0 || limitDefault > maxResultLimit {
		limitDefault = 100
	}
	return &TorznabHandler{
		searcher:     searcher,
		apiKey:       apiKey,
		baseURL:      baseURL,
		limitDefault: limitDefault,
		metrics:      m,
		logger:       log.Logger.With().Str("module", "api").Logger(),
	}
}

// Routes registers the Torznab routes.
func (h *TorznabHandler) Routes(r chi.Router) {
	r.Get("/api", h.Handle)
}

func (h *TorznabHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	function := q.Get("t")
	if function == "" {
		writeXML(w, http.StatusOK, torznab.NewProtocolError(torznab.ErrCodeMissingParameter, "Missing parameter (t)"))
		return
	}

	if q.Get("apikey") != h.apiKey {
		h.record(function, errBadCredentials)
		writeXML(w, http.StatusOK, torznab.NewProtocolError(torznab.ErrCodeIncorrectCredentials, "Incorrect user credentials"))
		return
	}

	switch function {
	case "caps":
		h.record(function, nil)
		writeXML(w, http.StatusOK, torznab.DefaultCaps(h.limitDefault, maxResultLimit))
	case "search", "tvsearch", "movie":
		h.search(w, r, function)
	default:
		h.record(function, errNoSuchFunction)
		writeXML(w, http.StatusOK, torznab.NewProtocolError(torznab.ErrCodeNoSuchFunction, "No such function"))
	}
}

func (h *TorznabHandler) search(w http.ResponseWriter, r *http.Request, function string) {
	q := r.URL.Query()

	req := indexer.SearchRequest{
		Query: strings.TrimSpace(q.Get("q")),
		Limit: h.limitDefault,
	}

	if function == "tvsearch" {
		req.Season = queryIntPtr(q, "season")
		req.Episode = queryIntPtr(q, "ep")
	}

	if cats := q.Get("cat"); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(c)); err == nil && n > 0 {
				req.Categories = append(req.Categories, n)
			}
		}
	} else if function == "movie" {
		req.Categories = []int{indexer.CatMovies}
	} else if function == "tvsearch" {
		req.Categories = []int{indexer.CatTV, indexer.CatTVAnime}
	}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		if limit > maxResultLimit {
			limit = maxResultLimit
		}
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		req.Offset = offset
	}

	results, err := h.searcher.Search(r.Context(), req)
	h.record(function, err)
	if err != nil {
		// A failed search is an explicit error, never an empty feed
		h.logger.Error().Err(err).Str("function", function).Msg("Search failed")
		writeXML(w, http.StatusOK, torznab.NewProtocolError(torznab.ErrCodeUnknownError, "Search failed: "+err.Error()))
		return
	}

	if req.Offset > 0 {
		if req.Offset >= len(results) {
			results = nil
		} else {
			results = results[req.Offset:]
		}
	}

	feed := torznab.NewRss("MIRCrew", "MIRCrew releases indexer")
	feed.Channel.Link = selfURL(r, h.baseURL, "")

	for _, res := range results {
		feed.Channel.Items = append(feed.Channel.Items, h.item(r, res))
	}

	writeXML(w, http.StatusOK, feed)
}

func (h *TorznabHandler) item(r *http.Request, res indexer.SearchResult) torznab.Item {
	downloadURL := h.downloadURL(r, res)

	attrs := []torznab.Attr{
		{Name: "category", Value: strconv.Itoa(res.Category)},
		{Name: "size", Value: strconv.FormatInt(res.Size, 10)},
		{Name: "seeders", Value: "1"},
		{Name: "peers", Value: "1"},
	}
	if res.Season > 0 {
		attrs = append(attrs, torznab.Attr{Name: "season", Value: strconv.Itoa(res.Season)})
	}
	if res.Episode > 0 {
		attrs = append(attrs, torznab.Attr{Name: "episode", Value: strconv.Itoa(res.Episode)})
	}

	return torznab.Item{
		Title:    res.Title,
		GUID:     torznab.GUID{IsPermaLink: false, Value: res.GUID},
		Link:     downloadURL,
		PubDate:  torznab.FormatPubDate(res.PublishDate),
		Size:     res.Size,
		Category: []string{strconv.Itoa(res.Category)},
		Enclosure: &torznab.Enclosure{
			URL:    downloadURL,
			Length: res.Size,
			Type:   "application/x-bittorrent;x-scheme-handler/magnet",
		},
		Attrs: attrs,
	}
}

// downloadURL addresses the payload through this proxy so the consumer
// never needs forum credentials. Synthetic results are addressed by
// season/episode, concrete ones by info hash.
func (h *TorznabHandler) downloadURL(r *http.Request, res indexer.SearchResult) string {
	v := url.Values{}
	v.Set("apikey", h.apiKey)
	v.Set("topic", strconv.Itoa(res.TopicID))
	if res.InfoHash != "" {
		v.Set("infohash", res.InfoHash)
	} else if res.Episode > 0 {
		v.Set("season", strconv.Itoa(res.Season))
		v.Set("ep", strconv.Itoa(res.Episode))
	}

	return selfURL(r, h.baseURL, "download") + "?" + v.Encode()
}

func (h *TorznabHandler) record(function string, err error) {
	if h.metrics != nil {
		h.metrics.RecordAPIRequest(function, err)
	}
}

// selfURL rebuilds this server's externally visible URL from the request,
// honoring a reverse proxy's forwarded scheme.
func selfURL(r *http.Request, baseURL, p string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: path.Join("/", baseURL, p)}
	return u.String()
}

func queryIntPtr(q url.Values, key string) *int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

func writeXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)

	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode XML response")
	}
}
