// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/easly1989/mircrewrr/internal/forum"
	"github.com/easly1989/mircrewrr/internal/release"
	"github.com/easly1989/mircrewrr/internal/store"
)

const defaultResultLimit = 100

// Service runs searches against the forum and expands each topic into feed
// results. Passive thread fetches are cached briefly so a search followed
// by its downloads does not hammer the board.
type Service struct {
	forum  *forum.Client
	store  *store.Store
	logger zerolog.Logger

	resultLimit    int
	threadCacheTTL time.Duration
	threads        *ttlcache.Cache[int, *forum.Thread]

	// unlockHook fires once per newly acknowledged topic.
	unlockHook func()
}

// ServiceOption configures optional behaviour on the indexer service.
type ServiceOption func(*Service)

// WithResultLimit caps the number of results per search response.
func WithResultLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.resultLimit = n
		}
	}
}

// WithThreadCacheTTL overrides how long passively fetched threads are
// reused before hitting the board again.
func WithThreadCacheTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.threadCacheTTL = d
		}
	}
}

// WithUnlockHook registers a callback fired after every unlock this
// service performs.
func WithUnlockHook(fn func()) ServiceOption {
	return func(s *Service) {
		s.unlockHook = fn
	}
}

func NewService(fc *forum.Client, st *store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		forum:          fc,
		store:          st,
		logger:         log.Logger.With().Str("module", "indexer").Logger(),
		resultLimit:    defaultResultLimit,
		threadCacheTTL: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.threads = ttlcache.New(ttlcache.Options[int, *forum.Thread]{}.
		SetDefaultTTL(s.threadCacheTTL))

	return s
}

// Search runs one remote query and expands the result rows. Session and
// search failures abort the whole call; a single thread that cannot be
// fetched or parsed is skipped instead.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if err := s.forum.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	limit := req.Limit
	if limit <= 0 || limit > s.resultLimit {
		limit = s.resultLimit
	}

	forums := ForumsForCategories(req.Categories)

	rows, err := s.forum.Search(ctx, req.Query, forums, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(rows))
	var results []SearchResult

	for _, row := range rows {
		if len(results) >= limit {
			break
		}
		if _, dup := seen[row.TopicID]; dup {
			continue
		}
		seen[row.TopicID] = struct{}{}

		info := release.ParseTitle(row.Title)
		if !seasonMatches(info, req.Season) {
			continue
		}

		expanded, err := s.expand(ctx, row, info, req.Episode)
		if err != nil {
			s.logger.Warn().Err(err).Int("topicID", row.TopicID).Msg("Skipping topic")
			continue
		}

		results = append(results, expanded...)
	}

	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug().
		Str("query", req.Query).
		Int("rows", len(rows)).
		Int("results", len(results)).
		Msg("Search expanded")

	return results, nil
}

// seasonMatches applies the season filter against the title-derived
// season. Titles without a season token are season-agnostic and pass;
// multi-season spans are emitted whole regardless of the filter.
func seasonMatches(info release.TitleInfo, season *int) bool {
	if season == nil || info.MultiSeason || info.Season == nil {
		return true
	}
	return *info.Season == *season
}

// expand picks one of three mutually exclusive strategies for a topic.
// Acknowledged topics always expand from real content: ground truth beats
// guessing no matter the category.
func (s *Service) expand(ctx context.Context, row forum.Row, info release.TitleInfo, episode *int) ([]SearchResult, error) {
	category := CategoryForForum(row.ForumID)

	if s.store.IsAcknowledged(row.TopicID) {
		return s.expandConcrete(ctx, row, info, episode, category)
	}

	if IsEpisodicForum(row.ForumID) && !info.MultiSeason && info.EpisodesAired > 0 {
		return s.expandSynthetic(row, info, episode, category), nil
	}

	return []SearchResult{s.threadResult(row, category)}, nil
}

// expandConcrete parses the already unlocked thread and emits one result
// per payload, filtered by the requested episode.
func (s *Service) expandConcrete(ctx context.Context, row forum.Row, info release.TitleInfo, episode *int, category int) ([]SearchResult, error) {
	thread, err := s.thread(ctx, row.TopicID)
	if err != nil {
		return nil, err
	}

	releases := release.ParsePost(thread.Doc)

	results := make([]SearchResult, 0, len(releases))
	for _, rel := range releases {
		if !rel.Matches(nil, episode) {
			continue
		}

		name := rel.Name
		if name == "" {
			name = row.Title
		}

		size := rel.Size
		estimated := false
		if size == 0 {
			size = EstimateSize(name, row.ForumID)
			estimated = true
		}

		season := rel.Season
		if season == 0 && info.Season != nil {
			season = *info.Season
		}

		results = append(results, SearchResult{
			GUID:          concreteGUID(row.TopicID, rel.InfoHash),
			Title:         name,
			TopicID:       row.TopicID,
			InfoHash:      rel.InfoHash,
			Size:          size,
			SizeEstimated: estimated,
			Category:      category,
			Season:        season,
			Episode:       rel.Episode,
			PublishDate:   row.Posted,
		})
	}

	return results, nil
}

// expandSynthetic emits one placeholder per aired episode. The payload is
// resolved only when a consumer actually grabs one.
func (s *Service) expandSynthetic(row forum.Row, info release.TitleInfo, episode *int, category int) []SearchResult {
	season := 1
	if info.Season != nil {
		season = *info.Season
	}

	if !info.Complete && info.EpisodesAired < info.EpisodesTotal {
		s.logger.Debug().
			Int("topicID", row.TopicID).
			Int("aired", info.EpisodesAired).
			Int("total", info.EpisodesTotal).
			Msg("Thread still airing, emitting placeholders for aired episodes only")
	}

	size := EstimateSize(row.Title, row.ForumID)

	results := make([]SearchResult, 0, info.EpisodesAired)
	for ep := 1; ep <= info.EpisodesAired; ep++ {
		if episode != nil && *episode != ep {
			continue
		}
		results = append(results, SearchResult{
			GUID:          syntheticGUID(row.TopicID, season, ep),
			Title:         fmt.Sprintf("%s S%02dE%02d", row.Title, season, ep),
			TopicID:       row.TopicID,
			Size:          size,
			SizeEstimated: true,
			Category:      category,
			Season:        season,
			Episode:       ep,
			PublishDate:   row.Posted,
		})
	}

	return results
}

// threadResult represents the whole topic as a single item. Sizes come
// from the title when embedded there, estimation otherwise; the episode
// filter never applies since there is nothing to filter on.
func (s *Service) threadResult(row forum.Row, category int) SearchResult {
	size, ok := release.ParseEmbeddedSize(row.Title)
	estimated := !ok
	if !ok {
		size = EstimateSize(row.Title, row.ForumID)
	}

	return SearchResult{
		GUID:          strconv.Itoa(row.TopicID),
		Title:         row.Title,
		TopicID:       row.TopicID,
		Size:          size,
		SizeEstimated: estimated,
		Category:      category,
		PublishDate:   row.Posted,
	}
}

// thread returns the passively fetched topic page, from cache when fresh.
func (s *Service) thread(ctx context.Context, topicID int) (*forum.Thread, error) {
	if cached, ok := s.threads.Get(topicID); ok {
		return cached, nil
	}

	thread, err := s.forum.FetchPassive(ctx, topicID)
	if err != nil {
		return nil, err
	}

	s.threads.Set(topicID, thread, ttlcache.DefaultTTL)
	return thread, nil
}
