// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/autobrr/autobrr/pkg/ttlcache"

	"github.com/easly1989/mircrewrr/internal/release"
)

// ResolveRequest addresses one payload inside a topic. InfoHash takes
// precedence; season/episode address synthetic placeholders; with neither,
// the first payload wins.
type ResolveRequest struct {
	TopicID  int
	InfoHash string
	Season   *int
	Episode  *int
}

// Resolve returns the magnet URI for a requested payload, unlocking the
// topic first when this account has not acknowledged it yet. This is the
// only path that unlocks. A specifically requested payload that is absent
// yields ErrNotFound, never a substitute.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (string, error) {
	if err := s.forum.Acquire(ctx); err != nil {
		return "", fmt.Errorf("acquire session: %w", err)
	}

	var releases []release.Release

	if s.store.IsAcknowledged(req.TopicID) {
		thread, err := s.thread(ctx, req.TopicID)
		if err != nil {
			return "", err
		}
		releases = release.ParsePost(thread.Doc)
	} else {
		thread, already, err := s.forum.Unlock(ctx, req.TopicID)
		if err != nil {
			return "", err
		}
		if err := s.store.MarkAcknowledged(req.TopicID); err != nil {
			s.logger.Warn().Err(err).Int("topicID", req.TopicID).Msg("Failed to persist acknowledged flag")
		}

		// Replace any cached passive copy that predates the unlock
		s.threads.Set(req.TopicID, thread, ttlcache.DefaultTTL)

		if already {
			s.logger.Debug().Int("topicID", req.TopicID).Msg("Topic was already unlocked")
		} else if s.unlockHook != nil {
			s.unlockHook()
		}
		releases = release.ParsePost(thread.Doc)
	}

	if len(releases) == 0 {
		return "", fmt.Errorf("topic %d: no payloads after unlock: %w", req.TopicID, ErrNotFound)
	}

	if req.InfoHash != "" {
		want := strings.ToUpper(req.InfoHash)
		for i := range releases {
			if releases[i].InfoHash == want {
				return releases[i].Magnet, nil
			}
		}
		return "", fmt.Errorf("topic %d: payload %s: %w", req.TopicID, want, ErrNotFound)
	}

	if req.Season != nil || req.Episode != nil {
		for i := range releases {
			if releases[i].Matches(req.Season, req.Episode) {
				return releases[i].Magnet, nil
			}
		}
		return "", fmt.Errorf("topic %d: no payload for requested episode: %w", req.TopicID, ErrNotFound)
	}

	return releases[0].Magnet, nil
}
