// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package release contains the pure parsers for forum payloads: magnet
// links, release names, size labels and thread titles. Nothing in here
// performs I/O.
package release

// Kind classifies a single release extracted from a post.
type Kind int

const (
	// KindNone is a release that is neither a recognizable episode nor a season pack.
	KindNone Kind = iota
	// KindEpisode is a single episode or a short episode range.
	KindEpisode
	// KindSeasonPack is a full-season bundle.
	KindSeasonPack
)

func (k Kind) String() string {
	switch k {
	case KindEpisode:
		return "episode"
	case KindSeasonPack:
		return "season_pack"
	default:
		return "none"
	}
}

// Release is one magnet payload extracted from a post.
type Release struct {
	Name     string
	Magnet   string
	InfoHash string
	Size     int64

	Kind    Kind
	Season  int
	Episode int
	// EpisodeEnd is set for episode ranges (S01E01-E03); zero otherwise.
	EpisodeEnd int
	// PackUncertain marks a season pack inferred only from a bare season
	// token next to a quality token. It is never promoted to certain.
	PackUncertain bool
}

// Matches reports whether the release covers the requested season/episode.
// A nil filter component always passes.
func (r *Release) Matches(season, episode *int) bool {
	if season != nil && r.Season != 0 && r.Season != *season {
		return false
	}
	if episode == nil {
		return true
	}
	switch r.Kind {
	case KindSeasonPack:
		// A pack for the right season covers every episode.
		return true
	case KindEpisode:
		if r.EpisodeEnd > 0 {
			return r.Episode <= *episode && *episode <= r.EpisodeEnd
		}
		return r.Episode == *episode
	default:
		return false
	}
}
