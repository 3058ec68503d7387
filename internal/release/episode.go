// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import (
	"regexp"
	"strconv"
)

var (
	// S01E01, S01 E01, S01E01-E03, S01E01-03
	sxxExxRe = regexp.MustCompile(`(?i)\bS(\d{1,2})[\s.]?E(\d{1,3})(?:\s*-\s*E?(\d{1,3}))?\b`)
	// 1x01, 1x01-03
	nxNNRe = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})(?:\s*-\s*(\d{2,3}))?\b`)

	seasonWordRe = regexp.MustCompile(`(?i)\b(?:stagione|season)\s+(\d{1,2})\b`)
	bareSeasonRe = regexp.MustCompile(`(?i)\bS(\d{1,2})\b`)
	completeRe   = regexp.MustCompile(`(?i)\b(?:completa|complete)\b`)
	qualityRe    = regexp.MustCompile(`(?i)\b(?:720p|1080p|2160p|4k|uhd|bdrip|brrip|webrip|web-?dl|hdtv|dvdrip|bluray|x264|x265|h264|h265|hevc)\b`)
)

// classify fills Kind, Season, Episode and EpisodeEnd from the release
// name. Precedence: single episode, then season pack, then none. A bare
// season token paired only with a quality token makes an uncertain pack.
func classify(r *Release) {
	if m := sxxExxRe.FindStringSubmatch(r.Name); m != nil {
		r.Kind = KindEpisode
		r.Season = atoi(m[1])
		r.Episode = atoi(m[2])
		if m[3] != "" {
			if end := atoi(m[3]); end > r.Episode {
				r.EpisodeEnd = end
			}
		}
		return
	}

	if m := nxNNRe.FindStringSubmatch(r.Name); m != nil {
		r.Kind = KindEpisode
		r.Season = atoi(m[1])
		r.Episode = atoi(m[2])
		if m[3] != "" {
			if end := atoi(m[3]); end > r.Episode {
				r.EpisodeEnd = end
			}
		}
		return
	}

	season := 0
	if m := seasonWordRe.FindStringSubmatch(r.Name); m != nil {
		season = atoi(m[1])
	} else if m := bareSeasonRe.FindStringSubmatch(r.Name); m != nil {
		season = atoi(m[1])
	}

	if season == 0 {
		return
	}

	if completeRe.MatchString(r.Name) {
		r.Kind = KindSeasonPack
		r.Season = season
		return
	}

	if qualityRe.MatchString(r.Name) {
		r.Kind = KindSeasonPack
		r.Season = season
		r.PackUncertain = true
		return
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
