// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import "regexp"

// TitleInfo is what a thread title alone reveals about a show.
type TitleInfo struct {
	// Season is nil when the title names no single season.
	Season *int
	// MultiSeason is set for span titles like "Stagioni 1-5" or "S1-S5".
	MultiSeason bool
	// EpisodesAired/EpisodesTotal come from a [cur/tot] counter.
	EpisodesAired int
	EpisodesTotal int
	Complete      bool
}

var (
	multiSeasonWordRe = regexp.MustCompile(`(?i)\bstagioni\s+(\d{1,2})\s*[-–]\s*(\d{1,2})\b`)
	multiSeasonSRe    = regexp.MustCompile(`(?i)\bS(\d{1,2})\s*-\s*S(\d{1,2})\b`)
	episodeCountRe    = regexp.MustCompile(`[\[(](\d{1,3})\s*/\s*(\d{1,3})[\])]`)
)

// ParseTitle reads the season structure out of a thread title. Patterns
// follow the forum's Italian naming habits: "Stagione 3", "Stagioni 1-5",
// "[05/12]", "[COMPLETA]".
func ParseTitle(title string) TitleInfo {
	var info TitleInfo

	if multiSeasonWordRe.MatchString(title) || multiSeasonSRe.MatchString(title) {
		info.MultiSeason = true
	} else if m := seasonWordRe.FindStringSubmatch(title); m != nil {
		s := atoi(m[1])
		info.Season = &s
	} else if m := bareSeasonRe.FindStringSubmatch(title); m != nil {
		s := atoi(m[1])
		info.Season = &s
	}

	if m := episodeCountRe.FindStringSubmatch(title); m != nil {
		aired, total := atoi(m[1]), atoi(m[2])
		// A [05/12] style counter, not a bracketed size or year
		if aired > 0 && total > 0 && aired <= total {
			info.EpisodesAired = aired
			info.EpisodesTotal = total
		}
	}

	info.Complete = completeRe.MatchString(title)

	return info
}
