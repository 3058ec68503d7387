// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import "github.com/moistari/rls"

const gib = int64(1) << 30

// EstimateSize guesses a payload size from the release title and the
// category tier. Used only where no parsed size exists; callers flag the
// result as estimated.
func EstimateSize(title string, forumID int) int64 {
	rel := rls.ParseString(title)
	uhd := rel.Resolution == "2160p" || rel.Resolution == "4320p"

	switch {
	case CategoryForForum(forumID) == CatMovies:
		if uhd {
			return 15 * gib
		}
		return 8 * gib
	case IsEpisodicForum(forumID):
		if uhd {
			return 4 * gib
		}
		return 2 * gib
	default:
		return gib
	}
}
