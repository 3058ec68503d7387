// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package indexer turns forum topics into Torznab search results: category
// taxonomy, per-thread expansion into episodes, and payload resolution for
// the download path.
package indexer

import "sort"

// Torznab category ids served by this indexer.
const (
	CatMovies    = 2000
	CatAudio     = 3000
	CatAudiobook = 3030
	CatTV        = 5000
	CatTVAnime   = 5070
	CatBooks     = 7000
	CatMags      = 7010
	CatEBook     = 7020
	CatComics    = 7030
	CatOther     = 8000
)

// forumCategories maps board forum ids to Torznab categories.
var forumCategories = map[int]int{
	25: CatMovies,
	26: CatMovies,
	51: CatTV,
	52: CatTV,
	29: CatTV,
	30: CatTV,
	31: CatTV,
	33: CatTVAnime,
	35: CatTVAnime,
	37: CatTVAnime,
	34: CatMovies,
	36: CatMovies,
	39: CatBooks,
	40: CatEBook,
	41: CatAudiobook,
	42: CatComics,
	43: CatMags,
	45: CatAudio,
	46: CatAudio,
	47: CatAudio,
}

// episodicForums hold serialized content where a topic usually covers a
// season or a run of episodes rather than a single payload.
var episodicForums = map[int]struct{}{
	51: {}, 52: {}, 29: {}, 30: {}, 31: {},
	33: {}, 35: {}, 37: {},
}

// CategoryForForum maps a forum id to its Torznab category, CatOther for
// forums outside the known taxonomy.
func CategoryForForum(forumID int) int {
	if cat, ok := forumCategories[forumID]; ok {
		return cat
	}
	return CatOther
}

// IsEpisodicForum reports whether topics in the forum carry serialized
// content.
func IsEpisodicForum(forumID int) bool {
	_, ok := episodicForums[forumID]
	return ok
}

// ForumsForCategories resolves a Torznab category filter to the forum ids
// to search. An empty filter means no restriction and returns nil. Parent
// categories match their subcategories (5000 covers 5070).
func ForumsForCategories(cats []int) []int {
	if len(cats) == 0 {
		return nil
	}

	wanted := make(map[int]struct{}, len(cats))
	for _, c := range cats {
		wanted[c] = struct{}{}
	}

	matches := func(cat int) bool {
		if _, ok := wanted[cat]; ok {
			return true
		}
		// Parent category requested, e.g. 5000 covering 5070
		if _, ok := wanted[cat - cat%1000]; ok {
			return true
		}
		return false
	}

	var forums []int
	for forumID, cat := range forumCategories {
		if matches(cat) {
			forums = append(forums, forumID)
		}
	}
	sort.Ints(forums)
	return forums
}
