// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryForForum(t *testing.T) {
	tests := []struct {
		name    string
		forumID int
		want    int
	}{
		{name: "movies", forumID: 25, want: CatMovies},
		{name: "tv", forumID: 51, want: CatTV},
		{name: "anime", forumID: 33, want: CatTVAnime},
		{name: "audiobook", forumID: 41, want: CatAudiobook},
		{name: "ebook", forumID: 40, want: CatEBook},
		{name: "magazines", forumID: 43, want: CatMags},
		{name: "music", forumID: 45, want: CatAudio},
		{name: "unknown", forumID: 999, want: CatOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryForForum(tt.forumID))
		})
	}
}

func TestIsEpisodicForum(t *testing.T) {
	assert.True(t, IsEpisodicForum(51))
	assert.True(t, IsEpisodicForum(33))
	assert.False(t, IsEpisodicForum(25))
	assert.False(t, IsEpisodicForum(999))
}

func TestForumsForCategories(t *testing.T) {
	t.Run("empty_filter_means_no_restriction", func(t *testing.T) {
		assert.Nil(t, ForumsForCategories(nil))
	})

	t.Run("exact_category", func(t *testing.T) {
		assert.Equal(t, []int{40}, ForumsForCategories([]int{CatEBook}))
	})

	t.Run("parent_covers_subcategories", func(t *testing.T) {
		// 5000 should reach both plain TV and anime forums
		forums := ForumsForCategories([]int{CatTV})
		assert.Contains(t, forums, 51)
		assert.Contains(t, forums, 33)
	})

	t.Run("movies", func(t *testing.T) {
		assert.Equal(t, []int{25, 26, 34, 36}, ForumsForCategories([]int{CatMovies}))
	})

	t.Run("unknown_category_matches_nothing", func(t *testing.T) {
		assert.Empty(t, ForumsForCategories([]int{1234}))
	})
}
