// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateSize(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		forumID int
		want    int64
	}{
		{name: "movie_uhd", title: "Some Movie 2024 2160p UHD BluRay", forumID: 25, want: 15 * gib},
		{name: "movie_hd", title: "Some Movie 2024 1080p BluRay", forumID: 25, want: 8 * gib},
		{name: "movie_no_resolution", title: "Some Movie 2024", forumID: 26, want: 8 * gib},
		{name: "tv_uhd", title: "Show Name S03 2160p WEB-DL", forumID: 51, want: 4 * gib},
		{name: "tv_hd", title: "Show Name S03 1080p WEB-DL", forumID: 51, want: 2 * gib},
		{name: "anime", title: "Anime Show S01 720p", forumID: 33, want: 2 * gib},
		{name: "other", title: "Some Album FLAC", forumID: 45, want: gib},
		{name: "unknown_forum", title: "Anything", forumID: 999, want: gib},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateSize(tt.title, tt.forumID))
		})
	}
}
