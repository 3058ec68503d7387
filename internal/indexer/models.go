// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound reports that a specifically requested payload could not be
// resolved. It is never substituted with a different payload.
var ErrNotFound = errors.New("content not found")

// SearchRequest is a normalized Torznab query.
type SearchRequest struct {
	Query      string
	Season     *int
	Episode    *int
	Categories []int
	Limit      int
	Offset     int
}

// SearchResult is one feed item. Concrete results carry the real info hash
// of a parsed payload; synthetic results are per-episode placeholders whose
// payload is resolved lazily on download.
type SearchResult struct {
	GUID          string
	Title         string
	TopicID       int
	InfoHash      string
	Size          int64
	SizeEstimated bool
	Category      int
	Season        int
	Episode       int
	PublishDate   time.Time
}

// Synthetic reports whether the result is a placeholder without a parsed
// payload behind it.
func (r *SearchResult) Synthetic() bool {
	return r.InfoHash == ""
}

// concreteGUID identifies a parsed payload. The two schemes cannot collide:
// info hashes are hex, synthetic ids start with a literal 's'.
func concreteGUID(topicID int, infoHash string) string {
	return fmt.Sprintf("%d-%s", topicID, infoHash)
}

func syntheticGUID(topicID, season, episode int) string {
	return fmt.Sprintf("%d-s%02de%02d", topicID, season, episode)
}
