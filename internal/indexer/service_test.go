// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easly1989/mircrewrr/internal/flaresolverr"
	"github.com/easly1989/mircrewrr/internal/forum"
	"github.com/easly1989/mircrewrr/internal/store"
)

const (
	hashHex    = "A94A8FE5CCB19BA61C4C0873D391E987982FBBD3"
	hashBase32 = "VFFI7ZOMWGN2MHCMBBZ5HEPJQ6MC7O6T"
	hashOther  = "0123456789ABCDEF0123456789ABCDEF01234567"
)

// fakeBoard serves the minimum of phpBB needed here: an authenticated
// index, a search page and topic pages that reveal magnets after thanks.
type fakeBoard struct {
	mu     sync.Mutex
	rows   string
	topics map[int]topicState

	thanksGETs atomic.Int64
}

type topicState struct {
	locked   string
	unlocked string
	thanked  bool
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{topics: make(map[int]topicState)}
}

func (b *fakeBoard) setRows(rows ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = ""
	for _, r := range rows {
		b.rows += r
	}
}

func (b *fakeBoard) addTopic(id int, locked, unlocked string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[id] = topicState{locked: locked, unlocked: unlocked}
}

func (b *fakeBoard) markThanked(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ts := b.topics[id]
	ts.thanked = true
	b.topics[id] = ts
}

func (b *fakeBoard) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("phpbb3_sid"); err == nil && ck.Value == "session-ok" {
			w.Write([]byte(`<html><body><a href="./ucp.php?mode=logout">Logout</a></body></html>`))
			return
		}
		w.Write([]byte(`<html><body>Guest</body></html>`))
	})

	mux.HandleFunc("/search.php", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		rows := b.rows
		b.mu.Unlock()
		w.Write([]byte(`<html><body><ul class="topiclist topics">` + rows + `</ul></body></html>`))
	})

	mux.HandleFunc("/viewtopic.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id := atoiQuery(q.Get("t"))

		if q.Get("thanks") != "" {
			b.thanksGETs.Add(1)
			b.markThanked(id)
			w.Write([]byte(`<html><body>Thanks recorded.</body></html>`))
			return
		}

		b.mu.Lock()
		ts, ok := b.topics[id]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		if ts.thanked {
			w.Write([]byte(ts.unlocked))
			return
		}
		w.Write([]byte(ts.locked))
	})

	return mux
}

func atoiQuery(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

func searchRow(topicID, forumID int, title string) string {
	return fmt.Sprintf(`<li class="row">
		<a class="topictitle" href="./viewtopic.php?f=%d&t=%d&sid=abc">%s</a>
		<a href="./viewforum.php?f=%d">Forum</a>
		<time datetime="2025-03-10T18:30:00+01:00">10 mar</time>
	</li>`, forumID, topicID, title, forumID)
}

func lockedTopic(topicID int, title string, postID int) string {
	return fmt.Sprintf(`<html><body>
		<h2 class="topic-title"><a href="#">%s</a></h2>
		<div class="post">
			<div class="content">Say thanks to reveal the links.</div>
			<a href="./posting.php?mode=quote&p=%d">Quote</a>
			<a href="./viewtopic.php?t=%d&thanks=%d&p=%d">Thanks</a>
		</div>
	</body></html>`, title, postID, topicID, postID, postID)
}

func unlockedTopic(title string, magnets ...string) string {
	links := ""
	for i, m := range magnets {
		links += fmt.Sprintf(`<a href="%s">Release %d</a><br/>`, m, i+1)
	}
	return fmt.Sprintf(`<html><body>
		<h2 class="topic-title"><a href="#">%s</a></h2>
		<div class="post">
			<div class="content">%s</div>
			<a href="./posting.php?mode=quote&p=77">Quote</a>
		</div>
	</body></html>`, title, links)
}

func newTestService(t *testing.T, board *fakeBoard, opts ...ServiceOption) (*Service, *store.Store) {
	t.Helper()

	srv := httptest.NewServer(board.handler())
	t.Cleanup(srv.Close)

	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	// A live session snapshot keeps the tests out of the login flow
	require.NoError(t, st.SaveCookies(&store.CookieSnapshot{
		Cookies: map[string]string{"phpbb3_sid": "session-ok"},
	}))

	fc, err := forum.NewClient(forum.Config{
		BaseURL:      srv.URL,
		Username:     "tester",
		Password:     "hunter2",
		SessionTTL:   time.Hour,
		CookieMaxAge: 12 * time.Hour,
	}, st, flaresolverr.NewClient(""),
		forum.WithPacingDelay(0), forum.WithSettleDelay(time.Millisecond))
	require.NoError(t, err)

	return NewService(fc, st, opts...), st
}

func intPtr(n int) *int { return &n }

func TestSearchSyntheticExpansion(t *testing.T) {
	board := newFakeBoard()
	board.setRows(searchRow(101, 51, "Show Name - Stagione 3 [05/12] 1080p WEBDL"))

	svc, st := newTestService(t, board)

	results, err := svc.Search(context.Background(), SearchRequest{Query: "show name"})
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, res := range results {
		assert.Equal(t, fmt.Sprintf("101-s03e%02d", i+1), res.GUID)
		assert.Equal(t, 3, res.Season)
		assert.Equal(t, i+1, res.Episode)
		assert.Equal(t, CatTV, res.Category)
		assert.True(t, res.SizeEstimated)
		assert.True(t, res.Synthetic())
		assert.Contains(t, res.Title, fmt.Sprintf("S03E%02d", i+1))
	}

	// Passive search never touches the unlock state
	assert.Zero(t, st.AcknowledgedCount())
	assert.Zero(t, board.thanksGETs.Load())
}

func TestSearchSyntheticEpisodeFilter(t *testing.T) {
	board := newFakeBoard()
	board.setRows(searchRow(101, 51, "Show Name - Stagione 3 [05/12] 1080p"))

	svc, _ := newTestService(t, board)

	results, err := svc.Search(context.Background(), SearchRequest{
		Query:   "show name",
		Season:  intPtr(3),
		Episode: intPtr(4),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "101-s03e04", results[0].GUID)

	// An episode past the aired count yields nothing
	results, err = svc.Search(context.Background(), SearchRequest{
		Query:   "show name",
		Episode: intPtr(9),
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchMultiSeasonThreadLevel(t *testing.T) {
	board := newFakeBoard()
	board.setRows(searchRow(202, 51, "Show Name - Stagioni 1-5 [COMPLETA] 1080p"))

	svc, _ := newTestService(t, board)

	// Emitted whole regardless of the requested season
	for _, season := range []*int{nil, intPtr(3)} {
		results, err := svc.Search(context.Background(), SearchRequest{
			Query:  "show name",
			Season: season,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "202", results[0].GUID)
		assert.True(t, results[0].SizeEstimated)
	}
}

func TestSearchSeasonFilter(t *testing.T) {
	board := newFakeBoard()
	board.setRows(
		searchRow(301, 51, "Show Name - Stagione 2 [06/06] 1080p"),
		searchRow(302, 51, "Show Name - Stagione 3 [02/10] 1080p"),
		searchRow(303, 25, "Some Movie 2024 1080p"),
	)

	svc, _ := newTestService(t, board)

	results, err := svc.Search(context.Background(), SearchRequest{
		Query:  "show name",
		Season: intPtr(3),
	})
	require.NoError(t, err)

	topicSeen := map[int]bool{}
	for _, res := range results {
		topicSeen[res.TopicID] = true
	}
	assert.False(t, topicSeen[301], "season 2 thread must be filtered out")
	assert.True(t, topicSeen[302])
	// No season token on the movie: season-agnostic, passes
	assert.True(t, topicSeen[303])
}

func TestSearchThreadLevelUsesEmbeddedSize(t *testing.T) {
	board := newFakeBoard()
	board.setRows(searchRow(404, 25, "Some Movie 2024 1080p [4.7 GB]"))

	svc, _ := newTestService(t, board)

	results, err := svc.Search(context.Background(), SearchRequest{Query: "movie"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.False(t, results[0].SizeEstimated)
	assert.InDelta(t, 4.7*float64(gib), float64(results[0].Size), float64(gib)/10)
	assert.Equal(t, CatMovies, results[0].Category)
}

func TestSearchConcreteExpansion(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"
	magnetB := "magnet:?xt=urn:btih:" + hashBase32 + "&dn=Show.Name.S03E01.1080p.dupe"
	magnetC := "magnet:?xt=urn:btih:" + hashOther + "&dn=Show.Name.S03E02.1080p"

	board := newFakeBoard()
	board.setRows(searchRow(505, 51, "Show Name - Stagione 3 [05/12] 1080p"))
	board.addTopic(505, lockedTopic(505, "Show Name", 9001),
		unlockedTopic("Show Name", magnetA, magnetB, magnetC))
	board.markThanked(505)

	svc, st := newTestService(t, board)
	require.NoError(t, st.MarkAcknowledged(505))

	results, err := svc.Search(context.Background(), SearchRequest{Query: "show name"})
	require.NoError(t, err)

	// Two distinct payloads: the case-variant duplicate hash collapses
	require.Len(t, results, 2)
	assert.Equal(t, "505-"+hashHex, results[0].GUID)
	assert.Equal(t, hashHex, results[0].InfoHash)
	assert.Equal(t, 1, results[0].Episode)
	assert.Equal(t, "505-"+hashOther, results[1].GUID)
	assert.Equal(t, 2, results[1].Episode)

	// Acknowledged threads never produce synthetic placeholders
	for _, res := range results {
		assert.False(t, res.Synthetic())
	}
}

func TestSearchConcreteEpisodeFilter(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"
	magnetC := "magnet:?xt=urn:btih:" + hashOther + "&dn=Show.Name.S03E02.1080p"

	board := newFakeBoard()
	board.setRows(searchRow(505, 51, "Show Name - Stagione 3 [05/12] 1080p"))
	board.addTopic(505, lockedTopic(505, "Show Name", 9001),
		unlockedTopic("Show Name", magnetA, magnetC))
	board.markThanked(505)

	svc, st := newTestService(t, board)
	require.NoError(t, st.MarkAcknowledged(505))

	results, err := svc.Search(context.Background(), SearchRequest{
		Query:   "show name",
		Episode: intPtr(2),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hashOther, results[0].InfoHash)
}

func TestSearchDedupsTopicsAndCapsResults(t *testing.T) {
	board := newFakeBoard()
	board.setRows(
		searchRow(601, 25, "Some Movie 2024 1080p"),
		searchRow(601, 25, "Some Movie 2024 1080p"),
		searchRow(602, 25, "Other Movie 2024 2160p"),
	)

	svc, _ := newTestService(t, board, WithResultLimit(1))

	results, err := svc.Search(context.Background(), SearchRequest{Query: "movie"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 601, results[0].TopicID)
}

func TestSearchNeverMutatesUnlockState(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"

	board := newFakeBoard()
	board.setRows(
		searchRow(505, 51, "Show Name - Stagione 3 [05/12] 1080p"),
		searchRow(101, 51, "Other Show - Stagione 1 [03/08] 1080p"),
		searchRow(404, 25, "Some Movie 2024 1080p"),
	)
	board.addTopic(505, lockedTopic(505, "Show Name", 9001), unlockedTopic("Show Name", magnetA))
	board.markThanked(505)

	svc, st := newTestService(t, board)
	require.NoError(t, st.MarkAcknowledged(505))

	results, err := svc.Search(context.Background(), SearchRequest{Query: "show"})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// One concrete, one synthetic, one fallback row went through; only the
	// topic acknowledged before the search stays acknowledged.
	assert.Equal(t, 1, st.AcknowledgedCount())
	assert.False(t, st.IsAcknowledged(101))
	assert.False(t, st.IsAcknowledged(404))
	assert.Zero(t, board.thanksGETs.Load())
}

func TestResolveUnlocksOnceAndPersists(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"

	board := newFakeBoard()
	board.addTopic(707, lockedTopic(707, "Show Name", 9001), unlockedTopic("Show Name", magnetA))

	svc, st := newTestService(t, board)

	magnet, err := svc.Resolve(context.Background(), ResolveRequest{TopicID: 707})
	require.NoError(t, err)
	assert.Equal(t, magnetA, magnet)
	assert.EqualValues(t, 1, board.thanksGETs.Load())
	assert.True(t, st.IsAcknowledged(707))

	// Second resolve takes the acknowledged path: no further clicks
	magnet, err = svc.Resolve(context.Background(), ResolveRequest{TopicID: 707})
	require.NoError(t, err)
	assert.Equal(t, magnetA, magnet)
	assert.EqualValues(t, 1, board.thanksGETs.Load())
}

func TestResolveByInfoHash(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"
	magnetC := "magnet:?xt=urn:btih:" + hashOther + "&dn=Show.Name.S03E02.1080p"

	board := newFakeBoard()
	board.addTopic(808, lockedTopic(808, "Show Name", 9001), unlockedTopic("Show Name", magnetA, magnetC))

	svc, _ := newTestService(t, board)

	magnet, err := svc.Resolve(context.Background(), ResolveRequest{
		TopicID:  808,
		InfoHash: hashOther,
	})
	require.NoError(t, err)
	assert.Equal(t, magnetC, magnet)
}

func TestResolveMissingInfoHashIsNotFound(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"

	board := newFakeBoard()
	board.addTopic(909, lockedTopic(909, "Show Name", 9001), unlockedTopic("Show Name", magnetA))

	svc, _ := newTestService(t, board)

	_, err := svc.Resolve(context.Background(), ResolveRequest{
		TopicID:  909,
		InfoHash: "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveByEpisode(t *testing.T) {
	magnetA := "magnet:?xt=urn:btih:" + hashHex + "&dn=Show.Name.S03E01.1080p"
	magnetC := "magnet:?xt=urn:btih:" + hashOther + "&dn=Show.Name.S03E02.1080p"

	board := newFakeBoard()
	board.addTopic(111, lockedTopic(111, "Show Name", 9001), unlockedTopic("Show Name", magnetA, magnetC))

	svc, _ := newTestService(t, board)

	magnet, err := svc.Resolve(context.Background(), ResolveRequest{
		TopicID: 111,
		Season:  intPtr(3),
		Episode: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, magnetC, magnet)

	_, err = svc.Resolve(context.Background(), ResolveRequest{
		TopicID: 111,
		Season:  intPtr(3),
		Episode: intPtr(7),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveEmptyTopicIsNotFound(t *testing.T) {
	board := newFakeBoard()
	board.addTopic(222, lockedTopic(222, "Empty Topic", 9001), unlockedTopic("Empty Topic"))

	svc, _ := newTestService(t, board)

	_, err := svc.Resolve(context.Background(), ResolveRequest{TopicID: 222})
	assert.ErrorIs(t, err, ErrNotFound)
}
