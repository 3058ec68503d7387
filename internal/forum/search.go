// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package forum

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Row is the intermediate representation of one search result row: just
// what the boundary can see before any thread is opened.
type Row struct {
	TopicID int
	Title   string
	ForumID int
	Posted  time.Time
}

// Search runs a title-only topic search on the board and parses the
// result rows. An empty query falls back to the current year so feed-style
// polls still return the latest releases.
func (c *Client) Search(ctx context.Context, query string, forumIDs []int, limit int) ([]Row, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = strconv.Itoa(time.Now().Year())
	}

	// phpBB needs every word marked mandatory for AND matching
	words := strings.Fields(query)
	for i, w := range words {
		if !strings.HasPrefix(w, "+") {
			words[i] = "+" + w
		}
	}

	params := url.Values{}
	params.Set("keywords", strings.Join(words, " "))
	params.Set("terms", "all")
	params.Set("sf", "titleonly")
	params.Set("sr", "topics")
	params.Set("sk", "t")
	params.Set("sd", "d")
	params.Set("ch", strconv.Itoa(limit))
	for _, id := range forumIDs {
		params.Add("fid[]", strconv.Itoa(id))
	}

	searchURL := c.absURL("search.php") + "?" + params.Encode()

	doc, _, err := c.get(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}

	var rows []Row
	doc.Find("li.row").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.topictitle").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")

		topicID := topicIDFromHref(href)
		if topicID == 0 {
			return
		}

		r := Row{
			TopicID: topicID,
			Title:   strings.TrimSpace(link.Text()),
			Posted:  time.Now(),
		}

		if forumHref, ok := row.Find("a[href*='viewforum.php']").First().Attr("href"); ok {
			r.ForumID = queryInt(forumHref, "f")
		}

		if dt, ok := row.Find("time").First().Attr("datetime"); ok {
			if ts, err := time.Parse(time.RFC3339, dt); err == nil {
				r.Posted = ts
			}
		}

		rows = append(rows, r)
	})

	c.logger.Debug().
		Str("query", query).
		Ints("forums", forumIDs).
		Int("rows", len(rows)).
		Msg("Forum search complete")

	return rows, nil
}

// topicIDFromHref pulls the t= parameter out of a topic link, ignoring
// any per-request sid the board appended.
func topicIDFromHref(href string) int {
	return queryInt(href, "t")
}

func queryInt(href, key string) int {
	href = strings.TrimPrefix(href, "./")
	u, err := url.Parse(href)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(u.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
