// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package forum

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go"
)

// Thread is a fetched topic page.
type Thread struct {
	TopicID int
	Title   string
	Doc     *goquery.Document
}

// FirstPostID extracts the id of the opening post from its quote link.
func (t *Thread) FirstPostID() int {
	post := t.Doc.Find("div.post").First()
	scope := post
	if post.Length() == 0 {
		scope = t.Doc.Selection
	}

	if href, ok := scope.Find("a[href*='mode=quote']").First().Attr("href"); ok {
		return queryInt(href, "p")
	}
	return 0
}

// ThanksHref finds the thanks control for the given post: the anchor whose
// href names both the post to thank and the thanks action for it. Controls
// addressed to any other post are ignored. Absent control means this
// account already thanked the topic.
func (t *Thread) ThanksHref(postID int) (string, bool) {
	var found string
	t.Doc.Find("a[href*='thanks=']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		if queryInt(href, "thanks") == postID && queryInt(href, "p") == postID {
			found = href
			return false
		}
		return true
	})

	return found, found != ""
}

// FetchPassive retrieves a topic page without any mutating interaction.
// Transient failures are retried with backoff; the page content is left to
// the caller to interpret.
func (c *Client) FetchPassive(ctx context.Context, topicID int) (*Thread, error) {
	var thread *Thread

	err := retry.Do(
		func() error {
			t, err := c.fetchThread(ctx, topicID)
			if err != nil {
				return err
			}
			thread = t
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			// Client-side errors will not heal on retry
			var fe *FetchError
			if errors.As(err, &fe) {
				return fe.StatusCode >= 500 || fe.StatusCode == 429
			}
			return !errors.Is(err, context.Canceled)
		}),
	)
	if err != nil {
		return nil, err
	}

	return thread, nil
}

func (c *Client) fetchThread(ctx context.Context, topicID int) (*Thread, error) {
	topicURL := c.absURL("viewtopic.php?t=" + strconv.Itoa(topicID))

	doc, _, err := c.get(ctx, topicURL)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("h2.topic-title a").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h2").First().Text())
	}

	return &Thread{
		TopicID: topicID,
		Title:   title,
		Doc:     doc,
	}, nil
}

// Unlock performs the one-time thanks interaction on a topic and returns
// the re-fetched page. The second return value reports whether the topic
// was already unlocked for this account (no control present). The click is
// never retried: a lost response with an applied thanks would otherwise
// leave the account unable to re-trigger the payload reveal.
func (c *Client) Unlock(ctx context.Context, topicID int) (*Thread, bool, error) {
	thread, err := c.FetchPassive(ctx, topicID)
	if err != nil {
		return nil, false, err
	}

	postID := thread.FirstPostID()
	if postID == 0 {
		return nil, false, &UnlockError{TopicID: topicID, Reason: "first post id not found"}
	}

	href, found := thread.ThanksHref(postID)
	if !found {
		return thread, true, nil
	}

	clickURL := c.absURL(href)
	if _, _, err := c.get(ctx, clickURL); err != nil {
		return nil, false, &UnlockError{TopicID: topicID, Reason: fmt.Sprintf("thanks click: %v", err)}
	}

	if err := sleepCtx(ctx, c.settleDelay); err != nil {
		return nil, false, err
	}

	// Single confirming re-fetch, no retry loop
	confirmed, err := c.fetchThread(ctx, topicID)
	if err != nil {
		return nil, false, &UnlockError{TopicID: topicID, Reason: fmt.Sprintf("confirming fetch: %v", err)}
	}

	c.logger.Info().Int("topicID", topicID).Msg("Unlocked topic")
	return confirmed, false, nil
}
