// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package forum owns all traffic towards the phpBB board: the
// authenticated session, the search page and topic fetching, including the
// one-time "thanks" unlock interaction.
package forum

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/easly1989/mircrewrr/internal/flaresolverr"
	"github.com/easly1989/mircrewrr/internal/store"
)

const maxBodyBytes int64 = 8 << 20 // 8 MiB cap on forum pages

// Config carries the forum-facing settings the client needs.
type Config struct {
	BaseURL  string
	Username string
	Password string

	SessionTTL   time.Duration
	CookieMaxAge time.Duration
	SettleDelay  time.Duration
}

// Client is the single authenticated identity towards the forum. The
// cookie jar and the user agent always change together; requests in
// flight keep whatever identity they started with.
type Client struct {
	baseURL  *url.URL
	username string
	password string

	sessionTTL   time.Duration
	cookieMaxAge time.Duration
	settleDelay  time.Duration
	pacingDelay  time.Duration

	store    *store.Store
	resolver *flaresolverr.Client
	logger   zerolog.Logger

	// sessionMu serializes Acquire so concurrent callers trigger at most
	// one login; mu protects the identity fields below.
	sessionMu sync.Mutex

	mu          sync.Mutex
	httpClient  *http.Client
	userAgent   string
	validatedAt time.Time
	lastLogin   time.Time
}

// ClientOption configures optional behaviour on the forum client.
type ClientOption func(*Client)

// WithPacingDelay overrides the deliberate pauses in the login sequence.
func WithPacingDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pacingDelay = d
	}
}

// WithSettleDelay overrides the pause between the thanks click and the
// confirming re-fetch.
func WithSettleDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.settleDelay = d
	}
}

func NewClient(cfg Config, st *store.Store, resolver *flaresolverr.Client, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse forum url: %w", err)
	}

	c := &Client{
		baseURL:      base,
		username:     cfg.Username,
		password:     cfg.Password,
		sessionTTL:   cfg.SessionTTL,
		cookieMaxAge: cfg.CookieMaxAge,
		settleDelay:  cfg.SettleDelay,
		pacingDelay:  750 * time.Millisecond,
		store:        st,
		resolver:     resolver,
		logger:       log.Logger.With().Str("module", "forum").Logger(),
		userAgent:    flaresolverr.DefaultUserAgent,
	}

	if c.sessionTTL <= 0 {
		c.sessionTTL = time.Hour
	}
	if c.cookieMaxAge <= 0 {
		c.cookieMaxAge = 12 * time.Hour
	}
	if c.settleDelay <= 0 {
		c.settleDelay = time.Second
	}

	for _, opt := range opts {
		opt(c)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	c.httpClient = &http.Client{
		Jar:     jar,
		Timeout: 60 * time.Second,
	}

	return c, nil
}

// absURL resolves a forum-relative href (as found in page markup) against
// the board root. Leading "./" segments from phpBB templates are handled.
func (c *Client) absURL(href string) string {
	href = strings.TrimPrefix(href, "./")
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return c.baseURL.ResolveReference(ref).String()
}

// get fetches a forum page with the current identity and parses it. The
// caller gets both the document and the raw body for marker checks.
func (c *Client) get(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	c.mu.Lock()
	client := c.httpClient
	ua := c.userAgent
	c.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", "it-IT,it;q=0.9,en;q=0.6")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &FetchError{StatusCode: resp.StatusCode, URL: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, "", fmt.Errorf("parse page: %w", err)
	}

	return doc, string(body), nil
}

// postForm submits a form with the current identity.
func (c *Client) postForm(ctx context.Context, postURL string, form url.Values, referer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	c.mu.Lock()
	client := c.httpClient
	ua := c.userAgent
	c.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &FetchError{StatusCode: resp.StatusCode, URL: postURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(body), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UserAgent returns the user agent of the current identity.
func (c *Client) UserAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userAgent
}
