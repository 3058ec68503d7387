// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package forum

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/easly1989/mircrewrr/internal/store"
)

// loggedInMarker appears on every page rendered for an authenticated
// account and nowhere else.
const loggedInMarker = "ucp.php?mode=logout"

// Acquire makes sure the client holds a valid session, logging in at most
// once even under concurrent callers. Validation results are trusted for
// SessionTTL before the session is probed again.
func (c *Client) Acquire(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	c.mu.Lock()
	validatedAt := c.validatedAt
	c.mu.Unlock()

	if !validatedAt.IsZero() && time.Since(validatedAt) < c.sessionTTL {
		return nil
	}

	// A previously validated identity may still be live; probe it before
	// burning a login.
	if !validatedAt.IsZero() {
		if ok, err := c.probe(ctx); err == nil && ok {
			c.markValidated()
			return nil
		}
	}

	if restored := c.tryRestore(ctx); restored {
		return nil
	}

	return c.login(ctx)
}

// Invalidate drops the current session so the next Acquire revalidates.
func (c *Client) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validatedAt = time.Time{}
}

// Valid reports whether the session was validated within SessionTTL.
func (c *Client) Valid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.validatedAt.IsZero() && time.Since(c.validatedAt) < c.sessionTTL
}

// LastLogin returns the time of the last full login, zero if none happened
// in this process.
func (c *Client) LastLogin() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastLogin
}

func (c *Client) markValidated() {
	c.mu.Lock()
	c.validatedAt = time.Now()
	c.mu.Unlock()
}

// probe does a cheap fetch of the board index and checks for the
// logged-in marker.
func (c *Client) probe(ctx context.Context) (bool, error) {
	_, body, err := c.get(ctx, c.absURL("index.php"))
	if err != nil {
		return false, err
	}
	return containsMarker(body), nil
}

// tryRestore installs a persisted cookie snapshot and probes it. Both the
// cookies and the user agent come from the snapshot; they are only valid
// together.
func (c *Client) tryRestore(ctx context.Context) bool {
	snap, err := c.store.LoadCookies(c.cookieMaxAge)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load cookie snapshot")
		return false
	}
	if snap == nil || len(snap.Cookies) == 0 {
		return false
	}

	cookies := make([]*http.Cookie, 0, len(snap.Cookies))
	for name, value := range snap.Cookies {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}

	ua := snap.UserAgent
	if ua == "" {
		ua = c.UserAgent()
	}
	if err := c.swapIdentity(cookies, ua); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to install cookie snapshot")
		return false
	}

	ok, err := c.probe(ctx)
	if err != nil || !ok {
		c.logger.Debug().Err(err).Msg("Persisted session no longer valid")
		// A conclusive rejection means the snapshot is dead; a transport
		// error leaves it for the next attempt.
		if err == nil {
			if cerr := c.store.ClearCookies(); cerr != nil {
				c.logger.Warn().Err(cerr).Msg("Failed to drop stale cookie snapshot")
			}
		}
		return false
	}

	c.logger.Info().Msg("Restored forum session from snapshot")
	c.markValidated()
	return true
}

// swapIdentity replaces the cookie jar and user agent in one step.
func (c *Client) swapIdentity(cookies []*http.Cookie, userAgent string) error {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	if len(cookies) > 0 {
		jar.SetCookies(c.baseURL, cookies)
	}

	c.mu.Lock()
	c.httpClient = &http.Client{
		Jar:     jar,
		Timeout: c.httpClient.Timeout,
	}
	if userAgent != "" {
		c.userAgent = userAgent
	}
	c.mu.Unlock()

	return nil
}

// login runs the full phpBB login sequence: challenge resolution, login
// form scrape, credential POST, marker check, snapshot persist. The short
// sleeps mirror human pacing and keep the board's rate limiting quiet.
func (c *Client) login(ctx context.Context) error {
	solution, err := c.resolver.Solve(ctx, c.baseURL.String())
	if err != nil {
		return fmt.Errorf("resolve challenge: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(solution.Cookies))
	for _, ck := range solution.Cookies {
		cookies = append(cookies, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	if err := c.swapIdentity(cookies, solution.UserAgent); err != nil {
		return err
	}

	// Visit the homepage first, like a browser would
	if _, _, err := c.get(ctx, c.absURL("index.php")); err != nil {
		return fmt.Errorf("fetch board index: %w", err)
	}
	if err := sleepCtx(ctx, c.pacingDelay); err != nil {
		return err
	}

	loginURL := c.absURL("ucp.php?mode=login")
	doc, _, err := c.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}

	form := doc.Find("form#login").First()
	if form.Length() == 0 {
		return &AuthError{Reason: "login form not found"}
	}

	fields := url.Values{}
	form.Find("input[type='hidden']").Each(func(_ int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		value, _ := input.Attr("value")
		if name != "" {
			fields.Set(name, value)
		}
	})

	sid := fields.Get("sid")
	if sid == "" {
		return &AuthError{Reason: "login form carries no session id"}
	}
	if fields.Get("redirect") == "" {
		fields.Set("redirect", "index.php")
	}

	fields.Set("username", c.username)
	fields.Set("password", c.password)
	fields.Set("autologin", "on")
	fields.Set("login", "Login")

	if err := sleepCtx(ctx, c.pacingDelay); err != nil {
		return err
	}

	postURL := c.absURL("ucp.php?mode=login&sid=" + url.QueryEscape(sid))
	body, err := c.postForm(ctx, postURL, fields, loginURL)
	if err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	if !containsMarker(body) {
		// Any persisted cookies belong to an account that cannot log in
		if cerr := c.store.ClearCookies(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("Failed to drop cookie snapshot")
		}
		return &AuthError{Reason: "credentials rejected"}
	}

	c.persistSnapshot()

	c.mu.Lock()
	c.validatedAt = time.Now()
	c.lastLogin = c.validatedAt
	c.mu.Unlock()

	c.logger.Info().Str("user", c.username).Msg("Logged in to forum")
	return nil
}

func (c *Client) persistSnapshot() {
	c.mu.Lock()
	jar := c.httpClient.Jar
	ua := c.userAgent
	c.mu.Unlock()

	cookies := jar.Cookies(c.baseURL)
	snap := &store.CookieSnapshot{
		CapturedAt: time.Now(),
		UserAgent:  ua,
		Cookies:    make(map[string]string, len(cookies)),
	}
	for _, ck := range cookies {
		snap.Cookies[ck.Name] = ck.Value
	}

	if err := c.store.SaveCookies(snap); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist cookie snapshot")
	}
}

func containsMarker(body string) bool {
	return strings.Contains(body, loggedInMarker)
}
