// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package flaresolverr talks to a FlareSolverr-compatible service that
// clears the forum's bot defense and hands back the resulting cookies and
// browser user agent. The bypass itself is entirely delegated.
package flaresolverr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/easly1989/mircrewrr/internal/buildinfo"
)

// ErrChallengeUnavailable signals that no usable challenge solution could
// be obtained. Session setup treats it as fatal for the attempt.
var ErrChallengeUnavailable = errors.New("challenge resolver unavailable")

// DefaultUserAgent is used when no resolver is configured and the forum
// is reachable directly.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0"

const solveTimeoutMs = 60000

// Cookie is one cookie from the resolver's browser session.
type Cookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Solution is what a cleared challenge yields: cookies and the user agent
// they are only valid together with.
type Solution struct {
	Cookies   []Cookie
	UserAgent string
	Status    int
}

type solveRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url"`
	MaxTimeout int    `json:"maxTimeout"`
}

type solveResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		URL       string   `json:"url"`
		Status    int      `json:"status"`
		Cookies   []Cookie `json:"cookies"`
		UserAgent string   `json:"userAgent"`
	} `json:"solution"`
}

// Client calls a FlareSolverr endpoint. A zero base URL makes it a no-op
// resolver that returns an empty solution with a default user agent.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 70 * time.Second,
		},
		logger: log.Logger.With().Str("module", "flaresolverr").Logger(),
	}
}

// Enabled reports whether a resolver endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// Solve asks the resolver to fetch targetURL through a real browser and
// returns the session material. Without a configured endpoint it returns
// an empty solution so direct-access deployments keep working.
func (c *Client) Solve(ctx context.Context, targetURL string) (*Solution, error) {
	if !c.Enabled() {
		return &Solution{UserAgent: DefaultUserAgent}, nil
	}

	payload, err := json.Marshal(solveRequest{
		Cmd:        "request.get",
		URL:        targetURL,
		MaxTimeout: solveTimeoutMs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal solve request: %w", err)
	}

	endpoint := c.baseURL + "/v1"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build solve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	c.logger.Debug().Str("url", targetURL).Msg("Requesting challenge solution")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrChallengeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: resolver returned status %d", ErrChallengeUnavailable, resp.StatusCode)
	}

	var solved solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&solved); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", ErrChallengeUnavailable, err)
	}

	if solved.Status != "ok" {
		return nil, fmt.Errorf("%w: resolver status %q: %s", ErrChallengeUnavailable, solved.Status, solved.Message)
	}

	c.logger.Debug().
		Int("cookies", len(solved.Solution.Cookies)).
		Int("status", solved.Solution.Status).
		Msg("Challenge solved")

	return &Solution{
		Cookies:   solved.Solution.Cookies,
		UserAgent: solved.Solution.UserAgent,
		Status:    solved.Solution.Status,
	}, nil
}
