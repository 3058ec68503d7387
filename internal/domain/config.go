// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

type Config struct {
	Version string

	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"baseUrl"`
	APIKey  string `mapstructure:"apiKey"`

	LogLevel      string `mapstructure:"logLevel"`
	LogPath       string `mapstructure:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`

	DataDir string `mapstructure:"dataDir"`

	ForumURL      string `mapstructure:"forumUrl"`
	ForumUsername string `mapstructure:"forumUsername"`
	ForumPassword string `mapstructure:"forumPassword"`

	FlaresolverrURL string `mapstructure:"flaresolverrUrl"`

	// SessionTTL is how long a validated login is trusted before it is probed again.
	SessionTTL time.Duration `mapstructure:"sessionTtl"`
	// CookieMaxAge is the freshness window for a persisted cookie snapshot.
	CookieMaxAge time.Duration `mapstructure:"cookieMaxAge"`
	// UnlockSettleDelay is the pause between the thanks click and the confirming re-fetch.
	UnlockSettleDelay time.Duration `mapstructure:"unlockSettleDelay"`

	ResultLimit int `mapstructure:"resultLimit"`

	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	MetricsHost    string `mapstructure:"metricsHost"`
	MetricsPort    int    `mapstructure:"metricsPort"`

	PprofEnabled bool `mapstructure:"pprofEnabled"`
}
