// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSnapshotRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	snap := &CookieSnapshot{
		UserAgent: "Mozilla/5.0 test",
		Cookies: map[string]string{
			"phpbb3_sid": "abc123",
			"phpbb3_u":   "42",
		},
	}
	require.NoError(t, s.SaveCookies(snap))

	loaded, err := s.LoadCookies(12 * time.Hour)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, snap.UserAgent, loaded.UserAgent)
	assert.Equal(t, snap.Cookies, loaded.Cookies)
	assert.WithinDuration(t, time.Now(), loaded.CapturedAt, time.Minute)
}

func TestLoadCookiesDiscardsStaleSnapshot(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	snap := &CookieSnapshot{
		CapturedAt: time.Now().Add(-13 * time.Hour),
		UserAgent:  "ua",
		Cookies:    map[string]string{"phpbb3_sid": "old"},
	}
	require.NoError(t, s.SaveCookies(snap))

	loaded, err := s.LoadCookies(12 * time.Hour)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCookiesMissingFile(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	loaded, err := s.LoadCookies(12 * time.Hour)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadCookiesCorruptFileIsDiscarded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cookies.json"), []byte("{not json"), 0o644))

	s, err := New(dir)
	require.NoError(t, err)

	loaded, err := s.LoadCookies(12 * time.Hour)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestClearCookies(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SaveCookies(&CookieSnapshot{Cookies: map[string]string{"a": "b"}}))
	require.NoError(t, s.ClearCookies())
	// Clearing twice is fine
	require.NoError(t, s.ClearCookies())

	loaded, err := s.LoadCookies(12 * time.Hour)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestAcknowledgedPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := New(dir)
	require.NoError(t, err)

	assert.False(t, s.IsAcknowledged(12345))
	require.NoError(t, s.MarkAcknowledged(12345))
	require.NoError(t, s.MarkAcknowledged(67890))
	// Marking twice is a no-op
	require.NoError(t, s.MarkAcknowledged(12345))

	assert.True(t, s.IsAcknowledged(12345))
	assert.Equal(t, 2, s.AcknowledgedCount())

	reopened, err := New(dir)
	require.NoError(t, err)

	assert.True(t, reopened.IsAcknowledged(12345))
	assert.True(t, reopened.IsAcknowledged(67890))
	assert.False(t, reopened.IsAcknowledged(11111))
	assert.Equal(t, 2, reopened.AcknowledgedCount())
}

func TestAcknowledgedCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acknowledged.json"), []byte("???"), 0o644))

	s, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, s.AcknowledgedCount())
}
