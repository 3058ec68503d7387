// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package store persists the two pieces of state that survive restarts:
// the forum cookie snapshot and the set of acknowledged topic ids. Both
// live as small JSON files rewritten atomically on every save.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	cookiesFile      = "cookies.json"
	acknowledgedFile = "acknowledged.json"
)

// CookieSnapshot is the persisted identity of a forum session: the cookie
// values plus the user agent they were captured under. The pair must be
// restored together or not at all.
type CookieSnapshot struct {
	CapturedAt time.Time         `json:"capturedAt"`
	UserAgent  string            `json:"userAgent"`
	Cookies    map[string]string `json:"cookies"`
}

// Fresh reports whether the snapshot is still within the freshness window.
func (s *CookieSnapshot) Fresh(maxAge time.Duration) bool {
	if s == nil || s.CapturedAt.IsZero() {
		return false
	}
	return time.Since(s.CapturedAt) < maxAge
}

type acknowledgedDoc struct {
	TopicIDs []int `json:"topicIds"`
}

// Store owns the snapshot files under a data directory.
type Store struct {
	dir    string
	logger zerolog.Logger

	mu           sync.Mutex
	acknowledged map[int]struct{}
}

func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}

	s := &Store{
		dir:          dataDir,
		logger:       log.Logger.With().Str("module", "store").Logger(),
		acknowledged: make(map[int]struct{}),
	}

	if err := s.loadAcknowledged(); err != nil {
		return nil, err
	}

	return s, nil
}

// LoadCookies reads the persisted cookie snapshot. A missing file is not
// an error; it returns nil. A snapshot older than maxAge is discarded.
func (s *Store) LoadCookies(maxAge time.Duration) (*CookieSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, cookiesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cookie snapshot: %w", err)
	}

	var snap CookieSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Discarding unreadable cookie snapshot")
		return nil, nil
	}

	if !snap.Fresh(maxAge) {
		s.logger.Debug().
			Time("capturedAt", snap.CapturedAt).
			Dur("maxAge", maxAge).
			Msg("Cookie snapshot expired, discarding")
		return nil, nil
	}

	return &snap, nil
}

// SaveCookies rewrites the cookie snapshot.
func (s *Store) SaveCookies(snap *CookieSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}

	return s.writeJSON(cookiesFile, snap)
}

// ClearCookies removes the persisted cookie snapshot.
func (s *Store) ClearCookies() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, cookiesFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cookie snapshot: %w", err)
	}
	return nil
}

// IsAcknowledged reports whether this account already thanked the topic.
func (s *Store) IsAcknowledged(topicID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.acknowledged[topicID]
	return ok
}

// MarkAcknowledged records a confirmed unlock. The flag is persisted
// before the call returns; a persistence failure leaves the in-memory set
// unchanged so the unlock will be re-verified next time.
func (s *Store) MarkAcknowledged(topicID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.acknowledged[topicID]; ok {
		return nil
	}

	ids := make([]int, 0, len(s.acknowledged)+1)
	for id := range s.acknowledged {
		ids = append(ids, id)
	}
	ids = append(ids, topicID)
	sort.Ints(ids)

	if err := s.writeJSON(acknowledgedFile, acknowledgedDoc{TopicIDs: ids}); err != nil {
		return err
	}

	s.acknowledged[topicID] = struct{}{}
	return nil
}

// AcknowledgedCount returns the number of topics unlocked by this account.
func (s *Store) AcknowledgedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.acknowledged)
}

func (s *Store) loadAcknowledged() error {
	path := filepath.Join(s.dir, acknowledgedFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read acknowledged snapshot: %w", err)
	}

	var doc acknowledgedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Discarding unreadable acknowledged snapshot")
		return nil
	}

	for _, id := range doc.TopicIDs {
		s.acknowledged[id] = struct{}{}
	}

	return nil
}

// writeJSON rewrites a snapshot file atomically: write a temp file in the
// same directory, then rename over the target.
func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s into place: %w", name, err)
	}

	return nil
}
