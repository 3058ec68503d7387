// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easly1989/mircrewrr/internal/indexer"
)

type stubResolver struct {
	magnet  string
	err     error
	lastReq indexer.ResolveRequest
}

func (s *stubResolver) Resolve(_ context.Context, req indexer.ResolveRequest) (string, error) {
	s.lastReq = req
	return s.magnet, s.err
}

func downloadGET(t *testing.T, h *DownloadHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestDownloadRedirectsToMagnet(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:A94A8FE5CCB19BA61C4C0873D391E987982FBBD3&dn=Show"
	resolver := &stubResolver{magnet: magnet}
	h := NewDownloadHandler(resolver, "secret", nil)

	rec := downloadGET(t, h, "/download?apikey=secret&topic=505&infohash=A94A8FE5CCB19BA61C4C0873D391E987982FBBD3")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, magnet, rec.Header().Get("Location"))
	assert.Equal(t, 505, resolver.lastReq.TopicID)
	assert.Equal(t, "A94A8FE5CCB19BA61C4C0873D391E987982FBBD3", resolver.lastReq.InfoHash)
}

func TestDownloadPassesEpisodeAddress(t *testing.T) {
	resolver := &stubResolver{magnet: "magnet:?xt=urn:btih:A94A8FE5CCB19BA61C4C0873D391E987982FBBD3"}
	h := NewDownloadHandler(resolver, "secret", nil)

	rec := downloadGET(t, h, "/download?apikey=secret&topic=606&season=3&ep=2")

	require.Equal(t, http.StatusFound, rec.Code)
	require.NotNil(t, resolver.lastReq.Season)
	assert.Equal(t, 3, *resolver.lastReq.Season)
	require.NotNil(t, resolver.lastReq.Episode)
	assert.Equal(t, 2, *resolver.lastReq.Episode)
	assert.Empty(t, resolver.lastReq.InfoHash)
}

func TestDownloadNotFound(t *testing.T) {
	resolver := &stubResolver{err: fmt.Errorf("topic 505: %w", indexer.ErrNotFound)}
	h := NewDownloadHandler(resolver, "secret", nil)

	rec := downloadGET(t, h, "/download?apikey=secret&topic=505&infohash=FFFF")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `code="300"`)
}

func TestDownloadRejectsBadAPIKey(t *testing.T) {
	resolver := &stubResolver{magnet: "magnet:?xt=urn:btih:A94A8FE5CCB19BA61C4C0873D391E987982FBBD3"}
	h := NewDownloadHandler(resolver, "secret", nil)

	rec := downloadGET(t, h, "/download?apikey=wrong&topic=505")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `code="100"`)
}

func TestDownloadMissingTopic(t *testing.T) {
	h := NewDownloadHandler(&stubResolver{}, "secret", nil)

	rec := downloadGET(t, h, "/download?apikey=secret")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `code="200"`)
}

func TestDownloadResolutionFailure(t *testing.T) {
	resolver := &stubResolver{err: errors.New("forum unreachable")}
	h := NewDownloadHandler(resolver, "secret", nil)

	rec := downloadGET(t, h, "/download?apikey=secret&topic=505")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `code="900"`)
}
