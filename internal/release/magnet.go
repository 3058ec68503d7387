// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anacrolix/torrent/metainfo"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// InfoHashFromMagnet parses a magnet URI and returns the v1 infohash in
// uppercase hex. Both 40-char hex and 32-char base32 forms are accepted;
// anything else reports false.
func InfoHashFromMagnet(uri string) (string, bool) {
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return "", false
	}
	return strings.ToUpper(m.InfoHash.HexString()), true
}

// DisplayNameFromMagnet returns the dn parameter of a magnet URI, or "".
func DisplayNameFromMagnet(uri string) string {
	m, err := metainfo.ParseMagnetUri(uri)
	if err != nil {
		return ""
	}
	return m.DisplayName
}

// ParsePost extracts the releases hidden in the first post of an unlocked
// thread. Magnet hrefs are cleaned of stray whitespace the forum editor
// likes to inject, releases are classified, and duplicates (by infohash)
// are dropped keeping the first occurrence.
func ParsePost(doc *goquery.Document) []Release {
	content := doc.Find("div.post div.content").First()
	if content.Length() == 0 {
		content = doc.Find("div.content").First()
	}
	if content.Length() == 0 {
		return nil
	}

	postSize := parsePostSize(content.Text())

	var releases []Release
	seen := make(map[string]struct{})

	content.Find("a[href^='magnet:']").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		href = whitespaceRe.ReplaceAllString(href, "")

		infoHash, ok := InfoHashFromMagnet(href)
		if !ok {
			return
		}
		if _, dup := seen[infoHash]; dup {
			return
		}
		seen[infoHash] = struct{}{}

		name := DisplayNameFromMagnet(href)
		if name == "" {
			name = strings.TrimSpace(a.Text())
		}

		rel := Release{
			Name:     name,
			Magnet:   href,
			InfoHash: infoHash,
		}

		if size, ok := ParseEmbeddedSize(name); ok {
			rel.Size = size
		} else {
			rel.Size = postSize
		}

		classify(&rel)

		releases = append(releases, rel)
	})

	return releases
}
