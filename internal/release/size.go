// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package release

import (
	"regexp"
	"strconv"
	"strings"
)

// Labelled size fields in the order the forum uses them. The first match
// wins; a bare quantity is the fallback.
var (
	labelledSizeRe = regexp.MustCompile(`(?i)\b(?:file\s*size|dimensione|filesize|size|peso)\s*[:=]?\s*(\d+(?:[.,]\d+)?)\s*(B|KB|MB|GB|TB|KiB|MiB|GiB|TiB)\b`)
	bareSizeRe     = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(KB|MB|GB|TB|KiB|MiB|GiB|TiB)\b`)
	embeddedSizeRe = regexp.MustCompile(`(?i)[\[(](\d+(?:[.,]\d+)?)\s*(KB|MB|GB|TB|KiB|MiB|GiB|TiB)[\])]`)
)

// unit multipliers are binary regardless of spelling; the forum mixes
// GB/GiB freely while always meaning 1024-based quantities.
func unitMultiplier(unit string) int64 {
	switch strings.ToUpper(strings.TrimSuffix(strings.ToUpper(unit), "IB")) {
	case "B":
		return 1
	case "K", "KB":
		return 1 << 10
	case "M", "MB":
		return 1 << 20
	case "G", "GB":
		return 1 << 30
	case "T", "TB":
		return 1 << 40
	default:
		return 0
	}
}

func parseQuantity(value, unit string) (int64, bool) {
	mult := unitMultiplier(unit)
	if mult == 0 {
		return 0, false
	}
	// Italian decimal comma
	value = strings.ReplaceAll(value, ",", ".")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(f * float64(mult)), true
}

// parsePostSize scans post text for the size of the payload: labelled
// fields first, then the first bare quantity.
func parsePostSize(text string) int64 {
	if m := labelledSizeRe.FindStringSubmatch(text); m != nil {
		if size, ok := parseQuantity(m[1], m[2]); ok {
			return size
		}
	}
	if m := bareSizeRe.FindStringSubmatch(text); m != nil {
		if size, ok := parseQuantity(m[1], m[2]); ok {
			return size
		}
	}
	return 0
}

// ParseSize exposes the post-level size scan for callers outside the package.
func ParseSize(text string) (int64, bool) {
	size := parsePostSize(text)
	return size, size > 0
}

// ParseEmbeddedSize picks up a bracketed size inside a release name or a
// thread title, e.g. "Show S01 [1.4 GB]".
func ParseEmbeddedSize(s string) (int64, bool) {
	m := embeddedSizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	return parseQuantity(m[1], m[2])
}
