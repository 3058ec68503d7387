// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package torznab holds the XML document types for the Torznab/Newznab
// protocol surface: the caps document, the search result RSS feed and the
// protocol error element.
package torznab

import (
	"encoding/xml"
	"time"
)

const (
	// NSTorznab is the xmlns for torznab:attr extension attributes.
	NSTorznab = "http://torznab.com/schemas/2015/feed"
	// NSAtom is the xmlns for the atom:link channel element.
	NSAtom = "http://www.w3.org/2005/Atom"
)

type Rss struct {
	XMLName      xml.Name `xml:"rss"`
	Version      string   `xml:"version,attr"`
	XMLNSTorznab string   `xml:"xmlns:torznab,attr"`
	XMLNSAtom    string   `xml:"xmlns:atom,attr"`
	Channel      Channel  `xml:"channel"`
}

type Channel struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	Language    string `xml:"language,omitempty"`
	Items       []Item `xml:"item"`
}

type Item struct {
	Title     string     `xml:"title"`
	GUID      GUID       `xml:"guid"`
	Link      string     `xml:"link"`
	Comments  string     `xml:"comments,omitempty"`
	PubDate   string     `xml:"pubDate"`
	Size      int64      `xml:"size"`
	Category  []string   `xml:"category"`
	Enclosure *Enclosure `xml:"enclosure,omitempty"`
	Attrs     []Attr     `xml:"torznab:attr"`
}

type GUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type Attr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// NewRss returns an empty feed with the namespaces wired.
func NewRss(title, description string) *Rss {
	return &Rss{
		Version:      "2.0",
		XMLNSTorznab: NSTorznab,
		XMLNSAtom:    NSAtom,
		Channel: Channel{
			Title:       title,
			Description: description,
			Language:    "it-IT",
		},
	}
}

// FormatPubDate renders a feed timestamp in the RFC1123Z form readers expect.
func FormatPubDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format(time.RFC1123Z)
}
