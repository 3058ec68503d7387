// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torznab

import "encoding/xml"

// Caps is the Torznab capabilities document served for t=caps.
type Caps struct {
	XMLName    xml.Name       `xml:"caps"`
	Server     CapsServer     `xml:"server"`
	Limits     CapsLimits     `xml:"limits"`
	Searching  CapsSearching  `xml:"searching"`
	Categories CapsCategories `xml:"categories"`
}

type CapsServer struct {
	Title string `xml:"title,attr"`
}

type CapsLimits struct {
	Default int `xml:"default,attr"`
	Max     int `xml:"max,attr"`
}

type CapsSearching struct {
	Search      CapsSearch `xml:"search"`
	TVSearch    CapsSearch `xml:"tv-search"`
	MovieSearch CapsSearch `xml:"movie-search"`
}

type CapsSearch struct {
	Available       string `xml:"available,attr"`
	SupportedParams string `xml:"supportedParams,attr"`
}

type CapsCategories struct {
	Categories []CapsCategory `xml:"category"`
}

type CapsCategory struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// DefaultCaps builds the capabilities document advertised by this indexer.
func DefaultCaps(limitDefault, limitMax int) *Caps {
	return &Caps{
		Server: CapsServer{Title: "MIRCrew"},
		Limits: CapsLimits{Default: limitDefault, Max: limitMax},
		Searching: CapsSearching{
			Search:      CapsSearch{Available: "yes", SupportedParams: "q"},
			TVSearch:    CapsSearch{Available: "yes", SupportedParams: "q,season,ep"},
			MovieSearch: CapsSearch{Available: "yes", SupportedParams: "q"},
		},
		Categories: CapsCategories{
			Categories: []CapsCategory{
				{ID: 2000, Name: "Movies"},
				{ID: 3000, Name: "Audio"},
				{ID: 3030, Name: "Audio/Audiobook"},
				{ID: 5000, Name: "TV"},
				{ID: 5070, Name: "TV/Anime"},
				{ID: 7000, Name: "Books"},
				{ID: 7010, Name: "Books/Mags"},
				{ID: 7020, Name: "Books/EBook"},
				{ID: 7030, Name: "Books/Comics"},
			},
		},
	}
}
