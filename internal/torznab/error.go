// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package torznab

import "encoding/xml"

// Newznab protocol error codes used by this indexer.
const (
	ErrCodeIncorrectCredentials = 100
	ErrCodeMissingParameter     = 200
	ErrCodeNoSuchFunction       = 203
	ErrCodeNoSuchItem           = 300
	ErrCodeRequestLimit         = 500
	ErrCodeUnknownError         = 900
)

// ProtocolError is the <error> document returned for protocol-level failures.
type ProtocolError struct {
	XMLName     xml.Name `xml:"error"`
	Code        int      `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

func NewProtocolError(code int, description string) *ProtocolError {
	return &ProtocolError{Code: code, Description: description}
}
