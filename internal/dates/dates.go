// Package dates converts free-form email Date headers into a canonical
// display string plus a sort key, tolerating malformed input.
package dates

import (
	"net/mail"
	"strings"
	"time"
)

// DisplayFormat is the canonical DD/MM/YYYY HH:MM:SS layout used in the
// overview table.
const DisplayFormat = "02/01/2006 15:04:05"

// Normalize parses a raw Date header per the RFC 5322 grammar (fixed and
// named timezone offsets included). On success it returns the local-time
// display string and the parsed instant with ok=true. On any failure the
// raw text comes back unchanged with ok=false. It never returns an error.
func Normalize(raw string) (display string, sortKey time.Time, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw, time.Time{}, false
	}

	parsed, err := mail.ParseDate(trimmed)
	if err != nil {
		return raw, time.Time{}, false
	}

	local := parsed.Local()
	return local.Format(DisplayFormat), local, true
}
