// Package common provides shared types and utilities for UI features.
package common

import (
	"html/template"
	"net/url"
	"strings"
)

// SafeURL passes through relative URLs and the http, https, mailto and tel
// schemes. Anything else becomes "#".
func SafeURL(raw string) template.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return template.URL(raw) //nolint:gosec // scheme checked above
	default:
		return "#"
	}
}

// DOMID builds an element id from arbitrary parts joined by '-'. Letters,
// digits and '_' are kept; any other byte is hex encoded behind a '.'.
func DOMID(parts ...string) string {
	const hex = "0123456789abcdef"
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('-')
		}
		for j := 0; j < len(p); j++ {
			c := p[j]
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
				b.WriteByte(c)
			default:
				b.WriteByte('.')
				b.WriteByte(hex[c>>4])
				b.WriteByte(hex[c&0x0f])
			}
		}
	}
	return b.String()
}

// PathEscape escapes one URL path segment.
func PathEscape(s string) string {
	return url.PathEscape(s)
}
