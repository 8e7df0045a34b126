package service

import (
	"strings"
	"unicode/utf8"
)

// sanitizeUTF8 drops invalid UTF-8 bytes. Postgres rejects them in TEXT
// columns, and ticket text arrives from arbitrary clients.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}
