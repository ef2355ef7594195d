// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validate

import (
	"regexp"
	"strings"
)

// Heuristics only. Storage uses parameterized queries and output is
// entity-encoded, so a miss here is not an injection.
var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union\s+(all\s+)?select|select\s+.+\s+from|insert\s+into|delete\s+from|drop\s+(table|database)|truncate\s+table|alter\s+table|update\s+\w+\s+set)\b`),
	regexp.MustCompile(`(?i)\b(exec|execute)\s*(\(|xp_|sp_)`),
	regexp.MustCompile(`(?i)'\s*(or|and)\s+('?\w+'?\s*=\s*'?\w+'?|\d+\s*=\s*\d+|true|false)`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(?i)\b(sleep|benchmark|pg_sleep|waitfor\s+delay)\s*\(`),
	regexp.MustCompile(`(--|#)\s*$`),
	regexp.MustCompile(`/\*.*\*/`),
	regexp.MustCompile(`;\s*(?i:select|insert|update|delete|drop|create|alter|shutdown)\b`),
}

var htmlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*/?\s*(script|iframe|object|embed|style|link|meta|svg|img|body|form|input|base)\b`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)(javascript|vbscript|livescript)\s*:`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
	regexp.MustCompile(`(?i)expression\s*\(`),
	regexp.MustCompile(`(?i)&#x?[0-9a-f]+;?`),
	regexp.MustCompile(`(?i)%3c\s*/?\s*script`),
}

// LooksLikeSQL flags SQL metacharacters and keyword sequences.
func LooksLikeSQL(s string) bool {
	return matchAny(sqlPatterns, s)
}

// LooksLikeHTML flags markup and script injection attempts.
func LooksLikeHTML(s string) bool {
	return matchAny(htmlPatterns, s)
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

var sanitizer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Sanitize entity-encodes & < > " ' before storage.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}
