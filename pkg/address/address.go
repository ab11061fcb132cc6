// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package address validates and canonicalizes email addresses of mailing
// lists and subscribers.
package address

import (
	"regexp"
	"strings"
)

// emailPattern accepts a local part of word characters and -.+=/&#, an @,
// and a domain with at least one dot and a 2-15 character top level label.
var emailPattern = regexp.MustCompile(`(?is)^[\w\-#][\w\-.+=/&#]*@[\w\-][\w\-.]*\.[a-zA-Z0-9\-]{2,15}$`)

// DefaultDelimiters are the recipient delimiters used when none are configured.
var DefaultDelimiters = []string{"+"}

// IsEmail reports whether s is a syntactically valid email address.
// Surrounding whitespace is ignored.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return emailPattern.MatchString(s)
}

// Normalize validates raw and returns it trimmed and lower-cased.
func Normalize(raw string) (string, bool) {
	if !IsEmail(raw) {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(raw)), true
}

// StripExtension removes the "+extension" part of the local part.
// Delimiters are checked in order and only the first one present in the
// local part is applied. Addresses without a delimiter, or without an @,
// are returned unchanged.
func StripExtension(addr string, delimiters []string) string {
	if len(delimiters) == 0 {
		delimiters = DefaultDelimiters
	}

	user, domain, found := strings.Cut(addr, "@")
	if !found {
		return addr
	}

	for _, d := range delimiters {
		if d == "" {
			continue
		}
		if head, _, ok := strings.Cut(user, d); ok {
			return head + "@" + domain
		}
	}

	return addr
}

// Domain returns the part of addr after the first @, or "" when there is none.
func Domain(addr string) string {
	_, domain, found := strings.Cut(addr, "@")
	if !found {
		return ""
	}
	return domain
}

// SplitList parses a comma separated address list.
// Spaces are removed, tokens are lower-cased, invalid tokens are dropped
// silently and duplicates are removed keeping the first occurrence.
// The result is never nil.
func SplitList(raw string) []string {
	raw = strings.ReplaceAll(raw, " ", "")

	out := []string{}
	seen := make(map[string]struct{})
	for _, token := range strings.Split(raw, ",") {
		addr, ok := Normalize(token)
		if !ok {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// ParseDelimiters parses a comma separated delimiter configuration value.
// An empty value yields DefaultDelimiters.
func ParseDelimiters(raw string) []string {
	var out []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return DefaultDelimiters
	}
	return out
}
