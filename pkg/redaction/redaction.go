// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package redaction masks personal data before it reaches the logs.
package redaction

import "strings"

// RedactEmail keeps the first character of the local part and the full domain.
//
//	RedactEmail("john.doe@example.com") == "j***@example.com"
func RedactEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		if email == "" {
			return ""
		}
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// RedactEmails applies RedactEmail to every element.
func RedactEmails(emails []string) []string {
	out := make([]string, len(emails))
	for i, e := range emails {
		out[i] = RedactEmail(e)
	}
	return out
}
