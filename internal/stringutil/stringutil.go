// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Truncate shortens a string to maxLen runes with ellipsis.
// Uses rune count for proper UTF-8 handling.
// If maxLen < 4, returns the string unchanged (no room for ellipsis).
func Truncate(s string, maxLen int) string {
	if maxLen < 4 {
		return s
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

// Initials derives up to two uppercase initials from a display name, for
// avatar placeholders. Empty input yields "?".
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}

	first, _ := utf8.DecodeRuneInString(fields[0])
	if len(fields) == 1 {
		return strings.ToUpper(string(first))
	}
	last, _ := utf8.DecodeRuneInString(fields[len(fields)-1])
	return strings.ToUpper(string(first) + string(last))
}

// RelativeTime renders t relative to now ("just now", "5m ago", "3d ago").
// Anything older than a week falls back to the date.
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
