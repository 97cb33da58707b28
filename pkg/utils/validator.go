package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	openIDPattern = regexp.MustCompile(`^ou_[0-9a-zA-Z]{4,}$`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
)

// ValidateOpenID validates a Lark open_id such as "ou_7d8a6e6df7621556ce0d21922b676706"
func ValidateOpenID(openID string) error {
	if !openIDPattern.MatchString(openID) {
		return fmt.Errorf("invalid lark open_id: %q", openID)
	}
	return nil
}

// SanitizeString trims s and removes control characters other than tab and newline
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
