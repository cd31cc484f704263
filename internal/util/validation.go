package util

import (
	"regexp"
)

var (
	// Display names registered for competitions.
	registeredUsernameRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	// Platform usernames used when targeting admin operations.
	platformUsernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// IsValidRegisteredUsername checks competition display names:
// 3-20 characters, letters, digits, dots, dashes, underscores.
func IsValidRegisteredUsername(s string) bool {
	if len(s) < 3 || len(s) > 20 {
		return false
	}
	return registeredUsernameRegex.MatchString(s)
}

// IsValidPlatformUsername checks chat platform handles:
// 3-32 characters, letters, digits, underscores.
func IsValidPlatformUsername(s string) bool {
	if len(s) < 3 || len(s) > 32 {
		return false
	}
	return platformUsernameRegex.MatchString(s)
}
