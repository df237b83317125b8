package domain

import (
	"regexp"
	"strings"
)

var bearerPattern = regexp.MustCompile(`^Bearer\s+(.+)$`)

// BearerToken returns the token of an "Authorization: Bearer <token>" header
// value, or "" when the value carries none
func BearerToken(authorization string) string {
	if m := bearerPattern.FindStringSubmatch(authorization); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
