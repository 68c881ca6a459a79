package utils

import (
	"regexp"
	"strings"
)

// NormalizeCode canonicalizes a discount code before it is sent to the
// remote endpoint. e.g. " summer-10 " -> "SUMMER-10"
func NormalizeCode(input string) string {
	s := strings.ToUpper(strings.TrimSpace(input))

	// Keep A-Z, 0-9 and hyphens only
	reg := regexp.MustCompile("[^A-Z0-9-]+")
	s = reg.ReplaceAllString(s, "")

	// Collapse multiple hyphens
	reg2 := regexp.MustCompile("-+")
	s = reg2.ReplaceAllString(s, "-")

	// Trim hyphens
	s = strings.Trim(s, "-")

	return s
}
