package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans rich-text HTML content to prevent XSS while keeping
// user-generated markup.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeStrict strips all markup; used for plain-text fields like titles
// and author names.
func SanitizeStrict(input string) string {
	return strictPolicy.Sanitize(input)
}
