package strutil

import (
	"strings"
	"unicode"
)

// CamelToDashed converts a CamelCaseIdentifier to a dash-separated-identifier.
// All-cap words are converted to lower case; NaN becomes nan and
// DivideByZero becomes divide-by-zero.
func CamelToDashed(camel string) string {
	var sb strings.Builder
	runes := []rune(camel)
	for i, r := range runes {
		if 0 < i && i < len(runes)-1 &&
			unicode.IsUpper(r) && unicode.IsLower(runes[i+1]) {
			sb.WriteRune('-')
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}
