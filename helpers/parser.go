package helpers

import (
	"strings"
	"unicode"
)

// ParseKeyValueString splits `key=value key2="value with spaces"` style
// argument strings into a map. Tokens without a "=" are returned separately
// in their original order.
func ParseKeyValueString(text string) (data map[string]string, rest []string) {
	lastQuote := rune(0)
	f := func(c rune) bool {
		switch {
		case c == lastQuote:
			lastQuote = rune(0)
			return false
		case lastQuote != rune(0):
			return false
		case unicode.In(c, unicode.Quotation_Mark):
			lastQuote = c
			return false
		default:
			return unicode.IsSpace(c)
		}
	}

	// split by space but keep quoted sections together
	items := strings.FieldsFunc(text, f)

	data = make(map[string]string)
	for _, item := range items {
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			rest = append(rest, trimQuotes(item))
			continue
		}
		data[strings.ToLower(parts[0])] = trimQuotes(parts[1])
	}

	return data, rest
}

func trimQuotes(text string) string {
	return strings.Trim(text, `"'`)
}
