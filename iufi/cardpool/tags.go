package cardpool

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxTagLength is the maximum number of runes kept in a tag.
const MaxTagLength = 10

// NormalizeTag strips everything except letters, digits and spaces, trims the result
// and caps it at MaxTagLength runes. Case is preserved for display.
func NormalizeTag(raw string) string {
	var b strings.Builder
	n := 0
	for _, r := range raw {
		if n == MaxTagLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
			n++
		}
	}
	return strings.TrimSpace(b.String())
}

// ValidateTag normalizes raw and rejects empty or purely numeric tags, which would be
// shadowed by card ids on lookup.
func ValidateTag(raw string) (string, error) {
	tag := NormalizeTag(raw)
	if tag == "" {
		return "", fmt.Errorf("%w: tag is empty", ErrInvalidTag)
	}
	if isNumeric(tag) {
		return "", fmt.Errorf("%w: tag %q is numeric", ErrInvalidTag, tag)
	}
	return tag, nil
}

func tagKey(tag string) string {
	return strings.ToLower(tag)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizeID strips leading zeros from a numeric card id. "0" stays "0".
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	trimmed := strings.TrimLeft(id, "0")
	if trimmed == "" && id != "" {
		return "0"
	}
	return trimmed
}
