// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import (
	"strings"
	"unicode"
)

// ParseYesNo interprets a short classifier response. The leading word decides
// when it is "yes" or "no"; otherwise a whole-word occurrence is used. ok is
// false when the response contains neither.
func ParseYesNo(text string) (yes bool, ok bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return false, false
	}

	switch words[0] {
	case "yes":
		return true, true
	case "no":
		return false, true
	}

	for _, w := range words {
		switch w {
		case "yes":
			return true, true
		case "no":
			return false, true
		}
	}
	return false, false
}

// CleanListMarker removes leading enumeration markers such as "1.", "2)", "-",
// "*" or bullets from a line.
func CleanListMarker(line string) string {
	return strings.TrimLeftFunc(strings.TrimSpace(line), func(r rune) bool {
		return unicode.IsDigit(r) || unicode.IsSpace(r) || strings.ContainsRune(".-)*•·–", r)
	})
}
