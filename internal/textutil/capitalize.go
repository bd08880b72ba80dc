package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Placeholder is rendered in place of empty answers.
const Placeholder = "Não informado"

var upper = cases.Upper(language.BrazilianPortuguese)

// CapitalizeFirst upper-cases the first rune of value and leaves the rest
// untouched, so "ano_nascimento" becomes "Ano_nascimento".
func CapitalizeFirst(value string) string {
	if value == "" {
		return value
	}
	r, size := utf8.DecodeRuneInString(value)
	if r == utf8.RuneError {
		return value
	}
	return upper.String(string(r)) + value[size:]
}

// OrDefault returns value, or fallback when value is blank.
func OrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// OrPlaceholder returns value, or Placeholder when value is blank.
func OrPlaceholder(value string) string {
	return OrDefault(value, Placeholder)
}

// JoinList joins items as a Portuguese enumeration: "a", "a e b", "a, b e c".
func JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " e " + items[len(items)-1]
	}
}
