package inventory

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Und)

// NormalizeKey turns a display name into the valuation key: surrounding and
// repeated whitespace collapsed, lower-cased.
func NormalizeKey(name string) string {
	return lower.String(collapse(name))
}

func collapse(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
