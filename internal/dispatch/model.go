package dispatch

import (
	"regexp"
	"strings"
)

var modelFlag = regexp.MustCompile(`(?i)--model\s+(\w+)`)

// ParseModel returns the lowercased short name following --model, or fallback
// when the text carries no override.
func ParseModel(text, fallback string) string {
	m := modelFlag.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	return strings.ToLower(m[1])
}

// StripModelFlag removes the --model override and collapses whitespace.
func StripModelFlag(text string) string {
	return strings.Join(strings.Fields(modelFlag.ReplaceAllString(text, " ")), " ")
}
