package match

import (
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^a-z0-9_]`)

// CleanText lowercases input and replaces every non-word character with a space.
func CleanText(input string) string {
	return nonWord.ReplaceAllString(strings.ToLower(input), " ")
}

// Tokens returns the whitespace separated tokens of the cleaned input.
func Tokens(input string) []string {
	return strings.Fields(CleanText(input))
}

// TrainingText combines a law section with its offense description.
func TrainingText(section, offense string) string {
	return CleanText(strings.TrimSpace(section) + " - " + strings.TrimSpace(offense))
}

// SectionKey normalizes a section label for equality checks.
func SectionKey(section string) string {
	return strings.Join(strings.Fields(strings.ToLower(section)), " ")
}
