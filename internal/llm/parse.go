package llm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errMissingSummary    = errors.New("response has no Summary section")
	errMissingCategories = errors.New("response has no Categories section")
)

const (
	summaryMarker    = "Summary:"
	categoriesMarker = "Categories:"
)

// ParseSummary reads a "Summary: ... Categories: a, b, c" answer.
func ParseSummary(response string) (string, []string, error) {
	response = strings.ReplaceAll(response, "**", "")

	_, afterSummary, ok := strings.Cut(response, summaryMarker)
	if !ok {
		return "", nil, errMissingSummary
	}
	summary, categoryList, ok := strings.Cut(afterSummary, categoriesMarker)
	if !ok {
		return "", nil, errMissingCategories
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", nil, errMissingSummary
	}

	// Only the first line after the marker holds the list.
	categoryList, _, _ = strings.Cut(strings.TrimSpace(categoryList), "\n")
	categoryList = strings.Trim(strings.TrimSpace(categoryList), "[]")

	var categories []string
	for _, name := range strings.Split(categoryList, ",") {
		name = strings.Trim(strings.TrimSpace(name), `"'`)
		if name != "" {
			categories = append(categories, name)
		}
	}
	return summary, categories, nil
}

// ParseScore reads an integer score, optionally wrapped in brackets, and clamps it to 0..100.
func ParseScore(response string) (int, error) {
	trimmed := strings.Trim(strings.TrimSpace(response), "[]")
	score, err := strconv.Atoi(strings.TrimSpace(trimmed))
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", response, err)
	}
	return min(max(score, 0), 100), nil
}

// ParseSelector strips code fences and quotes around a CSS selector answer.
func ParseSelector(response string) string {
	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```css")
	s = strings.Trim(s, "`")
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
