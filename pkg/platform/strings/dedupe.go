// Package strings normalizes free-text user input.
package strings

import (
	"strings"
)

// SearchTerms splits a search query on whitespace and returns the distinct
// lowercase terms in first-seen order.
//
//	SearchTerms("  DLV-01  ada dlv-01 ")
//	// []string{"dlv-01", "ada"}
func SearchTerms(query string) []string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	result := make([]string, 0, len(fields))
	for _, f := range fields {
		term := strings.ToLower(f)
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		result = append(result, term)
	}
	return result
}

// ContainsAll reports whether every term occurs in at least one of the haystacks,
// ignoring case. Terms must already be lowercase.
func ContainsAll(terms []string, haystacks ...string) bool {
	lowered := make([]string, len(haystacks))
	for i, h := range haystacks {
		lowered[i] = strings.ToLower(h)
	}
	for _, term := range terms {
		found := false
		for _, h := range lowered {
			if strings.Contains(h, term) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
