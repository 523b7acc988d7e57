// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// DedupeOrdered removes duplicates and empty strings from a slice.
// Order is preserved; the first occurrence wins.
//
// Example:
//
//	DedupeOrdered([]string{"111", "222", "111", ""})
//	// Returns: []string{"111", "222"}
func DedupeOrdered(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}

// DedupeOrderedFold is like DedupeOrdered but compares case-insensitively
// while preserving the casing of the first occurrence.
//
// Example:
//
//	DedupeOrderedFold([]string{"A@x.com", "a@X.COM", "b@x.com"})
//	// Returns: []string{"A@x.com", "b@x.com"}
func DedupeOrderedFold(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			result = append(result, v)
		}
	}

	return result
}
