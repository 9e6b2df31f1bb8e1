// Package boardversion implements the dotted-integer version scheme used by
// board archive names and manifest entries.
package boardversion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted-integer version, e.g. "1.2.3" parsed as [1, 2, 3].
type Version []int

// errEmptyVersion is returned when an empty string is parsed.
var errEmptyVersion = errors.New("empty version")

// Parse converts a dotted-integer string into a Version.
func Parse(s string) (Version, error) {
	if s == "" {
		return nil, errEmptyVersion
	}

	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))

	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse version %q: %w", s, err)
		}

		v = append(v, n)
	}

	return v, nil
}

// String renders the version back to its dotted-decimal form.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}

	return strings.Join(parts, ".")
}

// Compare orders two versions component-wise over their shared prefix and
// returns -1, 0, or 1. Versions of unequal length whose shared prefix
// matches are reported equal: Compare([1,2], [1,2,3]) == 0. This reproduces
// the comparator the published indexes were built with; use CompareStrict
// for length-aware ordering.
func Compare(a, b Version) int {
	n := min(len(a), len(b))

	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}

	return 0
}

// CompareStrict orders two versions like Compare, but when the shared prefix
// is equal the longer version is considered greater, so [1,2] < [1,2,3].
func CompareStrict(a, b Version) int {
	if c := Compare(a, b); c != 0 {
		return c
	}

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
