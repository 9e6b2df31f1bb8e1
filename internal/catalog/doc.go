// Package catalog accumulates what a release scan discovers: per-platform
// manifest metadata and per-platform archive entries. It is pure state with
// no network access, so the fold rules can be tested in isolation.
//
// The two maps deliberately retain entries differently. Manifest entries
// keep the highest version seen per platform; archive entries keep the most
// recently recorded one regardless of version. The published indexes were
// built with this asymmetry, so it is preserved rather than unified.
package catalog
