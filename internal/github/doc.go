// Package github is a minimal GitHub REST client covering exactly the
// surface the publisher needs: paginated release listing, asset download,
// draft release creation, and release-asset upload. There is no retry or
// rate-limit handling; any unexpected response aborts the caller's run.
package github
