// Package assetname parses the filename encoding used by board archives:
// "<version>_<sha256>_<platform>.<extension>".
package assetname

import (
	"errors"
	"fmt"
	"strings"
)

// Info holds the fields recovered from a board archive filename.
type Info struct {
	// Version is the dotted-decimal version prefix, not yet parsed to integers.
	Version string
	// Checksum is the hex-encoded SHA-256 of the archive.
	Checksum string
	// Platform is the platform identifier the archive targets.
	Platform string
	// Extension is everything after the first dot following the platform.
	Extension string
}

var (
	// errMissingDelimiters is returned when the name lacks the two underscore fields.
	errMissingDelimiters = errors.New("expected <version>_<sha256>_<platform>.<extension>")
	// errMissingExtension is returned when the platform suffix carries no extension.
	errMissingExtension = errors.New("expected <platform>.<extension> suffix")
)

// Parse splits an asset name on its first two underscores, then splits the
// remainder on its first dot. Empty fields are rejected.
func Parse(name string) (Info, error) {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Info{}, fmt.Errorf("asset name %q: %w", name, errMissingDelimiters)
	}

	platform, extension, found := strings.Cut(parts[2], ".")
	if !found || platform == "" || extension == "" {
		return Info{}, fmt.Errorf("asset name %q: %w", name, errMissingExtension)
	}

	return Info{
		Version:   parts[0],
		Checksum:  parts[1],
		Platform:  platform,
		Extension: extension,
	}, nil
}
