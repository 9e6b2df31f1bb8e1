package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dumfing/board-index-publisher/internal/assetname"
	"github.com/dumfing/board-index-publisher/internal/boardversion"
)

// Compare orders two versions; see boardversion.Compare and CompareStrict.
type Compare func(a, b boardversion.Version) int

// ManifestEntry is the authoritative metadata for one platform,
// taken from the highest-versioned manifest.json seen so far.
type ManifestEntry struct {
	// Boards lists the human-readable board names the platform provides.
	Boards []string
	// Version is the parsed manifest version.
	Version boardversion.Version
	// Architecture is the platform's architecture identifier.
	Architecture string
}

// ArchiveEntry is the most recently scanned board archive for one platform.
type ArchiveEntry struct {
	// Version is parsed from the archive filename.
	Version boardversion.Version
	// URL is the archive's download location.
	URL string
	// Filename is the archive's name as attached to the release.
	Filename string
	// Size is the archive's size in bytes.
	Size int64
}

// manifestDocument mirrors the manifest.json wire format:
// a mapping from platform name to its metadata.
type manifestDocument map[string]struct {
	Version      string   `json:"version"`
	Boards       []string `json:"boards"`
	Architecture string   `json:"architecture"`
}

// Catalog folds scanned releases into per-platform state.
type Catalog struct {
	compare   Compare
	manifests map[string]ManifestEntry
	archives  map[string]ArchiveEntry
}

// New returns an empty catalog using the provided version comparator for
// manifest merging.
func New(compare Compare) *Catalog {
	return &Catalog{
		compare:   compare,
		manifests: make(map[string]ManifestEntry),
		archives:  make(map[string]ArchiveEntry),
	}
}

// MergeManifest parses a manifest.json document and merges each platform's
// entry, keeping the stored entry unless the incoming version is strictly
// greater under the catalog's comparator.
func (c *Catalog) MergeManifest(contents []byte) error {
	var doc manifestDocument
	if err := json.Unmarshal(contents, &doc); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	for platform, entry := range doc {
		version, err := boardversion.Parse(entry.Version)
		if err != nil {
			return fmt.Errorf("manifest platform %q: %w", platform, err)
		}

		if stored, ok := c.manifests[platform]; ok && c.compare(version, stored.Version) <= 0 {
			continue
		}

		c.manifests[platform] = ManifestEntry{
			Boards:       entry.Boards,
			Version:      version,
			Architecture: entry.Architecture,
		}
	}

	return nil
}

// RecordArchive parses a board archive's filename and stores its entry for
// the platform, unconditionally replacing any previous one. The parsed name
// is returned so callers can log the discovery.
func (c *Catalog) RecordArchive(name, downloadURL string, size int64) (assetname.Info, error) {
	info, err := assetname.Parse(name)
	if err != nil {
		return assetname.Info{}, err
	}

	version, err := boardversion.Parse(info.Version)
	if err != nil {
		return assetname.Info{}, fmt.Errorf("asset name %q: %w", name, err)
	}

	// Last scanned wins here, unlike the manifest merge above.
	c.archives[info.Platform] = ArchiveEntry{
		Version:  version,
		URL:      downloadURL,
		Filename: name,
		Size:     size,
	}

	return info, nil
}

// Platforms returns the platforms present in the archive map, sorted.
func (c *Catalog) Platforms() []string {
	platforms := make([]string, 0, len(c.archives))
	for platform := range c.archives {
		platforms = append(platforms, platform)
	}

	sort.Strings(platforms)

	return platforms
}

// Manifest returns the merged manifest entry for a platform.
func (c *Catalog) Manifest(platform string) (ManifestEntry, bool) {
	entry, ok := c.manifests[platform]
	return entry, ok
}

// Archive returns the recorded archive entry for a platform.
func (c *Catalog) Archive(platform string) (ArchiveEntry, bool) {
	entry, ok := c.archives[platform]
	return entry, ok
}
