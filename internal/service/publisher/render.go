package publisher

import (
	"errors"
	"fmt"

	"github.com/cbroglie/mustache"

	"github.com/dumfing/board-index-publisher/internal/assetname"
	"github.com/dumfing/board-index-publisher/internal/catalog"
)

// errNoManifestEntry is returned when a platform has an archive but no
// manifest metadata. A well-formed release set always carries both.
var errNoManifestEntry = errors.New("no manifest entry for platform")

// RenderIndex joins the catalog's archive and manifest maps by platform,
// renders one fragment per platform with the platform template, and wraps
// the fragments with the index template. Fragments are inserted raw; each
// list entry carries a "last" marker so the templates control trailing
// commas themselves.
func RenderIndex(platformTemplate, indexTemplate string, found *catalog.Catalog) (string, error) {
	fragmentTemplate, err := mustache.ParseString(platformTemplate)
	if err != nil {
		return "", fmt.Errorf("parse platform template: %w", err)
	}

	wrapperTemplate, err := mustache.ParseString(indexTemplate)
	if err != nil {
		return "", fmt.Errorf("parse index template: %w", err)
	}

	platforms := found.Platforms()
	entries := make([]map[string]any, 0, len(platforms))

	for i, platform := range platforms {
		fragment, err := renderPlatform(fragmentTemplate, found, platform)
		if err != nil {
			return "", err
		}

		entries = append(entries, map[string]any{
			"entry": fragment,
			"last":  i == len(platforms)-1,
		})
	}

	index, err := wrapperTemplate.Render(map[string]any{"platforms": entries})
	if err != nil {
		return "", fmt.Errorf("render index template: %w", err)
	}

	return index, nil
}

// renderPlatform renders the fragment for one platform.
func renderPlatform(fragmentTemplate *mustache.Template, found *catalog.Catalog, platform string) (string, error) {
	archive, _ := found.Archive(platform)

	manifest, ok := found.Manifest(platform)
	if !ok {
		return "", fmt.Errorf("%w: %q", errNoManifestEntry, platform)
	}

	// The checksum is re-derived from the stored filename, mirroring how
	// the published indexes were produced.
	info, err := assetname.Parse(archive.Filename)
	if err != nil {
		return "", err
	}

	boards := make([]map[string]any, 0, len(manifest.Boards))
	for i, board := range manifest.Boards {
		boards = append(boards, map[string]any{
			"name": board,
			"last": i == len(manifest.Boards)-1,
		})
	}

	fragment, err := fragmentTemplate.Render(map[string]any{
		"platform_name":   platform,
		"architecture":    manifest.Architecture,
		"version":         archive.Version.String(),
		"boards":          boards,
		"url":             archive.URL,
		"filename":        archive.Filename,
		"size_bytes":      archive.Size,
		"sha256_checksum": info.Checksum,
	})
	if err != nil {
		return "", fmt.Errorf("render platform %q: %w", platform, err)
	}

	return fragment, nil
}
