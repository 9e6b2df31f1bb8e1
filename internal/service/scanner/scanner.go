// Package scanner walks a repository's releases page by page and folds every
// attached asset into a catalog: manifest.json assets are downloaded and
// merged, everything else is recorded as a board archive.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/dumfing/board-index-publisher/internal/catalog"
	"github.com/dumfing/board-index-publisher/internal/github"
	"github.com/dumfing/board-index-publisher/internal/logger"
)

// manifestAssetName is the release attachment holding per-platform metadata.
const manifestAssetName = "manifest.json"

// errClientRequired is returned when no API client is provided.
var errClientRequired = errors.New("github client is not set")

// Options are inputs accepted by the scanner entry point.
type Options struct {
	// Client performs the REST calls.
	Client *github.Client
	// Owner and Repo identify the repository whose releases are scanned.
	Owner string
	Repo  string
	// PageSize is the number of releases requested per page.
	PageSize int
	// Compare is the version comparator used for manifest merging.
	Compare catalog.Compare
}

// Run scans every release of the repository and returns the resulting
// catalog. Pagination starts at page 0 and stops as soon as a page comes
// back shorter than the page size. Pages and manifest downloads are strictly
// sequential; the first error aborts the scan.
func Run(ctx context.Context, opts *Options) (*catalog.Catalog, error) {
	if opts.Client == nil {
		return nil, errClientRequired
	}

	ctx = logger.WithName(ctx, "scanner")
	found := catalog.New(opts.Compare)

	for page := 0; ; page++ {
		releases, err := opts.Client.ListReleases(ctx, opts.Owner, opts.Repo, page, opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		logger.DebugKV(ctx, "Fetched releases page", "page", page, "releases", len(releases))

		for _, release := range releases {
			if err := scanRelease(ctx, opts, found, release); err != nil {
				return nil, fmt.Errorf("release %q: %w", release.TagName, err)
			}
		}

		if len(releases) < opts.PageSize {
			break
		}
	}

	return found, nil
}

// scanRelease dispatches each asset of one release into the catalog.
func scanRelease(ctx context.Context, opts *Options, found *catalog.Catalog, release github.Release) error {
	for _, asset := range release.Assets {
		if asset.Name == manifestAssetName {
			contents, err := opts.Client.DownloadAsset(ctx, asset.BrowserDownloadURL)
			if err != nil {
				return err
			}

			if err := found.MergeManifest(contents); err != nil {
				return err
			}

			continue
		}

		info, err := found.RecordArchive(asset.Name, asset.BrowserDownloadURL, asset.Size)
		if err != nil {
			return err
		}

		logger.Debugf(ctx, "Version %s for %s filetype %s with sha256 %s",
			info.Version, info.Platform, info.Extension, info.Checksum)
	}

	return nil
}
