// Package publisher runs the publishing pipeline end to end: load the two
// templates and scan the source repository concurrently, render the package
// index, verify it parses, then create a draft release on the index
// repository and attach the rendered bytes to it.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dumfing/board-index-publisher/internal/catalog"
	"github.com/dumfing/board-index-publisher/internal/github"
	"github.com/dumfing/board-index-publisher/internal/logger"
	"github.com/dumfing/board-index-publisher/internal/service/scanner"
)

const (
	// releaseTitle is the fixed title of every published draft release.
	releaseTitle = "New Board Index Released"
	// releaseBody is the fixed (empty) body of every published draft release.
	releaseBody = ""
	// tagTimeFormat renders the UTC timestamp tag, e.g. "v2026-08-23T1904".
	tagTimeFormat = "v2006-01-02T1504"
)

var (
	// errClientRequired is returned when no API client is provided.
	errClientRequired = errors.New("github client is not set")
	// errIndexNotJSON is returned when the rendered index fails the sanity parse.
	errIndexNotJSON = errors.New("rendered index is not valid JSON")
)

// Options are inputs accepted by the publisher entry point.
type Options struct {
	// Client performs all REST calls.
	Client *github.Client
	// SourceOwner and SourceRepo identify the repository being scanned.
	SourceOwner string
	SourceRepo  string
	// IndexOwner and IndexRepo identify the repository receiving the draft release.
	IndexOwner string
	IndexRepo  string
	// PageSize is the releases-per-page setting for the scan.
	PageSize int
	// Compare is the version comparator for manifest merging.
	Compare catalog.Compare
	// PlatformTemplatePath and IndexTemplatePath locate the mustache documents.
	PlatformTemplatePath string
	IndexTemplatePath    string
	// IndexAssetName is the filename of the uploaded index asset.
	IndexAssetName string
	// Now supplies the tag timestamp; defaults to time.Now.
	Now func() time.Time
}

// run holds the intermediate state of one publishing pass.
type run struct {
	opts             *Options
	platformTemplate string
	indexTemplate    string
	found            *catalog.Catalog
}

// Run executes the publishing pipeline and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	if opts.Client == nil {
		return errClientRequired
	}

	ctx = logger.WithName(ctx, "publisher")

	r := &run{opts: opts}

	if err := r.gather(ctx); err != nil {
		return err
	}

	index, err := r.render(ctx)
	if err != nil {
		return err
	}

	return r.publish(ctx, index)
}

// gather loads both templates and scans the source repository as three
// concurrent tasks; the first failure cancels the others.
func (r *run) gather(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		contents, err := readTemplate(r.opts.PlatformTemplatePath)
		r.platformTemplate = contents

		return err
	})
	group.Go(func() error {
		contents, err := readTemplate(r.opts.IndexTemplatePath)
		r.indexTemplate = contents

		return err
	})
	group.Go(func() error {
		found, err := scanner.Run(ctx, &scanner.Options{
			Client:   r.opts.Client,
			Owner:    r.opts.SourceOwner,
			Repo:     r.opts.SourceRepo,
			PageSize: r.opts.PageSize,
			Compare:  r.opts.Compare,
		})
		r.found = found

		return err
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("gather inputs: %w", err)
	}

	return nil
}

// render produces the index document and refuses to hand back anything the
// sanity parse rejects. Unparsable output is never published.
func (r *run) render(ctx context.Context) (string, error) {
	index, err := RenderIndex(r.platformTemplate, r.indexTemplate, r.found)
	if err != nil {
		return "", err
	}

	if !json.Valid([]byte(index)) {
		return "", errIndexNotJSON
	}

	logger.InfoKV(ctx, "Rendered package index",
		"platforms", len(r.found.Platforms()), "bytes", len(index))

	return index, nil
}

// publish creates the draft release and uploads the index as its asset.
// The upload only ever runs with the release id returned by the create call.
func (r *run) publish(ctx context.Context, index string) error {
	now := r.opts.Now
	if now == nil {
		now = time.Now
	}

	tag := now().UTC().Format(tagTimeFormat)

	releaseID, err := r.opts.Client.CreateRelease(ctx, r.opts.IndexOwner, r.opts.IndexRepo, github.NewRelease{
		TagName: tag,
		Draft:   true,
		Name:    releaseTitle,
		Body:    releaseBody,
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Created draft release", "tag", tag, "release_id", releaseID)

	asset, err := r.opts.Client.UploadReleaseAsset(ctx,
		r.opts.IndexOwner, r.opts.IndexRepo, releaseID, r.opts.IndexAssetName, []byte(index))
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Uploaded package index", "name", asset.Name, "size", asset.Size)

	return nil
}

// readTemplate loads one template file.
func readTemplate(path string) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}

	return string(contents), nil
}
