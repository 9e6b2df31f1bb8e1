package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dumfing/board-index-publisher/internal/boardversion"
	"github.com/dumfing/board-index-publisher/internal/catalog"
	"github.com/dumfing/board-index-publisher/internal/config"
	"github.com/dumfing/board-index-publisher/internal/github"
	"github.com/dumfing/board-index-publisher/internal/logger"
	"github.com/dumfing/board-index-publisher/internal/service/publisher"
	"github.com/dumfing/board-index-publisher/internal/service/runlock"
	"github.com/dumfing/board-index-publisher/internal/service/scanner"
	"github.com/dumfing/board-index-publisher/internal/version"
)

// errTokenRequired is returned when publishing without a bearer token.
var errTokenRequired = fmt.Errorf("%s environment variable must be set", config.EnvTokenVariable)

var (
	// configPath to the configuration YAML file.
	configPath string

	// logLevel is the minimum level for console logging.
	logLevel string

	// rootCmd represents the base command for the board-index publisher.
	rootCmd = &cobra.Command{
		Use:   "board-indexer",
		Short: "Publish the boards package index",
		Long: "board-indexer scans a repository's releases for board archives and manifests, " +
			"merges the latest metadata per platform, renders the package index from mustache " +
			"templates, and publishes it as a draft release asset on the index repository.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if lvl, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(lvl)
			}
		},
	}

	// publishCmd runs the full pipeline.
	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Scan board releases and publish a new draft index release",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runPublish(ctx)
		},
	}

	// scanCmd runs the scan stage only and prints what it found.
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan board releases and print the merged platform records without publishing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runScan(ctx, cmd)
		},
	}

	// initCmd writes a settings file with defaults for the given repositories.
	initCmd = &cobra.Command{
		Use:   "init [source-repo] [index-repo]",
		Short: "Write a settings file with defaults for the given repositories",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.SourceRepo = args[0]
			cfg.IndexRepo = args[1]

			return config.Save(configPath, cfg)
		},
	}
)

// Execute runs the board-indexer CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "minimum log level (debug, info, warn, error)")

	rootCmd.AddCommand(publishCmd, scanCmd, initCmd)
}

// runPublish loads settings, takes the run lock, and executes the pipeline.
func runPublish(ctx context.Context) error {
	ctx = logger.WithName(ctx, "board-indexer")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	token := os.Getenv(config.EnvTokenVariable)
	if token == "" {
		return errTokenRequired
	}

	lock, err := runlock.Acquire(cfg.LockFile)
	if err != nil {
		return err
	}

	// Best-effort cleanup.
	defer func() {
		_ = lock.Release()
	}()

	sourceOwner, sourceRepo, err := config.SplitRepo(cfg.SourceRepo)
	if err != nil {
		return err
	}

	indexOwner, indexRepo, err := config.SplitRepo(cfg.IndexRepo)
	if err != nil {
		return err
	}

	if err = publisher.Run(ctx, &publisher.Options{
		Client:               github.NewClient(cfg.APIBaseURL, cfg.UploadsBaseURL, token, cfg.Timeout),
		SourceOwner:          sourceOwner,
		SourceRepo:           sourceRepo,
		IndexOwner:           indexOwner,
		IndexRepo:            indexRepo,
		PageSize:             cfg.PageSize,
		Compare:              comparatorFor(cfg),
		PlatformTemplatePath: cfg.PlatformTemplate,
		IndexTemplatePath:    cfg.IndexTemplate,
		IndexAssetName:       cfg.IndexAssetName,
	}); err != nil {
		return err
	}

	logger.Info(ctx, "Publisher completed successfully")

	return nil
}

// runScan executes the scan stage and renders the findings as a table.
func runScan(ctx context.Context, cmd *cobra.Command) error {
	ctx = logger.WithName(ctx, "board-indexer")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	sourceOwner, sourceRepo, err := config.SplitRepo(cfg.SourceRepo)
	if err != nil {
		return err
	}

	// The token is optional for public repositories on reads.
	token := os.Getenv(config.EnvTokenVariable)

	found, err := scanner.Run(ctx, &scanner.Options{
		Client:   github.NewClient(cfg.APIBaseURL, cfg.UploadsBaseURL, token, cfg.Timeout),
		Owner:    sourceOwner,
		Repo:     sourceRepo,
		PageSize: cfg.PageSize,
		Compare:  comparatorFor(cfg),
	})
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(found.Platforms()))

	for _, platform := range found.Platforms() {
		archive, _ := found.Archive(platform)

		boards, architecture := "-", "-"
		if manifest, ok := found.Manifest(platform); ok {
			architecture = manifest.Architecture
			boards = strconv.Itoa(len(manifest.Boards))
		}

		rows = append(rows, []string{
			platform,
			archive.Version.String(),
			architecture,
			boards,
			archive.Filename,
			strconv.FormatInt(archive.Size, 10),
		})
	}

	if len(rows) == 0 {
		return errors.New("no board archives found")
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Platform", "Version", "Architecture", "Boards", "Filename", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	))

	return nil
}

// comparatorFor picks the manifest version comparator configured for the run.
func comparatorFor(cfg *config.Config) catalog.Compare {
	if cfg.StrictComparison() {
		return boardversion.CompareStrict
	}

	return boardversion.Compare
}
