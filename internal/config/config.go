package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the board-indexer commands.
type Config struct {
	// SourceRepo is the "owner/repo" whose releases carry board archives and manifests.
	SourceRepo string `yaml:"source_repo"`
	// IndexRepo is the "owner/repo" that receives the draft release with the rendered index.
	IndexRepo string `yaml:"index_repo"`
	// APIBaseURL is the REST API endpoint for release reads and the draft-release write.
	APIBaseURL string `yaml:"api_base_url"`
	// UploadsBaseURL is the endpoint for release-asset uploads.
	UploadsBaseURL string `yaml:"uploads_base_url"`
	// PageSize is the number of releases requested per page while scanning.
	PageSize int `yaml:"page_size"`
	// PlatformTemplate is the path to the per-platform mustache fragment template.
	PlatformTemplate string `yaml:"platform_template"`
	// IndexTemplate is the path to the wrapping index mustache template.
	IndexTemplate string `yaml:"index_template"`
	// IndexAssetName is the filename of the uploaded index asset.
	IndexAssetName string `yaml:"index_asset_name"`
	// Timeout is the duration applied to each HTTP request.
	Timeout time.Duration `yaml:"timeout"`
	// Comparison selects the version comparator: "prefix" reproduces the
	// original shared-prefix semantics, "strict" is length-aware.
	Comparison string `yaml:"comparison"`
	// LockFile is the path of the lock preventing overlapping publish runs.
	LockFile string `yaml:"lock_file"`
}

const (
	// DefaultConfigFilename is the default filename for publisher settings.
	DefaultConfigFilename = "board-indexer-settings.yaml"

	// EnvTokenVariable is the environment variable supplying the bearer token.
	EnvTokenVariable = "BOARD_INDEX_API_TOKEN"

	// DefaultAPIBaseURL is the GitHub REST API endpoint.
	DefaultAPIBaseURL = "https://api.github.com"

	// DefaultUploadsBaseURL is the GitHub release-asset upload endpoint.
	DefaultUploadsBaseURL = "https://uploads.github.com"

	// DefaultPageSize is the number of releases fetched per page.
	DefaultPageSize = 30

	// DefaultPlatformTemplate is the default per-platform template path.
	DefaultPlatformTemplate = "templates/platform_template.json.mustache"

	// DefaultIndexTemplate is the default index template path.
	DefaultIndexTemplate = "templates/package_dmfg_index_template.json.mustache"

	// DefaultIndexAssetName is the filename package-manager clients look for.
	DefaultIndexAssetName = "package_dumfing_boards_index.json"

	// DefaultTimeout is the default duration for a single HTTP request.
	DefaultTimeout = 2 * time.Minute

	// DefaultLockFile is the default lock file path.
	DefaultLockFile = "board-indexer.lock"

	// ComparisonPrefix compares versions over their shared prefix only.
	ComparisonPrefix = "prefix"

	// ComparisonStrict treats a longer version as greater when the shared prefix is equal.
	ComparisonStrict = "strict"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSourceRepoRequired is returned when the source repository is missing.
	errSourceRepoRequired = errors.New("source repository must be provided")
	// errIndexRepoRequired is returned when the index repository is missing.
	errIndexRepoRequired = errors.New("index repository must be provided")
	// errBadRepository is returned when a repository is not in "owner/repo" form.
	errBadRepository = errors.New(`repository must be in "owner/repo" form`)
	// errBadComparison is returned when the comparison mode is unknown.
	errBadComparison = errors.New(`comparison must be "prefix" or "strict"`)
)

// Default returns a configuration pre-filled with every default value.
// Source and index repositories are left empty and must be set by the caller.
func Default() *Config {
	return &Config{
		APIBaseURL:       DefaultAPIBaseURL,
		UploadsBaseURL:   DefaultUploadsBaseURL,
		PageSize:         DefaultPageSize,
		PlatformTemplate: DefaultPlatformTemplate,
		IndexTemplate:    DefaultIndexTemplate,
		IndexAssetName:   DefaultIndexAssetName,
		Timeout:          DefaultTimeout,
		Comparison:       ComparisonPrefix,
		LockFile:         DefaultLockFile,
	}
}

// SplitRepo splits an "owner/repo" string into its two components.
func SplitRepo(s string) (string, string, error) {
	owner, repo, found := strings.Cut(s, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q", errBadRepository, s)
	}

	return owner, repo, nil
}

// StrictComparison reports whether the length-aware comparator is selected.
func (c *Config) StrictComparison() bool {
	return c.Comparison == ComparisonStrict
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.SourceRepo == "" {
		return errSourceRepoRequired
	}

	if _, _, err := SplitRepo(cfg.SourceRepo); err != nil {
		return err
	}

	if cfg.IndexRepo == "" {
		return errIndexRepoRequired
	}

	if _, _, err := SplitRepo(cfg.IndexRepo); err != nil {
		return err
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}

	if cfg.UploadsBaseURL == "" {
		cfg.UploadsBaseURL = DefaultUploadsBaseURL
	}

	for _, endpoint := range []string{cfg.APIBaseURL, cfg.UploadsBaseURL} {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid endpoint URL: %w", err)
		}
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	if cfg.PlatformTemplate == "" {
		cfg.PlatformTemplate = DefaultPlatformTemplate
	}

	if cfg.IndexTemplate == "" {
		cfg.IndexTemplate = DefaultIndexTemplate
	}

	if cfg.IndexAssetName == "" {
		cfg.IndexAssetName = DefaultIndexAssetName
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.LockFile == "" {
		cfg.LockFile = DefaultLockFile
	}

	switch cfg.Comparison {
	case "":
		cfg.Comparison = ComparisonPrefix
	case ComparisonPrefix, ComparisonStrict:
	default:
		return fmt.Errorf("%w: %q", errBadComparison, cfg.Comparison)
	}

	return nil
}
