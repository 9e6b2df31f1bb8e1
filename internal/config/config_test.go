package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, format validations, and defaulting.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing source repository.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad repository form.
	cfg = &Config{
		SourceRepo: "not-a-repo",
		IndexRepo:  "dumfing/board-index",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Unknown comparison mode.
	cfg = &Config{
		SourceRepo: "dumfing/boards",
		IndexRepo:  "dumfing/board-index",
		Comparison: "fuzzy",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults filled in.
	cfg = &Config{
		SourceRepo: "dumfing/boards",
		IndexRepo:  "dumfing/board-index",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	require.Equal(t, DefaultUploadsBaseURL, cfg.UploadsBaseURL)
	require.Equal(t, DefaultPageSize, cfg.PageSize)
	require.Equal(t, DefaultIndexAssetName, cfg.IndexAssetName)
	require.Equal(t, ComparisonPrefix, cfg.Comparison)
	require.False(t, cfg.StrictComparison())
}

// TestSplitRepo verifies owner/repo splitting and its error cases.
func TestSplitRepo(t *testing.T) {
	t.Parallel()

	owner, repo, err := SplitRepo("dumfing/boards")
	require.NoError(t, err)
	require.Equal(t, "dumfing", owner)
	require.Equal(t, "boards", repo)

	for _, bad := range []string{"", "dumfing", "/boards", "dumfing/", "a/b/c"} {
		_, _, err := SplitRepo(bad)
		require.Error(t, err, bad)
	}
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := Default()
	cfg.SourceRepo = "dumfing/boards"
	cfg.IndexRepo = "dumfing/board-index"
	cfg.Comparison = ComparisonStrict

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.SourceRepo, loaded.SourceRepo)
	require.Equal(t, cfg.IndexRepo, loaded.IndexRepo)
	require.True(t, loaded.StrictComparison())
}
