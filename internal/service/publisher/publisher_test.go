package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dumfing/board-index-publisher/internal/boardversion"
	"github.com/dumfing/board-index-publisher/internal/catalog"
	"github.com/dumfing/board-index-publisher/internal/github"
)

// loadTemplates reads the mustache documents shipped with the repository so
// the tests exercise the real templates, not simplified stand-ins.
func loadTemplates(t *testing.T) (string, string) {
	t.Helper()

	platform, err := os.ReadFile(filepath.Join("..", "..", "..", "templates", "platform_template.json.mustache"))
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join("..", "..", "..", "templates", "package_dmfg_index_template.json.mustache"))
	require.NoError(t, err)

	return string(platform), string(index)
}

// seededCatalog returns a catalog holding the canonical single-platform fixture.
func seededCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	found := catalog.New(boardversion.Compare)
	require.NoError(t, found.MergeManifest(
		[]byte(`{"avr": {"version": "1.8.6", "boards": ["uno"], "architecture": "avr"}}`)))

	_, err := found.RecordArchive("1.8.6_deadbeef_avr.json", "http://example/dl/avr", 1024)
	require.NoError(t, err)

	return found
}

// TestRenderIndex renders the fixture through both templates and checks
// every substituted literal plus the validity of the final document.
func TestRenderIndex(t *testing.T) {
	t.Parallel()

	platformTemplate, indexTemplate := loadTemplates(t)

	index, err := RenderIndex(platformTemplate, indexTemplate, seededCatalog(t))
	require.NoError(t, err)

	for _, literal := range []string{
		`"name": "avr"`,
		`"architecture": "avr"`,
		`"version": "1.8.6"`,
		`"name": "uno"`,
		"http://example/dl/avr",
		"1.8.6_deadbeef_avr.json",
		`"size": "1024"`,
		"SHA-256:deadbeef",
	} {
		require.Contains(t, index, literal)
	}

	var document struct {
		Packages []struct {
			Platforms []json.RawMessage `json:"platforms"`
		} `json:"packages"`
	}

	require.NoError(t, json.Unmarshal([]byte(index), &document))
	require.Len(t, document.Packages, 1)
	require.Len(t, document.Packages[0].Platforms, 1)
}

// TestRenderIndexMultiplePlatforms checks comma placement between fragments
// still yields valid JSON.
func TestRenderIndexMultiplePlatforms(t *testing.T) {
	t.Parallel()

	platformTemplate, indexTemplate := loadTemplates(t)

	found := seededCatalog(t)
	require.NoError(t, found.MergeManifest(
		[]byte(`{"esp32": {"version": "0.3.0", "boards": ["esp32dev", "wroom"], "architecture": "xtensa"}}`)))

	_, err := found.RecordArchive("0.3.0_c0ffee_esp32.json", "http://example/dl/esp32", 4096)
	require.NoError(t, err)

	index, err := RenderIndex(platformTemplate, indexTemplate, found)
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(index)))

	var document struct {
		Packages []struct {
			Platforms []json.RawMessage `json:"platforms"`
		} `json:"packages"`
	}

	require.NoError(t, json.Unmarshal([]byte(index), &document))
	require.Len(t, document.Packages[0].Platforms, 2)
}

// TestRenderIndexMissingManifest ensures a platform with an archive but no
// manifest entry fails the join.
func TestRenderIndexMissingManifest(t *testing.T) {
	t.Parallel()

	platformTemplate, indexTemplate := loadTemplates(t)

	found := catalog.New(boardversion.Compare)

	_, err := found.RecordArchive("1.0.0_beef_samd.json", "http://example/dl/samd", 64)
	require.NoError(t, err)

	_, err = RenderIndex(platformTemplate, indexTemplate, found)
	require.Error(t, err)
	require.Contains(t, err.Error(), "samd")
}

// TestRunPublishSequencing drives the whole pipeline against a fake server
// and verifies the upload only happens after the create call returned an id,
// targeting exactly that id.
func TestRunPublishSequencing(t *testing.T) {
	t.Parallel()

	var (
		calls    []string
		uploaded []byte
	)

	mux := http.NewServeMux()

	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/repos/dumfing/boards/releases", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		calls = append(calls, "list")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "tag_name": "v1.8.6", "assets": [
			{"name": "manifest.json", "size": 70, "browser_download_url": "` + server.URL + `/download/manifest.json"},
			{"name": "1.8.6_deadbeef_avr.json", "size": 1024, "browser_download_url": "http://example/dl/avr"}
		]}]`))
	})
	mux.HandleFunc("/download/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, _ = w.Write([]byte(`{"avr": {"version": "1.8.6", "boards": ["uno"], "architecture": "avr"}}`))
	})
	mux.HandleFunc("/repos/dumfing/board-index/releases", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		calls = append(calls, "create")

		var release github.NewRelease
		require.NoError(t, json.NewDecoder(r.Body).Decode(&release))
		require.True(t, release.Draft)
		require.Equal(t, "v2026-08-23T1904", release.TagName)
		require.Equal(t, "New Board Index Released", release.Name)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 77}`))
	})
	mux.HandleFunc("/repos/dumfing/board-index/releases/77/assets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		calls = append(calls, "upload")

		require.Equal(t, "package_dumfing_boards_index.json", r.URL.Query().Get("name"))
		require.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))

		var err error
		uploaded, err = io.ReadAll(r.Body)
		require.NoError(t, err)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 5, "name": "package_dumfing_boards_index.json", "size": 1}`))
	})

	client := github.NewClient(server.URL, server.URL, "sekret", time.Second)

	err := Run(context.Background(), &Options{
		Client:               client,
		SourceOwner:          "dumfing",
		SourceRepo:           "boards",
		IndexOwner:           "dumfing",
		IndexRepo:            "board-index",
		PageSize:             30,
		Compare:              boardversion.Compare,
		PlatformTemplatePath: filepath.Join("..", "..", "..", "templates", "platform_template.json.mustache"),
		IndexTemplatePath:    filepath.Join("..", "..", "..", "templates", "package_dmfg_index_template.json.mustache"),
		IndexAssetName:       "package_dumfing_boards_index.json",
		Now: func() time.Time {
			return time.Date(2026, 8, 23, 19, 4, 0, 0, time.UTC)
		},
	})
	require.NoError(t, err)

	// The upload never precedes the create call.
	require.Equal(t, []string{"list", "create", "upload"}, calls)
	require.True(t, json.Valid(uploaded))
	require.Contains(t, string(uploaded), "SHA-256:deadbeef")
}

// TestRunRefusesUnparsableIndex ensures a template producing broken JSON
// stops the pipeline before any release is created.
func TestRunRefusesUnparsableIndex(t *testing.T) {
	t.Parallel()

	var wroteRelease bool

	mux := http.NewServeMux()

	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/repos/dumfing/boards/releases", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "tag_name": "v1", "assets": [
			{"name": "manifest.json", "size": 60, "browser_download_url": "` + server.URL + `/download/manifest.json"},
			{"name": "1.0.0_beef_avr.json", "size": 1, "browser_download_url": "http://example/dl"}
		]}]`))
	})
	mux.HandleFunc("/download/manifest.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		_, _ = w.Write([]byte(`{"avr": {"version": "1.0.0", "boards": ["uno"], "architecture": "avr"}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		wroteRelease = true

		w.WriteHeader(http.StatusCreated)
	})

	dir := t.TempDir()
	platformPath := filepath.Join(dir, "platform.mustache")
	indexPath := filepath.Join(dir, "index.mustache")
	require.NoError(t, os.WriteFile(platformPath, []byte(`{"name": "{{{platform_name}}}"}`), 0o600))
	require.NoError(t, os.WriteFile(indexPath, []byte(`{{#platforms}}{{{entry}}}{{/platforms}} trailing garbage`), 0o600))

	client := github.NewClient(server.URL, server.URL, "sekret", time.Second)

	err := Run(context.Background(), &Options{
		Client:               client,
		SourceOwner:          "dumfing",
		SourceRepo:           "boards",
		IndexOwner:           "dumfing",
		IndexRepo:            "board-index",
		PageSize:             30,
		Compare:              boardversion.Compare,
		PlatformTemplatePath: platformPath,
		IndexTemplatePath:    indexPath,
		IndexAssetName:       "index.json",
	})
	require.Error(t, err)
	require.False(t, wroteRelease)
}
