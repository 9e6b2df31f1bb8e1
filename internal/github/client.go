package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// acceptHeader is sent on every API call.
	acceptHeader = "application/vnd.github+json"
	// apiVersionHeader pins the REST API version on every authenticated call.
	apiVersionHeader = "2022-11-28"
	// userAgent identifies the publisher to the API.
	userAgent = "board-index-publisher/1.0"
	// errorBodyLimit caps how much of an error response body is kept for reporting.
	errorBodyLimit = 2048
)

// Client talks to the GitHub REST API.
type Client struct {
	httpClient *http.Client
	apiBaseURL string
	uploadsURL string
	token      string
}

// Release is a repository release with its attached assets.
type Release struct {
	ID      int64   `json:"id"`
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Draft   bool    `json:"draft"`
	Assets  []Asset `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// NewRelease is the request body for creating a release.
type NewRelease struct {
	TagName string `json:"tag_name"`
	Draft   bool   `json:"draft"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// NewClient builds a client for the given endpoints. The token may be empty
// for unauthenticated reads; write calls will then be rejected by the API.
func NewClient(apiBaseURL, uploadsBaseURL, token string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		uploadsURL: strings.TrimRight(uploadsBaseURL, "/"),
		token:      token,
	}
}

// ListReleases fetches one page of releases for a repository. Pages are
// numbered from 0 and hold at most perPage entries; a shorter page is the
// caller's signal that no further pages exist.
func (c *Client) ListReleases(ctx context.Context, owner, repo string, page, perPage int) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d&page=%d",
		c.apiBaseURL, owner, repo, perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	c.setHeaders(req)

	var releases []Release
	if err := c.doJSON(req, http.StatusOK, &releases); err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	return releases, nil
}

// DownloadAsset fetches the raw contents behind an asset's download URL.
func (c *Client) DownloadAsset(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download asset: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(req, resp)
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read asset body: %w", err)
	}

	return contents, nil
}

// CreateRelease creates a release on the repository and returns its id.
func (c *Client) CreateRelease(ctx context.Context, owner, repo string, release NewRelease) (int64, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", c.apiBaseURL, owner, repo)

	payload, err := json.Marshal(release)
	if err != nil {
		return 0, fmt.Errorf("marshal release: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	var created Release
	if err := c.doJSON(req, http.StatusCreated, &created); err != nil {
		return 0, fmt.Errorf("create release: %w", err)
	}

	return created.ID, nil
}

// UploadReleaseAsset attaches contents as a binary asset on an existing
// release, named via the query parameter the uploads endpoint expects.
func (c *Client) UploadReleaseAsset(ctx context.Context, owner, repo string, releaseID int64, name string, contents []byte) (Asset, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		c.uploadsURL, owner, repo, releaseID, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(contents))
	if err != nil {
		return Asset{}, fmt.Errorf("build request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = int64(len(contents))

	var uploaded Asset
	if err := c.doJSON(req, http.StatusCreated, &uploaded); err != nil {
		return Asset{}, fmt.Errorf("upload asset: %w", err)
	}

	return uploaded, nil
}

// setHeaders applies the headers required on API calls.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersionHeader)
	req.Header.Set("User-Agent", userAgent)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// doJSON executes the request, verifies the expected status, and decodes the
// response body into out.
func (c *Client) doJSON(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != wantStatus {
		return statusError(req, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", req.Method, req.URL, err)
	}

	return nil
}

// statusError reports an unexpected HTTP status together with the endpoint
// and a bounded slice of the response body.
func statusError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	return fmt.Errorf("%s %s: unexpected status %d: %s",
		req.Method, req.URL, resp.StatusCode, strings.TrimSpace(string(body)))
}
