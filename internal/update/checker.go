package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

const userAgent = "ezupdate/%s"

// GitHubSource fetches release metadata from the GitHub API
type GitHubSource struct {
	githubToken string // Optional, for rate limiting
	client      *http.Client
	baseURL     string // Base URL for GitHub API (for testing)
	version     string // reported in the User-Agent header
}

// githubError is the error body GitHub sends with non-2xx responses.
type githubError struct {
	Message string `json:"message"`
}

// NewGitHubSource creates a release source rooted at apiURL.
// An empty apiURL selects DefaultAPIURL.
func NewGitHubSource(apiURL string) *GitHubSource {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &GitHubSource{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(apiURL, "/"),
		version: "dev",
	}
}

// WithToken sets an optional GitHub token for authentication
func (s *GitHubSource) WithToken(token string) *GitHubSource {
	s.githubToken = token
	return s
}

// WithUserAgentVersion sets the version reported in the User-Agent header.
func (s *GitHubSource) WithUserAgentVersion(v string) *GitHubSource {
	s.version = v
	return s
}

// GetLatestRelease fetches the latest release of owner/repo.
// A 404, or a "Not Found" message, yields ErrRepoNotFound; any other
// error payload yields an *APIError.
func (s *GitHubSource) GetLatestRelease(ctx context.Context, owner, repo string) (*ReleaseMetadata, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", s.baseURL, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	// Set headers
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, s.version))
	if s.githubToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.githubToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var payload githubError
		_ = json.Unmarshal(body, &payload)
		if resp.StatusCode == http.StatusNotFound || payload.Message == "Not Found" {
			return nil, ErrRepoNotFound
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: payload.Message}
	}

	var release ReleaseMetadata
	if err := json.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if release.Name == "" {
		release.Name = release.TagName
	}

	return &release, nil
}
