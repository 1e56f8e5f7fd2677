package storage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubSource reads a published trust config from a GitHub repository using
// the contents API. It is read-only, so only the public half of a config
// should live there.
type GitHubSource struct {
	owner       string
	repo        string
	path        string
	ref         string
	token       string
	apiBase     string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// GitHubContent is the subset of a contents API response used here.
type GitHubContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
}

// NewGitHubSource creates a source for path in owner/repo at ref (default
// branch when empty). token, or GITHUB_TOKEN when empty, is optional.
func NewGitHubSource(owner, repo, path, ref, token string, log *slog.Logger) *GitHubSource {
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	locationURI := fmt.Sprintf("github://%s/%s/%s", owner, repo, path)
	if ref != "" {
		locationURI += "?ref=" + url.QueryEscape(ref)
	}
	return &GitHubSource{
		owner:       owner,
		repo:        repo,
		path:        strings.Trim(path, "/"),
		ref:         ref,
		token:       token,
		apiBase:     defaultGitHubAPI,
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		locationURI: locationURI,
	}
}

// Fetch downloads and decodes the file.
func (s *GitHubSource) Fetch(ctx context.Context) ([]byte, error) {
	content, err := s.fetchContent(ctx)
	if err != nil {
		return nil, err
	}

	if content.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding: %s", content.Encoding)
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	s.log.Debug("Fetched trust config from GitHub",
		slog.String("path", s.path),
		slog.String("sha", content.SHA),
		slog.Int("size", len(data)))
	return data, nil
}

// Store is not implemented for this read-only source.
func (s *GitHubSource) Store(ctx context.Context, data []byte) (string, error) {
	return "", fmt.Errorf("GitHub source is read-only")
}

// Available checks if the repository is accessible.
func (s *GitHubSource) Available(ctx context.Context) bool {
	req, err := s.newRequest(ctx, fmt.Sprintf("%s/repos/%s/%s", s.apiBase, s.owner, s.repo))
	if err != nil {
		s.log.Debug("Failed to create request", "err", err)
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Debug("GitHub source unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Debug("GitHub source unavailable", slog.String("status", resp.Status))
		return false
	}
	return true
}

func (s *GitHubSource) Name() string {
	return fmt.Sprintf("github-%s-%s", s.owner, s.repo)
}

func (s *GitHubSource) LocationURI() string {
	return s.locationURI
}

func (s *GitHubSource) newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return req, nil
}

func (s *GitHubSource) fetchContent(ctx context.Context) (*GitHubContent, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.apiBase, s.owner, s.repo, s.path)
	if s.ref != "" {
		u += "?ref=" + url.QueryEscape(s.ref)
	}

	req, err := s.newRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrContentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	var content GitHubContent
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	return &content, nil
}
