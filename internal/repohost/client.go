// Package repohost fetches checklist and report content from hosted GitHub
// repositories through the contents API. The client performs no retries;
// retry policy belongs to callers.
package repohost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codefionn/daybook/internal/logger"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	userAgent      = "daybook/1.0"
	defaultTimeout = 30 * time.Second
)

// HTTPClient abstracts the transport so tests can substitute a mock.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the repository hosting API.
type Client struct {
	baseURL string
	http    HTTPClient
	log     *logger.Logger
}

// Config holds client construction options; zero values select defaults.
type Config struct {
	BaseURL    string
	HTTPClient HTTPClient
	Timeout    time.Duration
}

// NewClient creates a repository client.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    httpClient,
		log:     logger.Global().WithPrefix("repohost"),
	}
}

// DirectoryEntry is one item of a directory listing.
type DirectoryEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// FetchFile retrieves one file's decoded content. A 404 here is an error;
// contrast with ListDirectory.
func (c *Client) FetchFile(ctx context.Context, ref Ref, path, branch string) (string, error) {
	resp, err := c.get(ctx, ref, path, branch)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, path, ref.String())
	}
	if err := c.mapStatus(resp); err != nil {
		return "", err
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Encoding != "base64" {
		return "", &TransportError{Err: fmt.Errorf("unexpected content encoding %q", body.Encoding)}
	}

	// The API wraps base64 bodies at 60 columns.
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("decode content: %w", err)}
	}
	return string(decoded), nil
}

// ListDirectory lists a directory. A 404 means the directory has not been
// created yet and returns an empty list, not an error. This asymmetry with
// FetchFile is deliberate: sources routinely lack a content directory until
// their first report lands.
func (c *Client) ListDirectory(ctx context.Context, ref Ref, path, branch string) ([]DirectoryEntry, error) {
	resp, err := c.get(ctx, ref, path, branch)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Debug("directory %s missing in %s, treating as empty", path, ref.String())
		return []DirectoryEntry{}, nil
	}
	if err := c.mapStatus(resp); err != nil {
		return nil, err
	}

	var entries []DirectoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode listing: %w", err)}
	}
	return entries, nil
}

func (c *Client) get(ctx context.Context, ref Ref, path, branch string) (*http.Response, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), path)
	if branch != "" {
		endpoint += "?ref=" + url.QueryEscape(branch)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if ref.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ref.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

// mapStatus converts non-2xx responses that are common to both endpoints.
// 404 is handled per endpoint by the callers.
func (c *Client) mapStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: credentials rejected", ErrAccessForbidden)
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return &RateLimitError{Reset: parseResetHeader(resp.Header.Get("X-RateLimit-Reset"))}
		}
		return ErrAccessForbidden
	default:
		return &TransportError{StatusCode: resp.StatusCode}
	}
}

func parseResetHeader(value string) time.Time {
	epoch, err := strconv.ParseInt(value, 10, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}
	}
	return time.Unix(epoch, 0)
}
