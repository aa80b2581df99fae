// Package github is a minimal GitHub REST v3 client covering the few
// endpoints the pull request workflow needs: reading PR metadata and changed
// files, opening the generated-tests PR and commenting analysis results.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultUserAgent = "coverpilot"
	requestTimeout   = 30 * time.Second
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// Token is the bearer token used on every request. Required.
	Token string
	// BaseURL overrides the API endpoint, for GitHub Enterprise and tests.
	BaseURL string
	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

func (o *ClientOptions) Validate() error {
	if o.Token == "" {
		return fmt.Errorf("github token is required")
	}
	return nil
}

// Client talks to the GitHub REST API for one repository.
type Client struct {
	baseURL    string
	token      string
	owner      string
	repo       string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient builds a Client scoped to owner/repo.
func NewClient(owner, repo string, o *ClientOptions) (*Client, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := o.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := o.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL:    baseURL,
		token:      o.Token,
		owner:      owner,
		repo:       repo,
		httpClient: httpClient,
		logger:     logger.WithField("source", "github"),
	}, nil
}

// PullRequest is the subset of PR metadata the workflow consumes.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Head    Ref    `json:"head"`
	Base    Ref    `json:"base"`
}

// Ref names one side of a pull request.
type Ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// ChangedFile is one file touched by a pull request.
type ChangedFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Patch     string `json:"patch"`
}

// GetPullRequest fetches PR metadata.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	var pr PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", c.owner, c.repo, number)
	if err := c.do(ctx, http.MethodGet, path, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// ListChangedFiles returns every file touched by the PR, following
// pagination.
func (c *Client) ListChangedFiles(ctx context.Context, number int) ([]ChangedFile, error) {
	var all []ChangedFile
	for page := 1; ; page++ {
		var files []ChangedFile
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=100&page=%d", c.owner, c.repo, number, page)
		if err := c.do(ctx, http.MethodGet, path, nil, &files); err != nil {
			return nil, err
		}
		all = append(all, files...)
		if len(files) < 100 {
			return all, nil
		}
	}
}

// NewPullRequest is the payload for opening a pull request.
type NewPullRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// CreatePullRequest opens a pull request and returns its metadata.
func (c *Client) CreatePullRequest(ctx context.Context, input NewPullRequest) (*PullRequest, error) {
	var pr PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", c.owner, c.repo)
	if err := c.do(ctx, http.MethodPost, path, input, &pr); err != nil {
		return nil, err
	}
	c.logger.Infof("opened pull request #%d: %s", pr.Number, pr.HTMLURL)
	return &pr, nil
}

// CreateComment posts an issue comment on the PR.
func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", c.owner, c.repo, number)
	payload := map[string]string{"body": body}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", defaultUserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}
