// Package backend talks to the hosted database's REST and auth services:
// CRUD on the projects table and the signed-in user.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"wisp/internal/jsonutil"
	"wisp/internal/project"
	"wisp/internal/telemetry"
)

const (
	// ProjectsTable is the table holding project rows.
	ProjectsTable = "projects"

	tracerName     = "wisp/backend"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests use httptest servers).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger for request tracing at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAccessToken sets the user's bearer token.
func WithAccessToken(tok string) Option {
	return func(c *Client) { c.token = tok }
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the service at baseURL authenticated with the
// public API key.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetAccessToken swaps the bearer token, e.g. after sign-in.
func (c *Client) SetAccessToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// AccessToken returns the current bearer token.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ListProjects returns every project visible to the user, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]project.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var rows []project.Project
	if err := c.do(ctx, "list_projects", http.MethodGet, restPath(ProjectsTable, q), nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return rows, nil
}

// ListPublicProjects returns the community gallery: every deployed project
// that isn't private, newest first.
func (c *Client) ListPublicProjects(ctx context.Context) ([]project.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("private", "eq.false")
	q.Set("status", "eq."+string(project.StatusDeployed))
	q.Set("order", "created_at.desc")

	var rows []project.Project
	if err := c.do(ctx, "list_public_projects", http.MethodGet, restPath(ProjectsTable, q), nil, nil, &rows); err != nil {
		return nil, fmt.Errorf("list public projects: %w", err)
	}
	return rows, nil
}

// GetProject returns a single project by id.
func (c *Client) GetProject(ctx context.Context, id string) (project.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)

	var rows []project.Project
	if err := c.do(ctx, "get_project", http.MethodGet, restPath(ProjectsTable, q), nil, nil, &rows); err != nil {
		return project.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	if len(rows) == 0 {
		return project.Project{}, fmt.Errorf("get project %s: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// InsertProject inserts a row and returns it as stored.
func (c *Client) InsertProject(ctx context.Context, row project.NewRow) (project.Project, error) {
	hdr := http.Header{"Prefer": []string{"return=representation"}}
	var rows []project.Project
	if err := c.do(ctx, "insert_project", http.MethodPost, restPath(ProjectsTable, nil), hdr, row, &rows); err != nil {
		return project.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if len(rows) == 0 {
		return project.Project{}, fmt.Errorf("insert project: empty response")
	}
	return rows[0], nil
}

// UpdateProject applies pt to the row with id and returns the stored row.
func (c *Client) UpdateProject(ctx context.Context, id string, pt project.Patch) (project.Project, error) {
	if pt.Empty() {
		return c.GetProject(ctx, id)
	}
	q := url.Values{}
	q.Set("id", "eq."+id)
	hdr := http.Header{"Prefer": []string{"return=representation"}}

	var rows []project.Project
	if err := c.do(ctx, "update_project", http.MethodPatch, restPath(ProjectsTable, q), hdr, pt, &rows); err != nil {
		return project.Project{}, fmt.Errorf("update project %s: %w", id, err)
	}
	if len(rows) == 0 {
		return project.Project{}, fmt.Errorf("update project %s: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// DeleteProject deletes the row with id. Deleting a missing row succeeds.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	if err := c.do(ctx, "delete_project", http.MethodDelete, restPath(ProjectsTable, q), nil, nil, nil); err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

// GetUser returns the account the access token belongs to.
func (c *Client) GetUser(ctx context.Context) (User, error) {
	if c.AccessToken() == "" {
		return User{}, ErrNotSignedIn
	}
	var u User
	if err := c.do(ctx, "get_user", http.MethodGet, "/auth/v1/user", nil, nil, &u); err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func restPath(table string, q url.Values) string {
	p := "/rest/v1/" + table
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

// do sends one request. body is JSON-encoded when non-nil; a 2xx response
// body is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, hdr http.Header, body, out interface{}) (err error) {
	ctx, span := telemetry.Start(ctx, tracerName, op,
		attribute.String("http.method", method),
		attribute.String("db.table", ProjectsTable),
	)
	defer func() { telemetry.End(span, err) }()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	bearer := c.AccessToken()
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.logger.Debug("backend request", "op", op, "method", method, "status", resp.StatusCode, "elapsed", time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(resp.StatusCode, b)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return jsonutil.UnmarshalWithContext(b, out, "decode response")
}
