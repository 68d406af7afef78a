// Package api calls the application's own HTTP endpoints: prompt
// refinement, project creation and edits, and account deletion.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"wisp/internal/jsonutil"
	"wisp/internal/project"
	"wisp/internal/telemetry"
)

const (
	// DefaultDevOrigin is used in development mode when no origin is set.
	DefaultDevOrigin = "http://localhost:8081"

	tracerName     = "wisp/api"
	defaultTimeout = 60 * time.Second
	maxErrorBody   = 16 << 10
)

// ErrNoBaseURL is returned outside development mode when no API base URL
// is configured.
var ErrNoBaseURL = errors.New("api base URL is not configured")

// HTTPError is a non-2xx response from an API endpoint.
type HTTPError struct {
	Op     string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Body)
}

// Options selects how endpoint URLs are built.
type Options struct {
	BaseURL   string
	Dev       bool
	DevOrigin string
}

// Client calls the application endpoints.
type Client struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client.
func New(opts Options, o ...Option) *Client {
	c := &Client{
		opts:   opts,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: slog.Default(),
	}
	for _, fn := range o {
		fn(c)
	}
	return c
}

// URL resolves a relative endpoint path. In development mode the dev
// origin is used, with an exp:// scheme rewritten to http://.
func (c *Client) URL(relativePath string) (string, error) {
	return ResolveURL(c.opts, relativePath)
}

// ResolveURL builds the absolute URL for relativePath under opts.
func ResolveURL(opts Options, relativePath string) (string, error) {
	path := relativePath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if opts.Dev {
		origin := DefaultDevOrigin
		if opts.DevOrigin != "" {
			origin = strings.Replace(opts.DevOrigin, "exp://", "http://", 1)
		}
		return strings.TrimRight(origin, "/") + path, nil
	}
	if opts.BaseURL == "" {
		return "", ErrNoBaseURL
	}
	return strings.TrimRight(opts.BaseURL, "/") + path, nil
}

// Question is one clarifying question returned by Refine.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// Answer pairs a question with the user's reply.
type Answer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// RefineRequest asks the server to sharpen a prompt.
type RefineRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Prompt      string   `json:"prompt"`
	Answers     []Answer `json:"answers,omitempty"`
}

// RefineResponse carries follow-up questions, a refined prompt, or both.
type RefineResponse struct {
	Questions []Question `json:"questions"`
	Prompt    string     `json:"prompt"`
}

// Refine posts the draft to /api/refine.
func (c *Client) Refine(ctx context.Context, req RefineRequest) (RefineResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return RefineResponse{}, fmt.Errorf("encode refine request: %w", err)
	}
	var out RefineResponse
	err = c.do(ctx, "refine", http.MethodPost, "/api/refine", "application/json", bytes.NewReader(body), &out)
	if err != nil {
		return RefineResponse{}, err
	}
	return out, nil
}

// CreateProject submits row to /api/projects as a multipart form, uploading
// the icon file when iconPath is set. The row's project_id is sent along so
// the stored row matches the optimistic placeholder.
func (c *Client) CreateProject(ctx context.Context, row project.NewRow, iconPath string) (project.Project, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", row.DisplayName},
		{"description", row.Description},
		{"prompt", row.Prompt},
		{"userId", row.UserID},
		{"project_id", row.ProjectID},
		{"private", strconv.FormatBool(row.Private)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return project.Project{}, fmt.Errorf("create project: %w", err)
		}
	}
	if iconPath != "" {
		if err := attachFile(w, "icon", iconPath); err != nil {
			return project.Project{}, fmt.Errorf("create project: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return project.Project{}, fmt.Errorf("create project: %w", err)
	}

	var p project.Project
	if err := c.do(ctx, "create project", http.MethodPost, "/api/projects", w.FormDataContentType(), &buf, &p); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// UpdateProject asks the server to apply a described change to a project.
func (c *Client) UpdateProject(ctx context.Context, id, description, userID string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("description", description); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := w.WriteField("userId", userID); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("update project: %w", err)
	}

	path := "/api/projects/" + url.PathEscape(id)
	if err := c.do(ctx, "update project", http.MethodPut, path, w.FormDataContentType(), &buf, nil); err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return fmt.Errorf("failed to update project: %w", err)
		}
		return err
	}
	return nil
}

// DeleteAccount removes the user's account and data.
func (c *Client) DeleteAccount(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("userId", userID)
	return c.do(ctx, "delete account", http.MethodGet, "/api/delete?"+q.Encode(), "", nil, nil)
}

func attachFile(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", field, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out interface{}) (err error) {
	ctx, span := telemetry.Start(ctx, tracerName, op, attribute.String("http.method", method))
	defer func() { telemetry.End(span, err) }()

	u, err := c.URL(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request", "op", op, "status", resp.StatusCode, "elapsed", time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	return jsonutil.UnmarshalWithContext(b, out, op+": decode response")
}
