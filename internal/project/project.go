// Package project defines the Project record: one generated app and its
// deployment lifecycle, as stored in the backing projects table.
package project

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"wisp/internal/jsonutil"
)

// Status is the lifecycle state of a generated app.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCreating  Status = "creating"
	StatusDeploying Status = "deploying"
	StatusDeployed  Status = "deployed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCreating, StatusDeploying, StatusDeployed, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the pipeline is done with the project.
func (s Status) Terminal() bool {
	return s == StatusDeployed || s == StatusFailed
}

// Label returns a human-readable label for display.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusCreating:
		return "Creating"
	case StatusDeploying:
		return "Deploying"
	case StatusDeployed:
		return "Deployed"
	case StatusFailed:
		return "Failed"
	case "":
		return "Unknown"
	default:
		return string(s)
	}
}

// Project mirrors a row of the projects table.
type Project struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	ProjectID        string     `json:"project_id"`
	Name             string     `json:"name"`
	DisplayName      string     `json:"display_name"`
	Description      string     `json:"description"`
	Prompt           *string    `json:"prompt"`
	Status           Status     `json:"status"`
	StatusMessage    *string    `json:"status_message"`
	Error            *string    `json:"error"`
	DNSRecordID      *string    `json:"dns_record_id"`
	CustomDomain     *string    `json:"custom_domain"`
	CreatedAt        *time.Time `json:"created_at"`
	LastUpdated      *time.Time `json:"last_updated"`
	DeployedAt       *time.Time `json:"deployed_at"`
	Private          bool       `json:"private"`
	Icon             *string    `json:"icon"`
	MobileScreenshot *string    `json:"mobile_screenshot"`
}

// UnmarshalJSON decodes a row. Timestamps are accepted with or without a
// zone designator; the realtime WAL decoder omits it.
func (p *Project) UnmarshalJSON(data []byte) error {
	type row Project
	aux := struct {
		*row
		CreatedAt   *string `json:"created_at"`
		LastUpdated *string `json:"last_updated"`
		DeployedAt  *string `json:"deployed_at"`
	}{row: (*row)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if p.CreatedAt, err = parseTimestamp("created_at", aux.CreatedAt); err != nil {
		return err
	}
	if p.LastUpdated, err = parseTimestamp("last_updated", aux.LastUpdated); err != nil {
		return err
	}
	if p.DeployedAt, err = parseTimestamp("deployed_at", aux.DeployedAt); err != nil {
		return err
	}
	return nil
}

func parseTimestamp(column string, s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := jsonutil.ParseTimestamp(*s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", column, err)
	}
	return &t, nil
}

// Title returns the display name, falling back to the subdomain name.
func (p Project) Title() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// URL returns where the deployed app can be reached. appDomain is the default
// parent domain for generated subdomains; it may be empty.
func (p Project) URL(appDomain string) string {
	if d := Deref(p.CustomDomain); d != "" {
		if strings.Contains(d, "://") {
			return d
		}
		return "https://" + d
	}
	if appDomain == "" || p.Name == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.%s", p.Name, strings.TrimPrefix(appDomain, "."))
}

// Version returns the timestamp used to order competing writes of the same
// record: last_updated, else created_at, else the zero time.
func (p Project) Version() time.Time {
	if p.LastUpdated != nil {
		return *p.LastUpdated
	}
	if p.CreatedAt != nil {
		return *p.CreatedAt
	}
	return time.Time{}
}

// Created returns created_at or the zero time. Missing timestamps sort as oldest.
func (p Project) Created() time.Time {
	if p.CreatedAt == nil {
		return time.Time{}
	}
	return *p.CreatedAt
}

// Clone returns a deep copy so callers can't mutate shared pointer fields.
func (p Project) Clone() Project {
	c := p
	c.Prompt = cloneString(p.Prompt)
	c.StatusMessage = cloneString(p.StatusMessage)
	c.Error = cloneString(p.Error)
	c.DNSRecordID = cloneString(p.DNSRecordID)
	c.CustomDomain = cloneString(p.CustomDomain)
	c.Icon = cloneString(p.Icon)
	c.MobileScreenshot = cloneString(p.MobileScreenshot)
	c.CreatedAt = cloneTime(p.CreatedAt)
	c.LastUpdated = cloneTime(p.LastUpdated)
	c.DeployedAt = cloneTime(p.DeployedAt)
	return c
}

// SortByCreatedDesc sorts newest first. The sort is stable so records with
// equal (or missing) created_at keep their relative order.
func SortByCreatedDesc(ps []Project) {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Created().After(ps[j].Created())
	})
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-{2,}`)
)

// Slugify turns a display name into a subdomain-safe label.
// "My Awesome_App!" -> "my-awesome-app".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
