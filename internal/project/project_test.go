package project

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusCreating, StatusDeploying, StatusDeployed, StatusFailed} {
		assert.True(t, s.Valid(), "status %q", s)
	}
	assert.False(t, Status("building").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusDeployed.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusCreating.Terminal())
	assert.False(t, StatusDeploying.Terminal())
}

func TestProject_UnmarshalRow(t *testing.T) {
	row := `{
		"id": "a1", "user_id": "u1", "project_id": "p1", "name": "todo",
		"display_name": "Todo", "description": "tasks", "prompt": null,
		"status": "deploying", "status_message": "building image",
		"error": null, "dns_record_id": null, "custom_domain": "todo.example.app",
		"created_at": "2026-01-02T03:04:05.123456+00:00", "last_updated": null,
		"deployed_at": null, "private": true, "icon": null, "mobile_screenshot": null
	}`
	var p Project
	require.NoError(t, json.Unmarshal([]byte(row), &p))

	assert.Equal(t, "a1", p.ID)
	assert.Equal(t, StatusDeploying, p.Status)
	assert.Equal(t, "building image", Deref(p.StatusMessage))
	assert.Nil(t, p.Prompt)
	assert.True(t, p.Private)
	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, 2026, p.CreatedAt.Year())
	assert.Equal(t, *p.CreatedAt, p.Version(), "version falls back to created_at")
}

func TestProject_UnmarshalZonelessTimestamps(t *testing.T) {
	var p Project
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","created_at":"2024-05-01T10:00:00.123456","last_updated":"2024-05-01 11:00:00+00","deployed_at":""}`), &p))

	require.NotNil(t, p.CreatedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), *p.CreatedAt)
	require.NotNil(t, p.LastUpdated)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), *p.LastUpdated)
	assert.Nil(t, p.DeployedAt)

	err := json.Unmarshal([]byte(`{"id":"a","created_at":"yesterday"}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")
}

func TestProject_Title(t *testing.T) {
	assert.Equal(t, "Todo", Project{Name: "todo", DisplayName: "Todo"}.Title())
	assert.Equal(t, "todo", Project{Name: "todo"}.Title())
}

func TestProject_URL(t *testing.T) {
	p := Project{Name: "todo"}
	assert.Equal(t, "", p.URL(""))
	assert.Equal(t, "https://todo.wisp.app", p.URL("wisp.app"))
	assert.Equal(t, "https://todo.wisp.app", p.URL(".wisp.app"))

	p.CustomDomain = String("todo.example.com")
	assert.Equal(t, "https://todo.example.com", p.URL("wisp.app"))

	p.CustomDomain = String("http://localhost:3000")
	assert.Equal(t, "http://localhost:3000", p.URL("wisp.app"))
}

func TestProject_Version(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	assert.True(t, Project{}.Version().IsZero())
	assert.Equal(t, created, Project{CreatedAt: &created}.Version())
	assert.Equal(t, updated, Project{CreatedAt: &created, LastUpdated: &updated}.Version())
}

func TestProject_CloneIsDeep(t *testing.T) {
	p := Project{ID: "a", Prompt: String("hello"), CreatedAt: Time(time.Now())}
	c := p.Clone()
	*c.Prompt = "changed"
	*c.CreatedAt = time.Time{}

	assert.Equal(t, "hello", *p.Prompt)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestSortByCreatedDesc(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ps := []Project{
		{ID: "old", CreatedAt: Time(t0)},
		{ID: "none"},
		{ID: "new", CreatedAt: Time(t0.Add(2 * time.Hour))},
		{ID: "mid", CreatedAt: Time(t0.Add(time.Hour))},
	}
	SortByCreatedDesc(ps)

	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"new", "mid", "old", "none"}, ids)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Awesome App":   "my-awesome-app",
		"  snake_case  ":   "snake-case",
		"Émoji 🚀 rocket!": "moji-rocket",
		"---":              "",
		"a  -  b":          "a-b",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestPatch_Apply(t *testing.T) {
	p := Project{ID: "a", Name: "todo", Status: StatusCreating, Prompt: String("v1")}
	pt := StatusPatch(StatusDeployed, "live")
	pt.Prompt = String("v2")

	got := pt.Apply(p)
	assert.Equal(t, StatusDeployed, got.Status)
	assert.Equal(t, "live", Deref(got.StatusMessage))
	assert.Equal(t, "v2", Deref(got.Prompt))
	assert.Equal(t, "todo", got.Name, "untouched fields survive")
	assert.Equal(t, StatusCreating, p.Status, "original is not mutated")
}

func TestPatch_Empty(t *testing.T) {
	assert.True(t, Patch{}.Empty())
	assert.False(t, StatusPatch(StatusFailed, "").Empty())
}

func TestDraft_Validate(t *testing.T) {
	valid := Draft{Name: "Todo", Description: "Track tasks", Prompt: "A todo list app"}
	require.NoError(t, valid.Validate())

	d := valid
	d.Name = "   "
	assert.EqualError(t, d.Validate(), "name is required")

	d = valid
	d.Name = "!!!"
	assert.EqualError(t, d.Validate(), "name must contain letters or digits")

	d = valid
	d.Prompt = ""
	assert.EqualError(t, d.Validate(), "prompt is required")

	d = valid
	d.Description = strings.Repeat("x", MaxDescriptionLength+1)
	assert.EqualError(t, d.Validate(), "description must be at most 500 characters")
}

func TestDraft_DetailsComplete(t *testing.T) {
	assert.False(t, Draft{Name: "x"}.DetailsComplete())
	assert.False(t, Draft{Name: " ", Description: "y"}.DetailsComplete())
	assert.True(t, Draft{Name: "x", Description: "y"}.DetailsComplete())
}

func TestDraft_Row(t *testing.T) {
	d := Draft{Name: " My App ", Description: "desc", Prompt: "build it", Private: true}
	row := d.Row("user-1")

	assert.Equal(t, "my-app", row.Name)
	assert.Equal(t, "My App", row.DisplayName)
	assert.Equal(t, StatusCreating, row.Status)
	assert.Equal(t, "user-1", row.UserID)
	assert.True(t, row.Private)
	assert.Len(t, row.ProjectID, 36)
	assert.NotEqual(t, row.ProjectID, d.Row("user-1").ProjectID, "project_id is fresh per row")
}

func TestDraft_Placeholder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Draft{Name: "App", Description: "d", Prompt: "p"}.Placeholder("u", now)

	assert.True(t, IsPlaceholder(p.ID))
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, now, p.Created())
	assert.False(t, IsPlaceholder("3f0c"))
}

func TestNewRow_PlaceholderSharesProjectID(t *testing.T) {
	row := Draft{Name: "App", Description: "d", Prompt: "p", Private: true}.Row("u")
	p := row.Placeholder(time.Now())

	assert.Equal(t, row.ProjectID, p.ProjectID)
	assert.Equal(t, "app", p.Name)
	assert.Equal(t, "App", p.DisplayName)
	assert.True(t, p.Private)
	assert.Equal(t, "p", Deref(p.Prompt))
}
