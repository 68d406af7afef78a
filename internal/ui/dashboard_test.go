package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/project"
	"wisp/internal/store"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testProject(id, name string, status project.Status, age time.Duration) project.Project {
	created := testNow.Add(-age)
	return project.Project{
		ID:          id,
		ProjectID:   "pid-" + id,
		Name:        name,
		DisplayName: strings.ToUpper(name[:1]) + name[1:],
		Description: "about " + name,
		Status:      status,
		CreatedAt:   &created,
	}
}

func testProjects() []project.Project {
	return []project.Project{
		testProject("p1", "alpha", project.StatusDeployed, time.Hour),
		testProject("p2", "beta", project.StatusDeploying, 2*time.Hour),
		testProject("p3", "gamma", project.StatusFailed, 48*time.Hour),
	}
}

func newTestDashboard() *DashboardView {
	d := NewDashboardView()
	d.now = func() time.Time { return testNow }
	d.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	d.SetSnapshot(store.Snapshot{Projects: testProjects()})
	return d
}

func TestDashboardView_JKNavigation(t *testing.T) {
	d := newTestDashboard()

	if d.Selected() != 0 {
		t.Fatalf("expected initial Selected=0, got %d", d.Selected())
	}
	d.Update(keyMsg("j"))
	if d.Selected() != 1 {
		t.Errorf("after j: expected Selected=1, got %d", d.Selected())
	}
	d.Update(keyMsg("j"))
	d.Update(keyMsg("j"))
	if d.Selected() != 2 {
		t.Errorf("j at bottom: expected Selected=2, got %d", d.Selected())
	}
	d.Update(keyMsg("k"))
	if d.Selected() != 1 {
		t.Errorf("after k: expected Selected=1, got %d", d.Selected())
	}
}

func TestDashboardView_SetSnapshotKeepsSelection(t *testing.T) {
	d := newTestDashboard()
	d.Update(keyMsg("j")) // beta

	// A new project arrives at the top; the cursor follows beta.
	rows := append([]project.Project{testProject("p0", "zeta", project.StatusPending, 0)}, testProjects()...)
	d.SetSnapshot(store.Snapshot{Projects: rows})

	p, ok := d.SelectedProject()
	if !ok || p.ID != "p2" {
		t.Errorf("selected = %q, want p2", p.ID)
	}

	// beta disappears; the cursor stays in range.
	d.SetSnapshot(store.Snapshot{Projects: rows[:1]})
	if _, ok := d.SelectedProject(); !ok {
		t.Error("expected a selection after the list shrank")
	}
}

func TestDashboardView_Select(t *testing.T) {
	d := newTestDashboard()
	if !d.Select("p3") {
		t.Fatal("Select(p3) = false")
	}
	if p, _ := d.SelectedProject(); p.ID != "p3" {
		t.Errorf("selected = %q, want p3", p.ID)
	}
	if d.Select("missing") {
		t.Error("Select(missing) = true")
	}
}

func TestDashboardView_EmptyAndLoading(t *testing.T) {
	d := NewDashboardView()
	d.SetSnapshot(store.Snapshot{})
	if out := d.View(); !strings.Contains(out, "No apps yet") {
		t.Errorf("expected empty state, got:\n%s", out)
	}

	if cmd := d.SetSnapshot(store.Snapshot{Loading: true}); cmd == nil {
		t.Error("loading should start the spinner")
	}
	if !d.Loading() {
		t.Error("expected loading")
	}
	if out := d.View(); strings.Contains(out, "No apps yet") {
		t.Error("empty state should not show while loading")
	}
}

func TestDashboardView_ErrorKeepsRows(t *testing.T) {
	d := newTestDashboard()
	d.SetSnapshot(store.Snapshot{Projects: testProjects(), Err: errors.New("network down")})
	out := d.View()
	if !strings.Contains(out, "network down") {
		t.Errorf("expected error line, got:\n%s", out)
	}
	if !strings.Contains(out, "Alpha") {
		t.Errorf("rows should survive a failed refresh:\n%s", out)
	}
}

func TestProjectItem_Title(t *testing.T) {
	p := testProject("p3", "gamma", project.StatusFailed, 48*time.Hour)
	p.Error = project.String("build failed")
	p.StatusMessage = project.String("ignored when failed")

	got := projectItem{Project: p, now: testNow}.Title()
	for _, want := range []string{"Gamma", "Failed", "build failed", "2 days ago"} {
		if !strings.Contains(got, want) {
			t.Errorf("title %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "ignored") {
		t.Errorf("title %q should prefer the error message", got)
	}
}

func TestRelativeTime(t *testing.T) {
	if got := relativeTime(testNow, testNow); got != "just now" {
		t.Errorf("relativeTime(now) = %q", got)
	}
	if got := relativeTime(testNow.Add(-3*time.Minute), testNow); got != "3 minutes ago" {
		t.Errorf("relativeTime(-3m) = %q", got)
	}
}
