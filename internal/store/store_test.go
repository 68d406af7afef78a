package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisp/internal/project"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// rec builds a project created minutes after base.
func rec(id string, minutes int) project.Project {
	created := base.Add(time.Duration(minutes) * time.Minute)
	return project.Project{
		ID:        id,
		Name:      id,
		ProjectID: "pid-" + id,
		Status:    project.StatusCreating,
		CreatedAt: &created,
	}
}

func withUpdated(p project.Project, minutes int) project.Project {
	p.LastUpdated = project.Time(base.Add(time.Duration(minutes) * time.Minute))
	return p
}

func ids(ps []project.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

type fetchFunc func(ctx context.Context) ([]project.Project, error)

func (f fetchFunc) ListProjects(ctx context.Context) ([]project.Project, error) { return f(ctx) }

func TestApply_InsertKeepsNewestFirst(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("b", 2)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("c", 3)})

	noDate := rec("n", 0)
	noDate.CreatedAt = nil
	s.Apply(ChangeEvent{Type: EventInsert, Record: noDate})

	assert.Equal(t, []string{"c", "b", "a", "n"}, ids(s.Projects()))
}

func TestApply_InsertTieGoesAfterExisting(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("first", 5)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("second", 5)})

	assert.Equal(t, []string{"first", "second"}, ids(s.Projects()))
}

func TestApply_InsertDuplicateIsDeduplicated(t *testing.T) {
	s := New()
	p := rec("a", 1)
	s.OptimisticAdd(p)

	o := s.Apply(ChangeEvent{Type: EventInsert, Record: p})
	assert.Equal(t, OutcomeUpdated, o)
	assert.Equal(t, 1, s.Len())
}

func TestApply_UpdateReplacesByKey(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})

	upd := withUpdated(rec("a", 1), 10)
	upd.Status = project.StatusDeployed
	upd.CustomDomain = project.String("a.wisp.app")
	assert.Equal(t, OutcomeUpdated, s.Apply(ChangeEvent{Type: EventUpdate, Record: upd}))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, project.StatusDeployed, got.Status)
	assert.Equal(t, "a.wisp.app", project.Deref(got.CustomDomain))
}

func TestApply_StaleUpdateDropped(t *testing.T) {
	s := New()
	newer := withUpdated(rec("a", 1), 20)
	newer.Status = project.StatusDeployed
	s.Apply(ChangeEvent{Type: EventInsert, Record: newer})

	older := withUpdated(rec("a", 1), 10)
	older.Status = project.StatusDeploying
	assert.Equal(t, OutcomeStale, s.Apply(ChangeEvent{Type: EventUpdate, Record: older}))

	got, _ := s.Get("a")
	assert.Equal(t, project.StatusDeployed, got.Status)
}

func TestApply_UpdateUnknownIDUpserts(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	assert.Equal(t, OutcomeInserted, s.Apply(ChangeEvent{Type: EventUpdate, Record: rec("b", 2)}))
	assert.Equal(t, []string{"b", "a"}, ids(s.Projects()))
}

func TestApply_DeleteRemovesAndTombstones(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	commit := base.Add(time.Hour)

	o := s.Apply(ChangeEvent{Type: EventDelete, OldID: "a", CommitTimestamp: commit})
	assert.Equal(t, OutcomeRemoved, o)
	assert.Equal(t, 0, s.Len())

	// A late update committed before the delete must not resurrect it.
	late := withUpdated(rec("a", 1), 30)
	o = s.Apply(ChangeEvent{Type: EventUpdate, Record: late, CommitTimestamp: commit.Add(-time.Minute)})
	assert.Equal(t, OutcomeIgnored, o)
	assert.Equal(t, 0, s.Len())

	// A genuine re-insert after the delete is accepted.
	o = s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1), CommitTimestamp: commit.Add(time.Minute)})
	assert.Equal(t, OutcomeInserted, o)
}

func TestApply_DeleteUnknownIgnored(t *testing.T) {
	s := New()
	assert.Equal(t, OutcomeIgnored, s.Apply(ChangeEvent{Type: EventDelete, OldID: "zzz"}))
	assert.Equal(t, OutcomeIgnored, s.Apply(ChangeEvent{Type: EventInsert}))
}

func TestApply_CreatedAtChangeReorders(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("b", 2)})

	moved := withUpdated(rec("a", 5), 6)
	s.Apply(ChangeEvent{Type: EventUpdate, Record: moved})
	assert.Equal(t, []string{"a", "b"}, ids(s.Projects()))
}

func TestRefresh_ReplacesWholesale(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("gone", 1)})

	err := s.Refresh(context.Background(), fetchFunc(func(context.Context) ([]project.Project, error) {
		return []project.Project{rec("x", 1), rec("y", 3), rec("x", 1)}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, ids(s.Projects()))
	assert.False(t, s.Loading())
	assert.NoError(t, s.Err())
}

func TestRefresh_ErrorKeepsList(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	boom := errors.New("boom")

	err := s.Refresh(context.Background(), fetchFunc(func(context.Context) ([]project.Project, error) {
		return nil, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Err(), boom)
	assert.Equal(t, []string{"a"}, ids(s.Projects()))
	assert.False(t, s.Loading())
}

func TestRefresh_ReplaysEventsDuringFetch(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("b", 2)})

	tok := s.BeginRefresh()
	assert.True(t, s.Loading())

	// While the fetch is in flight the feed reports a delete and an insert
	// that the snapshot below predates.
	s.Apply(ChangeEvent{Type: EventDelete, OldID: "a", CommitTimestamp: base.Add(time.Hour)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("c", 3)})

	stale := []project.Project{rec("a", 1), rec("b", 2)}
	require.True(t, s.CompleteRefresh(tok, stale, nil))
	assert.Equal(t, []string{"c", "b"}, ids(s.Projects()))
}

func TestRefresh_SupersededIsDropped(t *testing.T) {
	s := New()
	first := s.BeginRefresh()
	second := s.BeginRefresh()

	require.True(t, s.CompleteRefresh(second, []project.Project{rec("new", 2)}, nil))
	assert.False(t, s.CompleteRefresh(first, []project.Project{rec("old", 1)}, nil))
	assert.Equal(t, []string{"new"}, ids(s.Projects()))
}

func TestReplace_SupersedesRefresh(t *testing.T) {
	s := New()
	tok := s.BeginRefresh()
	s.Replace([]project.Project{rec("r", 1)})

	assert.False(t, s.CompleteRefresh(tok, nil, nil))
	assert.Equal(t, []string{"r"}, ids(s.Projects()))
	assert.False(t, s.Loading())
}

func TestOptimisticAdd_Rollback(t *testing.T) {
	s := New()
	undo := s.OptimisticAdd(rec("a", 1))
	assert.Equal(t, 1, s.Len())

	undo()
	assert.Equal(t, 0, s.Len())
	undo()
	assert.Equal(t, 0, s.Len())
}

func TestOptimisticAdd_RollbackNoopAfterServerWrite(t *testing.T) {
	s := New()
	undo := s.OptimisticAdd(rec("a", 1))
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})

	undo()
	assert.Equal(t, 1, s.Len(), "server truth wins over rollback")
}

func TestOptimisticUpdate_Rollback(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})

	undo := s.OptimisticUpdate("a", project.StatusPatch(project.StatusDeploying, "updating"))
	got, _ := s.Get("a")
	assert.Equal(t, project.StatusDeploying, got.Status)

	undo()
	got, _ = s.Get("a")
	assert.Equal(t, project.StatusCreating, got.Status)

	// Unknown ids are a no-op.
	s.OptimisticUpdate("missing", project.StatusPatch(project.StatusFailed, ""))()
	assert.Equal(t, 1, s.Len())
}

func TestOptimisticRemove_BlocksStaleFeedUntilRollback(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("b", 2)})

	undo := s.OptimisticRemove("a")
	assert.Equal(t, []string{"b"}, ids(s.Projects()))

	// An update without commit time can't bring it back.
	s.Apply(ChangeEvent{Type: EventUpdate, Record: withUpdated(rec("a", 1), 3)})
	assert.Equal(t, []string{"b"}, ids(s.Projects()))

	undo()
	assert.Equal(t, []string{"b", "a"}, ids(s.Projects()))
}

func TestOptimisticRemove_HidesCommittedUpdatesUntilRollback(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("b", 2)})

	undo := s.OptimisticRemove("a")

	deploying := withUpdated(rec("a", 1), 5)
	deploying.Status = project.StatusDeploying
	o := s.Apply(ChangeEvent{Type: EventUpdate, Record: deploying, CommitTimestamp: time.Now().Add(time.Second)})
	assert.Equal(t, OutcomeIgnored, o)
	assert.Equal(t, []string{"b"}, ids(s.Projects()), "delete still in flight")

	// An older update doesn't replace the newer state kept for rollback.
	s.Apply(ChangeEvent{Type: EventUpdate, Record: withUpdated(rec("a", 1), 4), CommitTimestamp: time.Now().Add(2 * time.Second)})

	undo()
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, project.StatusDeploying, got.Status)
	assert.Equal(t, []string{"b", "a"}, ids(s.Projects()))
}

func TestOptimisticRemove_ConfirmedByDelete(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})

	undo := s.OptimisticRemove("a")
	s.Apply(ChangeEvent{Type: EventUpdate, Record: withUpdated(rec("a", 1), 2), CommitTimestamp: time.Now().Add(time.Second)})
	s.Apply(ChangeEvent{Type: EventDelete, OldID: "a", CommitTimestamp: time.Now().Add(2 * time.Second)})

	undo()
	assert.Equal(t, 0, s.Len(), "rollback after the server delete is a no-op")
}

func TestTombstones_Bounded(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("keep", 1)})
	s.OptimisticRemove("keep")

	for i := 0; i < maxTombstones+10; i++ {
		id := fmt.Sprintf("d%d", i)
		s.Apply(ChangeEvent{Type: EventDelete, OldID: id, CommitTimestamp: base.Add(time.Duration(i) * time.Second)})
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Len(t, s.tombstones, maxTombstones)
	assert.Contains(t, s.tombstones, "keep", "pending delete is never pruned")
	assert.NotContains(t, s.tombstones, "d0")
	assert.Contains(t, s.tombstones, fmt.Sprintf("d%d", maxTombstones+9))
}

func TestOptimisticRemove_SurvivesRefresh(t *testing.T) {
	s := New()
	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.OptimisticRemove("a")

	require.NoError(t, s.Refresh(context.Background(), fetchFunc(func(context.Context) ([]project.Project, error) {
		return []project.Project{rec("a", 1)}, nil
	})))
	assert.Equal(t, 0, s.Len(), "delete still in flight")
}

func TestPlaceholder_ReplacedByFeedInsert(t *testing.T) {
	s := New()
	d := project.Draft{Name: "App", Description: "d", Prompt: "p"}
	ph := d.Placeholder("u1", base)
	undo := s.OptimisticAdd(ph)

	server := rec("real", 0)
	server.ProjectID = ph.ProjectID
	s.Apply(ChangeEvent{Type: EventInsert, Record: server})

	assert.Equal(t, []string{"real"}, ids(s.Projects()))
	undo()
	assert.Equal(t, []string{"real"}, ids(s.Projects()), "placeholder rollback is a no-op once replaced")

	s.ResolvePlaceholder(ph.ID, server)
	assert.Equal(t, 1, s.Len())
}

func TestPlaceholder_ResolvedByResponse(t *testing.T) {
	s := New()
	ph := project.Draft{Name: "App", Description: "d", Prompt: "p"}.Placeholder("u1", base)
	s.OptimisticAdd(ph)

	server := rec("real", 0)
	server.ProjectID = ph.ProjectID
	s.ResolvePlaceholder(ph.ID, server)

	assert.Equal(t, []string{"real"}, ids(s.Projects()))
}

func TestPlaceholder_SurvivesRefreshUntilServerHasRow(t *testing.T) {
	s := New()
	ph := project.Draft{Name: "App", Description: "d", Prompt: "p"}.Placeholder("u1", base)
	s.OptimisticAdd(ph)

	s.Replace([]project.Project{rec("other", 1)})
	assert.ElementsMatch(t, []string{"other", ph.ID}, ids(s.Projects()))

	server := rec("real", 0)
	server.ProjectID = ph.ProjectID
	s.Replace([]project.Project{rec("other", 1), server})
	assert.ElementsMatch(t, []string{"other", "real"}, ids(s.Projects()))
}

func TestOnChange_CalledWithoutLock(t *testing.T) {
	var calls atomic.Int32
	var s *Store
	s = New(WithOnChange(func() {
		calls.Add(1)
		_ = s.Len() // must not deadlock
	}))

	s.Apply(ChangeEvent{Type: EventInsert, Record: rec("a", 1)})
	s.Apply(ChangeEvent{Type: EventDelete, OldID: "nope"})
	assert.Equal(t, int32(1), calls.Load(), "ignored events don't notify")
}

func TestMetrics_CountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(WithMetrics(m))

	s.Apply(ChangeEvent{Type: EventInsert, Record: withUpdated(rec("a", 1), 5)})
	s.Apply(ChangeEvent{Type: EventUpdate, Record: withUpdated(rec("a", 1), 2)})
	s.Replace(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("INSERT", "inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("UPDATE", "stale")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Projects))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := string(rune('a' + n))
				s.Apply(ChangeEvent{Type: EventUpdate, Record: withUpdated(rec(id, n), j)})
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}
