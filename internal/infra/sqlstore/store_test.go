package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "sprout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTask(id, name, project string, created time.Time) *domain.Task {
	return &domain.Task{
		ID:            id,
		ProjectPath:   project,
		ProjectName:   filepath.Base(project),
		Name:          name,
		Description:   "do " + name,
		WorkspacePath: "/ws/" + name,
		Branch:        "sprout/" + name,
		BaseBranch:    "main",
		Status:        domain.StatusActive,
		CreatedAt:     created,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	task := newTask("aaaa-1111", "fix-auth", "/repo", created)
	task.Metadata = domain.TaskMetadata{SessionHandle: "sprout-aaaa-111", Agent: "claude", Provider: "tmux"}
	require.NoError(t, s.Create(ctx, task))

	got, err := s.Get(ctx, "aaaa-1111")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "fix-auth", got.Name)
	assert.Equal(t, "do fix-auth", got.Description)
	assert.Equal(t, "/ws/fix-auth", got.WorkspacePath)
	assert.Equal(t, "sprout/fix-auth", got.Branch)
	assert.Equal(t, "main", got.BaseBranch)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.MergedAt)
	// Metadata round-trips without loss
	assert.Equal(t, task.Metadata, got.Metadata)
}

func TestStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_CreateDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTask("dup", "a", "/repo", time.Now())))
	assert.Error(t, s.Create(ctx, newTask("dup", "b", "/repo", time.Now())))

	// The failed insert did not bump the count
	p, err := s.GetProject(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TaskCount)
}

func TestStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := newTask("id-1", "fix", "/repo", time.Now())
	require.NoError(t, s.Create(ctx, task))

	now := time.Now()
	require.NoError(t, task.MarkMerged(now))
	task.Metadata.SessionHandle = ""
	require.NoError(t, s.Update(ctx, task))

	got, err := s.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMerged, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.MergedAt)
	assert.True(t, now.Equal(*got.MergedAt))
}

func TestStore_UpdateMissing(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(context.Background(), newTask("nope", "x", "/repo", time.Now()))
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	old := newTask("0001-a", "old", "/repo", base)
	mid := newTask("0002-b", "mid", "/other", base.Add(time.Minute))
	newest := newTask("0003-c", "new", "/repo", base.Add(2*time.Minute))
	newest.Status = domain.StatusCompleted
	for _, task := range []*domain.Task{old, mid, newest} {
		require.NoError(t, s.Create(ctx, task))
	}

	tests := []struct {
		name   string
		filter domain.TaskFilter
		want   []string
	}{
		{"all newest first", domain.TaskFilter{}, []string{"0003-c", "0002-b", "0001-a"}},
		{"by project", domain.TaskFilter{ProjectPath: "/repo"}, []string{"0003-c", "0001-a"}},
		{"by status", domain.TaskFilter{Statuses: []domain.Status{domain.StatusActive}}, []string{"0002-b", "0001-a"}},
		{"by statuses", domain.TaskFilter{Statuses: []domain.Status{domain.StatusActive, domain.StatusCompleted}, ProjectPath: "/repo"}, []string{"0003-c", "0001-a"}},
		{"by name", domain.TaskFilter{Ref: "mid"}, []string{"0002-b"}},
		{"by id prefix", domain.TaskFilter{Ref: "000"}, []string{"0003-c", "0002-b", "0001-a"}},
		{"by full id", domain.TaskFilter{Ref: "0001-a"}, []string{"0001-a"}},
		{"name prefix is not a match", domain.TaskFilter{Ref: "ol"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, task := range tasks {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestStore_DeleteDecrementsCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newTask("a", "a", "/repo", time.Now())))
	require.NoError(t, s.Create(ctx, newTask("b", "b", "/repo", time.Now())))

	p, err := s.GetProject(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 2, p.TaskCount)

	require.NoError(t, s.Delete(ctx, "a"))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	p, err = s.GetProject(ctx, "/repo")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TaskCount)

	assert.ErrorIs(t, s.Delete(ctx, "a"), domain.ErrTaskNotFound)
}

func TestStore_SaveProjectKeepsTaskCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveProject(ctx, &domain.Project{Path: "/repo", Name: "repo", DefaultBranch: "main", LastUsed: first}))
	require.NoError(t, s.Create(ctx, newTask("a", "a", "/repo", first)))

	later := first.Add(time.Hour)
	require.NoError(t, s.SaveProject(ctx, &domain.Project{Path: "/repo", Name: "repo", DefaultBranch: "trunk", LastUsed: later, TaskCount: 99}))

	p, err := s.GetProject(ctx, "/repo")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "trunk", p.DefaultBranch)
	assert.Equal(t, 1, p.TaskCount)
	assert.True(t, later.Equal(p.LastUsed))
}

func TestStore_FindAndListProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveProject(ctx, &domain.Project{Path: "/a/app", Name: "app", LastUsed: base}))
	require.NoError(t, s.SaveProject(ctx, &domain.Project{Path: "/b/app", Name: "app", LastUsed: base.Add(time.Hour)}))
	require.NoError(t, s.SaveProject(ctx, &domain.Project{Path: "/c/lib", Name: "lib", LastUsed: base.Add(2 * time.Hour)}))

	found, err := s.FindProjects(ctx, "app")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "/b/app", found[0].Path)

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "/c/lib", all[0].Path)

	missing, err := s.GetProject(ctx, "/nowhere")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprout.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, newTask("persist", "p", "/repo", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "persist")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p", got.Name)
}
