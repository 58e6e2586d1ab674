package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/runoshun/git-sprout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newResolver(git *testutil.MockGit, projects *testutil.MockProjectRepository) *ResolveProject {
	return NewResolveProject(git, projects, &testutil.MockClock{NowTime: testNow}, &testutil.MockLogger{}, "/work/app")
}

func TestResolveProject_DetectsCurrentRepository(t *testing.T) {
	git := testutil.NewMockGit()
	git.RepoInfoVal = domain.RepoInfo{Root: "/work/app", CommonDir: "/work/app/.git", Toplevel: "/work/app"}
	git.DefaultBranchVal = "trunk"
	projects := testutil.NewMockProjectRepository()

	out, err := newResolver(git, projects).Execute(context.Background(), ResolveProjectInput{})
	require.NoError(t, err)

	assert.Equal(t, "/work/app", out.Project.Path)
	assert.Equal(t, "app", out.Project.Name)
	assert.Equal(t, "trunk", out.Project.DefaultBranch)
	assert.Equal(t, testNow, out.Project.LastUsed)
	assert.Contains(t, projects.Projects, "/work/app")
}

func TestResolveProject_WorktreeResolvesToMainRoot(t *testing.T) {
	git := testutil.NewMockGit()
	git.RepoInfoVal = domain.RepoInfo{
		Root:      "/work/app",
		CommonDir: "/work/app/.git",
		Toplevel:  "/work/app/.git/sprout/worktrees/fix-auth-x",
	}
	projects := testutil.NewMockProjectRepository()

	out, err := newResolver(git, projects).Execute(context.Background(), ResolveProjectInput{})
	require.NoError(t, err)
	assert.Equal(t, "/work/app", out.Project.Path)
}

func TestResolveProject_RefreshKeepsTaskCount(t *testing.T) {
	git := testutil.NewMockGit()
	git.RepoInfoVal = domain.RepoInfo{Root: "/work/app"}
	projects := testutil.NewMockProjectRepository()
	projects.Projects["/work/app"] = &domain.Project{
		Path: "/work/app", Name: "app", DefaultBranch: "master", TaskCount: 3,
		LastUsed: testNow.Add(-time.Hour),
	}

	out, err := newResolver(git, projects).Execute(context.Background(), ResolveProjectInput{})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Project.TaskCount)
	assert.Equal(t, "main", out.Project.DefaultBranch)
	assert.Equal(t, testNow, projects.Projects["/work/app"].LastUsed)
}

func TestResolveProject_DefaultBranchUnknown(t *testing.T) {
	git := testutil.NewMockGit()
	git.RepoInfoVal = domain.RepoInfo{Root: "/work/app"}
	git.DefaultBranchErr = errors.New("empty repository")
	projects := testutil.NewMockProjectRepository()
	projects.Projects["/work/app"] = &domain.Project{Path: "/work/app", Name: "app", DefaultBranch: "develop"}
	logger := &testutil.MockLogger{}

	uc := NewResolveProject(git, projects, &testutil.MockClock{NowTime: testNow}, logger, "/work/app")
	out, err := uc.Execute(context.Background(), ResolveProjectInput{})
	require.NoError(t, err)

	assert.Equal(t, "develop", out.Project.DefaultBranch)
	assert.Equal(t, 1, logger.Count("WARN"))
}

func TestResolveProject_NotARepository(t *testing.T) {
	git := testutil.NewMockGit()
	git.RepoInfoErr = domain.ErrNotGitRepository
	projects := testutil.NewMockProjectRepository()
	uc := newResolver(git, projects)

	_, err := uc.Execute(context.Background(), ResolveProjectInput{})
	assert.ErrorIs(t, err, domain.ErrNotGitRepository)

	// Scope tolerates it for an empty reference
	project, err := uc.Scope(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, project)

	_, err = uc.Scope(context.Background(), "/elsewhere")
	assert.ErrorIs(t, err, domain.ErrNotGitRepository)
}

func TestResolveProject_ByName(t *testing.T) {
	git := testutil.NewMockGit()
	git.RepoInfoErr = domain.ErrNotGitRepository
	projects := testutil.NewMockProjectRepository()
	projects.Projects["/a/api"] = &domain.Project{Path: "/a/api", Name: "api", LastUsed: testNow.Add(-time.Hour)}
	projects.Projects["/b/api"] = &domain.Project{Path: "/b/api", Name: "api", LastUsed: testNow}

	out, err := newResolver(git, projects).Execute(context.Background(), ResolveProjectInput{Ref: "api"})
	require.NoError(t, err)
	assert.Equal(t, "/b/api", out.Project.Path)
	// Name lookups do not touch git
	assert.Equal(t, 0, projects.Saved)
}

func TestResolveProject_UnknownName(t *testing.T) {
	_, err := newResolver(testutil.NewMockGit(), testutil.NewMockProjectRepository()).
		Execute(context.Background(), ResolveProjectInput{Ref: "nope-not-a-dir"})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestIsPathRef(t *testing.T) {
	cwd := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(cwd, "checkout"), 0o755))

	assert.True(t, isPathRef(cwd, "/abs/path"))
	assert.True(t, isPathRef(cwd, "."))
	assert.True(t, isPathRef(cwd, "../sibling"))
	assert.True(t, isPathRef(cwd, "sub/dir"))
	assert.True(t, isPathRef(cwd, "checkout"))
	assert.False(t, isPathRef(cwd, "api"))
}

func TestListProjects(t *testing.T) {
	projects := testutil.NewMockProjectRepository()
	projects.Projects["/a"] = &domain.Project{Path: "/a", LastUsed: testNow.Add(-time.Hour)}
	projects.Projects["/b"] = &domain.Project{Path: "/b", LastUsed: testNow}

	out, err := NewListProjects(projects).Execute(context.Background(), ListProjectsInput{})
	require.NoError(t, err)
	require.Len(t, out.Projects, 2)
	assert.Equal(t, "/b", out.Projects[0].Path)
}
