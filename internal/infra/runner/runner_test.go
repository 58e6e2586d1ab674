package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-sprout/internal/domain"
)

func TestClient_Run_Success(t *testing.T) {
	dir := t.TempDir()
	client := NewClient()

	err := client.Run(context.Background(), dir, `echo "test" > output.txt`, nil)

	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(dir, "output.txt"))
	require.NoError(t, err)
	assert.Equal(t, "test\n", string(content))
}

func TestClient_Run_Env(t *testing.T) {
	dir := t.TempDir()
	task := &domain.Task{
		ID:          "4f1d2c3b-0000",
		Name:        "fix-auth",
		Branch:      "sprout/fix-auth",
		BaseBranch:  "main",
		ProjectPath: "/repo",
	}

	err := NewClient().Run(context.Background(), dir,
		`printf '%s %s %s %s %s' "$SPROUT_TASK_ID" "$SPROUT_TASK_NAME" "$SPROUT_BRANCH" "$SPROUT_BASE_BRANCH" "$SPROUT_REPO_ROOT" > env.txt`,
		task.Env())

	require.NoError(t, err)
	content, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "4f1d2c3b-0000 fix-auth sprout/fix-auth main /repo", string(content))
}

func TestClient_Run_ScriptError(t *testing.T) {
	err := NewClient().Run(context.Background(), t.TempDir(), `echo "broken" >&2; exit 1`, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute script")
	assert.Contains(t, err.Error(), "broken")
}

func TestClient_Run_InvalidDirectory(t *testing.T) {
	err := NewClient().Run(context.Background(), "/nonexistent/directory/path", `echo "test"`, nil)

	assert.Error(t, err)
}

func TestClient_Run_Canceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewClient().Run(ctx, t.TempDir(), `sleep 5`, nil)

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}
