package shared

import (
	"fmt"
	"strings"

	"github.com/runoshun/git-sprout/internal/domain"
)

// conflictNotificationTemplate is typed into a task's session when its integration conflicts.
const conflictNotificationTemplate = "Integration into %s stopped on a %s conflict. Resolve it in this workspace, commit, and run 'sprout merge %s' again."

// ConflictNotification returns the message sent to a running session after a conflict.
func ConflictNotification(task *domain.Task, kind string) string {
	return fmt.Sprintf(conflictNotificationTemplate, task.BaseBranch, kind, task.ShortID())
}

// RebaseRemedy returns the steps to resolve a rebase conflict by hand and retry.
func RebaseRemedy(task *domain.Task, onto string) string {
	var sb strings.Builder
	sb.WriteString("Resolve the conflict in the task workspace, then retry:\n")
	sb.WriteString(fmt.Sprintf("1. cd %s\n", task.WorkspacePath))
	sb.WriteString(fmt.Sprintf("2. git rebase %s\n", onto))
	sb.WriteString("3. Fix the conflict markers in the listed files\n")
	sb.WriteString("4. git add <files> && git rebase --continue\n")
	sb.WriteString(fmt.Sprintf("5. sprout merge %s", task.ShortID()))
	return sb.String()
}

// MergeRemedy returns the steps to resolve a merge conflict by hand and retry.
// The base is merged into the task branch so the retry integrates cleanly.
func MergeRemedy(task *domain.Task, onto string) string {
	var sb strings.Builder
	sb.WriteString("Resolve the conflict in the task workspace, then retry:\n")
	sb.WriteString(fmt.Sprintf("1. cd %s\n", task.WorkspacePath))
	sb.WriteString(fmt.Sprintf("2. git merge %s\n", onto))
	sb.WriteString("3. Fix the conflict markers in the listed files\n")
	sb.WriteString("4. git add <files> && git commit\n")
	sb.WriteString(fmt.Sprintf("5. sprout merge %s", task.ShortID()))
	return sb.String()
}

// RetryRemedy returns a remedy that only asks to fix a precondition and retry.
func RetryRemedy(task *domain.Task, fix string) string {
	return fmt.Sprintf("%s, then run: sprout merge %s", fix, task.ShortID())
}
