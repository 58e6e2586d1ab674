package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/runoshun/git-sprout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *lifecycleFixture) withSession(running bool) *domain.Task {
	task := f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)
	task.Metadata.SessionHandle = "sprout-4f1d2c3b"
	f.sessions.IsRunningVal = running
	return task
}

func TestAttachSession_Execute(t *testing.T) {
	f := newLifecycleFixture()
	f.withSession(true)

	_, err := NewAttachSession(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), AttachSessionInput{Ref: "fix-auth"})

	require.NoError(t, err)
	assert.Equal(t, "sprout-4f1d2c3b", f.sessions.AttachedName)
}

func TestAttachSession_Execute_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handle  string
		running bool
	}{
		{"no handle", "", true},
		{"session gone", "sprout-4f1d2c3b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLifecycleFixture()
			task := f.withSession(tt.running)
			task.Metadata.SessionHandle = tt.handle

			_, err := NewAttachSession(f.resolver(), f.tasks, f.sessions).
				Execute(context.Background(), AttachSessionInput{Ref: "fix-auth"})

			assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
			assert.False(t, f.sessions.AttachCalled)
		})
	}
}

func TestPeekSession_Execute_DefaultLines(t *testing.T) {
	f := newLifecycleFixture()
	f.withSession(true)
	f.sessions.PeekOutput = "All tests pass."

	out, err := NewPeekSession(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), PeekSessionInput{Ref: "4f1d"})

	require.NoError(t, err)
	assert.Equal(t, "All tests pass.", out.Output)
	assert.Equal(t, DefaultPeekLines, f.sessions.PeekLines)
}

func TestPeekSession_Execute_Lines(t *testing.T) {
	f := newLifecycleFixture()
	f.withSession(true)

	_, err := NewPeekSession(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), PeekSessionInput{Ref: "fix-auth", Lines: 5})

	require.NoError(t, err)
	assert.Equal(t, 5, f.sessions.PeekLines)
}

func TestPeekSession_Execute_Error(t *testing.T) {
	f := newLifecycleFixture()
	f.withSession(true)
	f.sessions.PeekErr = errors.New("capture failed")

	_, err := NewPeekSession(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), PeekSessionInput{Ref: "fix-auth"})

	assert.ErrorContains(t, err, "peek session")
}

func TestSendKeys_Execute(t *testing.T) {
	f := newLifecycleFixture()
	f.withSession(true)

	out, err := NewSendKeys(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), SendKeysInput{Ref: "fix-auth", Text: "continue", Submit: true})

	require.NoError(t, err)
	assert.Equal(t, "sprout-4f1d2c3b", out.Session)
	assert.Equal(t, "continue", f.sessions.SentText)
	assert.True(t, f.sessions.SentSubmit)
}

func TestSendKeys_Execute_CompletedTask(t *testing.T) {
	f := newLifecycleFixture()
	task := f.withSession(true)
	task.Status = domain.StatusCompleted

	_, err := NewSendKeys(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), SendKeysInput{Ref: "fix-auth", Text: "y"})

	require.NoError(t, err)
	assert.False(t, f.sessions.SentSubmit)
}

func TestSendKeys_Execute_Empty(t *testing.T) {
	f := newLifecycleFixture()
	f.withSession(true)

	_, err := NewSendKeys(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), SendKeysInput{Ref: "fix-auth"})

	assert.Error(t, err)
	assert.False(t, f.sessions.SendCalled)
}

func TestSendKeys_Execute_NoSession(t *testing.T) {
	f := newLifecycleFixture()
	f.add("4f1d2c3b-0000", "fix-auth", domain.StatusActive)

	_, err := NewSendKeys(f.resolver(), f.tasks, f.sessions).
		Execute(context.Background(), SendKeysInput{Ref: "fix-auth", Text: "hi"})

	assert.ErrorIs(t, err, domain.ErrSessionUnavailable)
}
