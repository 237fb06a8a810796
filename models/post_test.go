package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    PostStatus
		to      PostStatus
		allowed bool
	}{
		{"approve draft", PostDraft, PostApproved, true},
		{"reject draft", PostDraft, PostRejected, true},
		{"publish approved", PostApproved, PostPosted, true},
		{"schedule draft", PostDraft, PostScheduled, true},
		{"retry failed", PostFailed, PostPosted, true},
		{"cancel schedule", PostScheduled, PostDraft, true},
		{"republish posted", PostPosted, PostPosted, false},
		{"approve rejected", PostRejected, PostApproved, false},
		{"publish rejected", PostRejected, PostPosted, false},
		{"publish scheduled", PostScheduled, PostPosted, false},
		{"approve approved", PostApproved, PostApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &Post{Status: tt.from}
			err := post.TransitionTo(tt.to, time.Now())
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, post.Status)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
			assert.Equal(t, tt.from, post.Status)
		})
	}
}

func TestPostTransitionKeepsTimestampsConsistent(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	post := &Post{Status: PostApproved}
	require.NoError(t, post.TransitionTo(PostPosted, now))
	require.NotNil(t, post.PostedAt)
	assert.Equal(t, now, *post.PostedAt)

	scheduledAt := now.Add(48 * time.Hour)
	scheduled := &Post{Status: PostScheduled, ScheduledTime: &scheduledAt, PlatformPostID: "abc"}
	require.NoError(t, scheduled.TransitionTo(PostDraft, now))
	assert.Nil(t, scheduled.ScheduledTime)
	assert.Empty(t, scheduled.PlatformPostID)
	assert.Nil(t, scheduled.PostedAt)
}

func TestParsePlatform(t *testing.T) {
	p, ok := ParsePlatform(" Instagram ")
	assert.True(t, ok)
	assert.Equal(t, PlatformInstagram, p)

	_, ok = ParsePlatform("myspace")
	assert.False(t, ok)

	assert.Equal(t, "LinkedIn", PlatformLinkedIn.DisplayName())
	assert.Equal(t, "Twitter", PlatformTwitter.DisplayName())
}
