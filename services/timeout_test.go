package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krshsl/brandcast/models"
)

func TestTimeoutAbandonsIdleInterviews(t *testing.T) {
	engine, repo, _ := newTestEngine(nil, nil)
	ctx := context.Background()

	idle, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)
	active, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	clock := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	timeouts := NewInterviewTimeoutService(engine, 10*time.Minute)
	timeouts.now = func() time.Time { return clock }

	timeouts.Touch(idle.ID)
	clock = clock.Add(8 * time.Minute)
	timeouts.Touch(active.ID)
	clock = clock.Add(5 * time.Minute)

	timeouts.checkTimeouts(ctx)

	stored, err := repo.GetInterview(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewFailed, stored.Status)

	stored, err = repo.GetInterview(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewInProgress, stored.Status)
	assert.Equal(t, 1, timeouts.Tracked())
}

func TestTimeoutIgnoresFinishedInterviews(t *testing.T) {
	engine, repo, _ := newTestEngine(nil, nil)
	ctx := context.Background()

	interview, _, err := engine.StartInterview(ctx, testOwnerID)
	require.NoError(t, err)

	clock := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	timeouts := NewInterviewTimeoutService(engine, time.Minute)
	timeouts.now = func() time.Time { return clock }
	timeouts.Touch(interview.ID)

	_, err = engine.CompleteInterview(ctx, interview.ID)
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	timeouts.checkTimeouts(ctx)

	stored, err := repo.GetInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, stored.Status)
	assert.Zero(t, timeouts.Tracked())

	var nilService *InterviewTimeoutService
	assert.NotPanics(t, func() {
		nilService.Touch("x")
		nilService.Forget("x")
	})
}
