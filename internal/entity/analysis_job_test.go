package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addyspiller/prisere/constants"
)

func newJob() *AnalysisJob {
	return NewAnalysisJob("user_a", "uploads/user_a/base.pdf", "uploads/user_a/renew.pdf", "base.pdf", "renew.pdf", nil, nil)
}

func TestLifecycleHappyPath(t *testing.T) {
	j := newJob()
	assert.Equal(t, constants.JobStatusPending, j.Status)
	assert.Nil(t, j.StartedAt)

	require.NoError(t, j.MarkProcessing())
	assert.Equal(t, constants.JobStatusProcessing, j.Status)
	require.NotNil(t, j.StartedAt)

	require.NoError(t, j.UpdateProgress(50, "Analyzing policy differences..."))
	assert.Equal(t, 50, j.Progress)
	assert.Equal(t, "Analyzing policy differences...", j.StatusMessage)

	require.NoError(t, j.MarkCompleted())
	assert.Equal(t, constants.JobStatusCompleted, j.Status)
	assert.Equal(t, 100, j.Progress)
	require.NotNil(t, j.CompletedAt)
}

func TestNoTransitionSkipsProcessing(t *testing.T) {
	j := newJob()
	assert.Error(t, j.MarkCompleted())
	assert.Error(t, j.MarkFailed("boom"))
	assert.Error(t, j.UpdateProgress(10, "x"))
	assert.Equal(t, constants.JobStatusPending, j.Status)
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	j := newJob()
	require.NoError(t, j.MarkProcessing())
	require.NoError(t, j.MarkFailed("download failed"))

	assert.Error(t, j.MarkProcessing())
	assert.Error(t, j.MarkCompleted())
	assert.Error(t, j.UpdateProgress(90, "late"))
	assert.Equal(t, constants.JobStatusFailed, j.Status)
}

func TestFailureKeepsLastProgress(t *testing.T) {
	j := newJob()
	require.NoError(t, j.MarkProcessing())
	require.NoError(t, j.UpdateProgress(40, "Extracting renewal text..."))
	require.NoError(t, j.MarkFailed("engine unreachable"))

	assert.Equal(t, 40, j.Progress)
	require.NotNil(t, j.ErrorMessage)
	assert.Equal(t, "engine unreachable", *j.ErrorMessage)
	require.NotNil(t, j.CompletedAt)
}

func TestProgressIsMonotonicAndClamped(t *testing.T) {
	j := newJob()
	require.NoError(t, j.MarkProcessing())
	require.NoError(t, j.UpdateProgress(30, ""))
	require.NoError(t, j.UpdateProgress(20, ""))
	assert.Equal(t, 30, j.Progress, "progress must never move backwards")

	require.NoError(t, j.UpdateProgress(250, ""))
	assert.Equal(t, 100, j.Progress)
}

func TestEstimatedCompletion(t *testing.T) {
	j := newJob()
	now := time.Now().UTC()

	assert.Nil(t, j.EstimatedCompletion(now), "pending jobs have no estimate")

	require.NoError(t, j.MarkProcessing())
	started := now.Add(-30 * time.Second)
	j.StartedAt = &started
	require.NoError(t, j.UpdateProgress(25, ""))

	eta := j.EstimatedCompletion(now)
	require.NotNil(t, eta)
	// 30s elapsed at 25% -> 120s total -> 90s remaining.
	assert.InDelta(t, 90, eta.Sub(now).Seconds(), 1.0)

	require.NoError(t, j.MarkCompleted())
	assert.Equal(t, j.CompletedAt, j.EstimatedCompletion(now))
}

func TestProjectionHidesErrorUnlessFailed(t *testing.T) {
	j := newJob()
	msg := "stale"
	j.ErrorMessage = &msg

	proj := j.Project(time.Now().UTC())
	assert.Nil(t, proj.ErrorMessage)

	require.NoError(t, j.MarkProcessing())
	require.NoError(t, j.MarkFailed("blob missing"))
	proj = j.Project(time.Now().UTC())
	require.NotNil(t, proj.ErrorMessage)
	assert.Equal(t, "blob missing", *proj.ErrorMessage)
}
