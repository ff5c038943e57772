package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

func setupJobs(t *testing.T) interfaces.JobStore {
	t.Helper()
	db := setupTestDB(t)
	return NewJobStorage(db, common.GetLogger(), 24*time.Hour)
}

func TestJobSaveAndGet(t *testing.T) {
	ctx := context.Background()
	jobs := setupJobs(t)

	job := models.NewGenerationJob("Structured logging in Go", models.JobOptions{
		Model:       "gpt-4o-mini",
		WordCount:   1200,
		Keywords:    []string{"logging", "go"},
		GenerateSEO: true,
	})
	job.Data.Outline = "1. Intro\n2. Log levels"
	job.Usage = models.TokenUsage{PromptTokens: 120, CompletionTokens: 380, TotalTokens: 500, CostUSD: 0.00031}

	require.NoError(t, jobs.SaveJob(ctx, job))

	loaded, err := jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Topic, loaded.Topic)
	assert.Equal(t, models.StepOutline, loaded.CurrentStep)
	assert.Equal(t, job.Data.Outline, loaded.Data.Outline)
	assert.Equal(t, job.Usage, loaded.Usage)
}

func TestJobGetMissing(t *testing.T) {
	ctx := context.Background()
	jobs := setupJobs(t)

	_, err := jobs.GetJob(ctx, "job_missing")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestJobSaveOverwritesState(t *testing.T) {
	ctx := context.Background()
	jobs := setupJobs(t)

	job := models.NewGenerationJob("Worker pools", models.JobOptions{Model: "gpt-4o-mini"})
	require.NoError(t, jobs.SaveJob(ctx, job))

	job.MarkStepDone(models.StepOutline, models.StepContent)
	job.Data.Outline = "outline text"
	require.NoError(t, jobs.SaveJob(ctx, job))

	loaded, err := jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepContent, loaded.CurrentStep)
	assert.Equal(t, models.JobStatusInProgress, loaded.Status)
	assert.Equal(t, []models.StepType{models.StepOutline}, loaded.StepsCompleted)
}

func TestJobDelete(t *testing.T) {
	ctx := context.Background()
	jobs := setupJobs(t)

	job := models.NewGenerationJob("Context cancellation", models.JobOptions{Model: "gpt-4o-mini"})
	require.NoError(t, jobs.SaveJob(ctx, job))
	require.NoError(t, jobs.DeleteJob(ctx, job.ID))

	_, err := jobs.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}
