package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addyspiller/prisere/internal/common"
	"github.com/addyspiller/prisere/internal/entity"
	"github.com/addyspiller/prisere/internal/extract"
	"github.com/addyspiller/prisere/internal/llm"
	"github.com/addyspiller/prisere/internal/repository"
	"github.com/addyspiller/prisere/internal/storage"
)

type fakeExtractor struct {
	err   error
	panic bool
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte) (extract.DocumentText, error) {
	if f.panic {
		panic("extractor blew up")
	}
	if f.err != nil {
		return extract.DocumentText{}, f.err
	}
	return extract.DocumentText{Text: "text of " + string(data), PageCount: 2}, nil
}

type fakeEngine struct {
	cmp llm.Comparison
	err error
}

func (f *fakeEngine) Compare(_ context.Context, _ llm.CompareRequest) (llm.Comparison, []byte, error) {
	if f.err != nil {
		return llm.Comparison{}, nil, f.err
	}
	return f.cmp, nil, nil
}

func (f *fakeEngine) Model() string { return "fake-model" }

type fixture struct {
	jobs      *repository.MemoryStore
	blobs     *storage.MemoryStore
	extractor *fakeExtractor
	engine    *fakeEngine
	proc      *Processor
	job       *entity.AnalysisJob
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		jobs:      repository.NewMemoryStore(),
		blobs:     storage.NewMemoryStore(),
		extractor: &fakeExtractor{},
		engine: &fakeEngine{cmp: llm.Comparison{
			Summary:           "Premium increased.",
			Changes:           []map[string]any{{"category": "premium", "confidence": 0.9}},
			PremiumComparison: map[string]any{"baseline_premium": 1000.0},
			BrokerQuestions:   []string{"Why?"},
		}},
	}
	f.proc = NewProcessor(f.jobs, f.blobs, f.extractor, f.engine, nil)

	f.job = entity.NewAnalysisJob("alice",
		"uploads/alice/baseline.pdf", "uploads/alice/renewal.pdf",
		"baseline.pdf", "renewal.pdf", nil, nil)
	require.NoError(t, f.jobs.Create(context.Background(), f.job))
	f.blobs.Put("uploads/alice/baseline.pdf", []byte("baseline"), "application/pdf")
	f.blobs.Put("uploads/alice/renewal.pdf", []byte("renewal"), "application/pdf")
	return f
}

func (f *fixture) jobState(t *testing.T) *entity.AnalysisJob {
	t.Helper()
	job, err := f.jobs.GetByID(context.Background(), f.job.ID)
	require.NoError(t, err)
	return job
}

func TestProcessJobCompletes(t *testing.T) {
	f := newFixture(t)
	f.proc.ProcessJob(context.Background(), f.job.ID)

	job := f.jobState(t)
	assert.Equal(t, "completed", string(job.Status))
	assert.Equal(t, 100, job.Progress)
	assert.Nil(t, job.ErrorMessage)

	res, err := f.jobs.GetByJobID(context.Background(), f.job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalChanges)
	assert.Equal(t, "fake-model", res.ModelVersion)
	require.NotNil(t, res.ConfidenceScore)
	assert.InDelta(t, 0.9, *res.ConfidenceScore, 1e-9)

	// Both documents cleaned up.
	assert.Empty(t, f.blobs.Keys())
}

func TestProcessJobMissingJobIsNoop(t *testing.T) {
	f := newFixture(t)
	f.proc.ProcessJob(context.Background(), uuid.New())

	// The real job is untouched and its documents remain.
	assert.Equal(t, "pending", string(f.jobState(t).Status))
	assert.Len(t, f.blobs.Keys(), 2)
}

func TestProcessJobDownloadFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.blobs.Delete(context.Background(), "uploads/alice/renewal.pdf"))

	f.proc.ProcessJob(context.Background(), f.job.ID)

	job := f.jobState(t)
	assert.Equal(t, "failed", string(job.Status))
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "download renewal document")

	// Progress stays where the pipeline stopped.
	assert.Equal(t, 20, job.Progress)

	_, err := f.jobs.GetByJobID(context.Background(), f.job.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, f.blobs.Keys())
}

func TestProcessJobExtractFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.err = errors.New("no extractable text")

	f.proc.ProcessJob(context.Background(), f.job.ID)

	job := f.jobState(t)
	assert.Equal(t, "failed", string(job.Status))
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "extract baseline text")
	assert.Empty(t, f.blobs.Keys())
}

func TestProcessJobEngineFailure(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errors.New("engine status 429")

	f.proc.ProcessJob(context.Background(), f.job.ID)

	job := f.jobState(t)
	assert.Equal(t, "failed", string(job.Status))
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "compare policies")
	assert.Equal(t, 50, job.Progress)
	assert.Empty(t, f.blobs.Keys())
}

func TestProcessJobRecoversFromPanic(t *testing.T) {
	f := newFixture(t)
	f.extractor.panic = true

	f.proc.ProcessJob(context.Background(), f.job.ID)

	job := f.jobState(t)
	assert.Equal(t, "failed", string(job.Status))
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "internal error")
	assert.Empty(t, f.blobs.Keys())
}
