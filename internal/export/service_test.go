package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/addyspiller/prisere/internal/entity"
	"github.com/addyspiller/prisere/internal/repository"
)

func TestExportAnalysesXLSX(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	job := entity.NewAnalysisJob("alice",
		"uploads/alice/b.pdf", "uploads/alice/r.pdf",
		"baseline_2025.pdf", "renewal_2026.pdf", nil, nil)
	require.NoError(t, store.Create(ctx, job))
	require.NoError(t, store.MarkProcessing(ctx, job.ID, 5, ""))
	require.NoError(t, store.Complete(ctx, job.ID, &entity.AnalysisResult{
		JobID: job.ID, Summary: "s", TotalChanges: 3, ModelVersion: "m",
	}))

	svc := NewService(store, nil)
	data, err := svc.ExportAnalysesXLSX(ctx, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Analyses")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Created", rows[0][0])
	assert.Equal(t, "completed", rows[1][1])
	assert.Equal(t, "baseline_2025.pdf", rows[1][2])
	assert.Equal(t, "3", rows[1][5])
}

func TestExportAnalysesXLSXEmpty(t *testing.T) {
	svc := NewService(repository.NewMemoryStore(), nil)
	data, err := svc.ExportAnalysesXLSX(context.Background(), "nobody")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Analyses")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
