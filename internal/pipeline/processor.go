package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/addyspiller/prisere/internal/analysis"
	"github.com/addyspiller/prisere/internal/entity"
	"github.com/addyspiller/prisere/internal/extract"
	"github.com/addyspiller/prisere/internal/llm"
	"github.com/addyspiller/prisere/internal/repository"
	"github.com/addyspiller/prisere/internal/storage"
)

// Processor runs one analysis job end to end: download both documents,
// extract their text, ask the comparison engine, persist the result. Uploaded
// documents are removed from storage when the run ends, success or not.
type Processor struct {
	jobs      repository.AnalysisJobRepository
	blobs     storage.BlobStore
	extractor extract.TextExtractor
	engine    llm.ComparisonEngine
	log       *slog.Logger
}

func NewProcessor(
	jobs repository.AnalysisJobRepository,
	blobs storage.BlobStore,
	extractor extract.TextExtractor,
	engine llm.ComparisonEngine,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{jobs: jobs, blobs: blobs, extractor: extractor, engine: engine, log: logger}
}

// ProcessJob drives the whole pipeline for one job. A vanished job row is
// logged and dropped; every other failure lands the job in the failed state
// with its message. Panics inside a stage fail the job instead of killing the
// process.
func (p *Processor) ProcessJob(ctx context.Context, jobID uuid.UUID) {
	start := time.Now()
	log := p.log.With("job_id", jobID)

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		log.Error("pipeline.load_job.failed", "error", err)
		return
	}

	// Documents are single-use; drop them whatever happens.
	defer p.cleanup(job.BaselineKey, job.RenewalKey, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline.panic", "panic", r)
			p.fail(ctx, jobID, fmt.Sprintf("Analysis failed: internal error: %v", r), log)
		}
	}()

	if err := p.run(ctx, job, start, log); err != nil {
		p.fail(ctx, jobID, "Analysis failed: "+err.Error(), log)
	}
}

func (p *Processor) run(ctx context.Context, job *entity.AnalysisJob, start time.Time, log *slog.Logger) error {
	jobID := job.ID
	if err := p.jobs.MarkProcessing(ctx, jobID, 5, "Starting analysis..."); err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	log.Info("pipeline.start", "baseline_key", job.BaselineKey, "renewal_key", job.RenewalKey)

	p.progress(ctx, jobID, 10, "Downloading baseline policy...", log)
	baselineBytes, err := p.blobs.Download(ctx, job.BaselineKey)
	if err != nil {
		return fmt.Errorf("download baseline document: %w", err)
	}
	log.Info("pipeline.download.baseline", "bytes", len(baselineBytes))

	p.progress(ctx, jobID, 20, "Downloading renewal policy...", log)
	renewalBytes, err := p.blobs.Download(ctx, job.RenewalKey)
	if err != nil {
		return fmt.Errorf("download renewal document: %w", err)
	}
	log.Info("pipeline.download.renewal", "bytes", len(renewalBytes))

	p.progress(ctx, jobID, 30, "Extracting text from baseline policy...", log)
	baseline, err := p.extractor.Extract(ctx, baselineBytes)
	if err != nil {
		return fmt.Errorf("extract baseline text: %w", err)
	}
	log.Info("pipeline.extract.baseline", "chars", len(baseline.Text), "pages", baseline.PageCount)

	p.progress(ctx, jobID, 40, "Extracting text from renewal policy...", log)
	renewal, err := p.extractor.Extract(ctx, renewalBytes)
	if err != nil {
		return fmt.Errorf("extract renewal text: %w", err)
	}
	log.Info("pipeline.extract.renewal", "chars", len(renewal.Text), "pages", renewal.PageCount)

	p.progress(ctx, jobID, 50, "Analyzing policy differences...", log)
	cmp, _, err := p.engine.Compare(ctx, llm.CompareRequest{
		BaselineText: baseline.Text,
		RenewalText:  renewal.Text,
		CompanyName:  deref(job.CompanyName),
		PolicyType:   deref(job.PolicyType),
	})
	if err != nil {
		return fmt.Errorf("compare policies: %w", err)
	}
	log.Info("pipeline.compare.ok", "changes", len(cmp.Changes))

	p.progress(ctx, jobID, 90, "Saving analysis results...", log)
	processingTime := int(time.Since(start).Seconds())
	result := analysis.BuildResult(jobID, cmp, p.engine.Model(), processingTime)
	if err := p.jobs.Complete(ctx, jobID, result); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	log.Info("pipeline.done", "total_changes", result.TotalChanges, "elapsed_s", processingTime)
	return nil
}

// progress failures are logged but never abort the pipeline; a checkpoint is
// cosmetic next to the analysis itself.
func (p *Processor) progress(ctx context.Context, jobID uuid.UUID, pct int, message string, log *slog.Logger) {
	if err := p.jobs.UpdateProgress(ctx, jobID, pct, message); err != nil {
		log.Warn("pipeline.progress.failed", "progress", pct, "error", err)
	}
}

func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, message string, log *slog.Logger) {
	log.Error("pipeline.failed", "error_message", message)
	if err := p.jobs.MarkFailed(ctx, jobID, message); err != nil {
		log.Error("pipeline.mark_failed.failed", "error", err)
	}
}

// cleanup runs with its own short deadline so a cancelled job context cannot
// leak documents in storage.
func (p *Processor) cleanup(baselineKey, renewalKey string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range []string{baselineKey, renewalKey} {
		if key == "" {
			continue
		}
		if err := p.blobs.Delete(ctx, key); err != nil {
			log.Error("pipeline.cleanup.failed", "key", key, "error", err)
			continue
		}
		log.Info("pipeline.cleanup.ok", "key", key)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
