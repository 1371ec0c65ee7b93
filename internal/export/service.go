package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/addyspiller/prisere/internal/repository"
)

// Service produces XLSX bytes summarizing a user's analyses.
type Service struct {
	jobs   repository.AnalysisJobRepository
	logger *slog.Logger
}

func NewService(jobs repository.AnalysisJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportAnalysesXLSX returns an XLSX workbook (as bytes) listing every
// analysis the user owns, newest first.
func (s *Service) ExportAnalysesXLSX(ctx context.Context, userID string) ([]byte, error) {
	start := time.Now()

	items, err := s.jobs.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Analyses"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	defaultIndex, _ := f.GetSheetIndex("Sheet1")
	if defaultIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Created",
		"Status",
		"Baseline Document",
		"Renewal Document",
		"Company",
		"Total Changes",
		"Completed",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, it := range items {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, it.CreatedAt.Format("2006-01-02 15:04"))
		write(2, it.Status)
		write(3, it.BaselineFilename)
		write(4, it.RenewalFilename)
		if it.CompanyName != nil {
			write(5, *it.CompanyName)
		} else {
			write(5, "")
		}
		if it.TotalChanges != nil {
			write(6, *it.TotalChanges)
		} else {
			write(6, "")
		}
		if it.CompletedAt != nil {
			write(7, it.CompletedAt.Format("2006-01-02 15:04"))
		} else {
			write(7, "")
		}

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "D", 36)
	_ = f.SetColWidth(sheet, "E", "E", 24)
	_ = f.SetColWidth(sheet, "F", "F", 14)
	_ = f.SetColWidth(sheet, "G", "G", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID,
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
