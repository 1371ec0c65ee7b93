package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/addyspiller/prisere/internal/common"
)

// PopplerConfig points at the poppler-utils binaries.
type PopplerConfig struct {
	Pdftotext string
	Pdfinfo   string
}

func DefaultPopplerConfig() PopplerConfig {
	return PopplerConfig{Pdftotext: "pdftotext", Pdfinfo: "pdfinfo"}
}

// PopplerExtractor extracts policy text with pdftotext, falling back to
// pdfinfo metadata for the page count when the text has no page breaks.
type PopplerExtractor struct {
	cfg    PopplerConfig
	runner Runner
	log    *slog.Logger
}

func NewPopplerExtractor(cfg PopplerConfig, logger *slog.Logger) *PopplerExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerExtractor{cfg: cfg, runner: execRunner{}, log: logger}
}

// NewPopplerExtractorWithRunner injects a runner; tests use it.
func NewPopplerExtractorWithRunner(cfg PopplerConfig, r Runner, logger *slog.Logger) *PopplerExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PopplerExtractor{cfg: cfg, runner: r, log: logger}
}

func (e *PopplerExtractor) Extract(ctx context.Context, data []byte) (DocumentText, error) {
	if err := ValidatePDFHeader(data); err != nil {
		return DocumentText{}, err
	}

	tmp, err := os.CreateTemp("", "prisere-doc-*.pdf")
	if err != nil {
		return DocumentText{}, common.WrapError(err, "create temp document")
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return DocumentText{}, common.WrapError(err, "write temp document")
	}
	if err := tmp.Close(); err != nil {
		return DocumentText{}, common.WrapError(err, "close temp document")
	}

	doc := e.pdfInfo(ctx, path)
	if doc.Encrypted {
		return doc, common.NewAppError("DOCUMENT_ENCRYPTED",
			"document is password protected", common.ErrInvalidInput)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		e.log.Error("extract.pdftotext.failed", "error", err, "stderr", truncate(string(errb), 2<<10))
		return doc, common.WrapError(err, "extract document text")
	}

	doc.Text = string(out)
	if doc.PageCount == 0 {
		// Form feed is the pdftotext page separator.
		doc.PageCount = 1 + strings.Count(doc.Text, "\f")
	}
	if strings.TrimSpace(doc.Text) == "" {
		return doc, common.NewAppError("DOCUMENT_EMPTY",
			"no extractable text in document (scanned image?)", common.ErrInvalidInput)
	}

	e.log.Debug("extract.ok", "pages", doc.PageCount, "chars", len(doc.Text))
	return doc, nil
}

// pdfInfo is best effort; a missing pdfinfo binary only loses metadata.
func (e *PopplerExtractor) pdfInfo(ctx context.Context, path string) DocumentText {
	var doc DocumentText
	out, _, err := e.runner.Run(ctx, e.cfg.Pdfinfo, path)
	if err != nil {
		e.log.Warn("extract.pdfinfo.failed", "error", err)
		return doc
	}
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Pages":
			if n, err := strconv.Atoi(value); err == nil {
				doc.PageCount = n
			}
		case "Encrypted":
			doc.Encrypted = strings.HasPrefix(value, "yes")
		case "Title":
			doc.Title = value
		case "Producer":
			doc.Producer = value
		}
	}
	return doc
}

var _ TextExtractor = (*PopplerExtractor)(nil)

// ValidatePDFHeader rejects a non-PDF payload before any binary runs.
func ValidatePDFHeader(data []byte) error {
	if len(data) < 5 || string(data[:5]) != "%PDF-" {
		return common.NewAppError("DOCUMENT_NOT_PDF",
			fmt.Sprintf("document does not look like a PDF (%d bytes)", len(data)),
			common.ErrInvalidInput)
	}
	return nil
}
