package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/addyspiller/prisere/internal/common"
)

// fakeRunner answers per-command canned outputs.
type fakeRunner struct {
	pdfinfoOut   string
	pdfinfoErr   error
	pdftotextOut string
	pdftotextErr error
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, []byte, error) {
	switch {
	case strings.Contains(name, "pdfinfo"):
		return []byte(f.pdfinfoOut), nil, f.pdfinfoErr
	case strings.Contains(name, "pdftotext"):
		return []byte(f.pdftotextOut), []byte("stderr"), f.pdftotextErr
	}
	return nil, nil, errors.New("unexpected command: " + name)
}

const sampleInfo = `Title:          Commercial Property Policy
Producer:       Acrobat Distiller
Pages:          12
Encrypted:      no
Page size:      612 x 792 pts (letter)
`

func TestExtractHappyPath(t *testing.T) {
	r := &fakeRunner{
		pdfinfoOut:   sampleInfo,
		pdftotextOut: "Page one text\fPage two text",
	}
	e := NewPopplerExtractorWithRunner(DefaultPopplerConfig(), r, nil)

	doc, err := e.Extract(context.Background(), []byte("%PDF-1.7 payload"))
	require.NoError(t, err)
	assert.Equal(t, "Page one text\fPage two text", doc.Text)
	assert.Equal(t, 12, doc.PageCount)
	assert.Equal(t, "Commercial Property Policy", doc.Title)
	assert.False(t, doc.Encrypted)
}

func TestExtractFallsBackToFormFeedPageCount(t *testing.T) {
	r := &fakeRunner{
		pdfinfoErr:   errors.New("pdfinfo: not found"),
		pdftotextOut: "a\fb\fc",
	}
	e := NewPopplerExtractorWithRunner(DefaultPopplerConfig(), r, nil)

	doc, err := e.Extract(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount)
}

func TestExtractRejectsEncryptedDocument(t *testing.T) {
	r := &fakeRunner{
		pdfinfoOut:   "Pages:          3\nEncrypted:      yes (print:no copy:no)\n",
		pdftotextOut: "should not be reached",
	}
	e := NewPopplerExtractorWithRunner(DefaultPopplerConfig(), r, nil)

	_, err := e.Extract(context.Background(), []byte("%PDF-1.7"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtractRejectsEmptyText(t *testing.T) {
	r := &fakeRunner{
		pdfinfoOut:   sampleInfo,
		pdftotextOut: "  \n\t ",
	}
	e := NewPopplerExtractorWithRunner(DefaultPopplerConfig(), r, nil)

	_, err := e.Extract(context.Background(), []byte("%PDF-1.7"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestExtractPropagatesCommandFailure(t *testing.T) {
	r := &fakeRunner{
		pdfinfoOut:   sampleInfo,
		pdftotextErr: errors.New("exit status 1"),
	}
	e := NewPopplerExtractorWithRunner(DefaultPopplerConfig(), r, nil)

	_, err := e.Extract(context.Background(), []byte("%PDF-1.7"))
	require.Error(t, err)
}

func TestValidatePDFHeader(t *testing.T) {
	assert.NoError(t, ValidatePDFHeader([]byte("%PDF-1.7\n...")))
	assert.ErrorIs(t, ValidatePDFHeader([]byte("PK\x03\x04 zip")), common.ErrInvalidInput)
	assert.ErrorIs(t, ValidatePDFHeader(nil), common.ErrInvalidInput)
}
