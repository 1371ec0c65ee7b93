package extract

import "context"

// DocumentText is the extraction output for one policy document.
type DocumentText struct {
	Text      string
	PageCount int
	Encrypted bool
	Title     string
	Producer  string
}

// TextExtractor turns an uploaded policy document into plain text for the
// comparison engine.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (DocumentText, error)
}
