package extract

import (
	"bytes"
	"context"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Local extracts text in-process with github.com/ledongthuc/pdf.
type Local struct{}

// NewLocal creates a Local extractor.
func NewLocal() *Local {
	return &Local{}
}

// ExtractText parses the PDF and returns the concatenated page text.
func (l *Local) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = eris.Errorf("extract: malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "extract: open PDF")
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", eris.Wrap(err, "extract: read PDF text")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", eris.Wrap(err, "extract: copy PDF text")
	}
	return buf.String(), nil
}
