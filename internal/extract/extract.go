// Package extract turns uploaded PDF bytes into plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/doc-analyzer/internal/config"
)

// Extractor extracts text content from a PDF held in memory.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// ExtractionError reports an upload that is not a readable PDF or carries no
// extractable text. Its message is safe to show to the uploader.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "failed to extract text from PDF: " + e.Reason
	}
	return fmt.Sprintf("failed to extract text from PDF: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractor creates an Extractor based on config. Every extractor it
// returns rejects empty input and empty output with an ExtractionError.
func NewExtractor(cfg config.ExtractConfig) (Extractor, error) {
	var inner Extractor
	switch cfg.Provider {
	case "local", "":
		inner = NewLocal()
	case "pdftotext":
		inner = NewPdfToText(cfg.PdfToTextPath)
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("extract: mistral provider requires mistral_api_key")
		}
		inner = NewMistralOCR(cfg.MistralKey, cfg.MistralModel)
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
	return Checked(inner), nil
}

// Checked wraps an Extractor with the input/output checks shared by every
// backend: empty uploads and documents with no text fail, backend errors
// become ExtractionErrors, and text is NFC-normalized and trimmed.
func Checked(inner Extractor) Extractor {
	if c, ok := inner.(*checked); ok {
		return c
	}
	return &checked{inner: inner}
}

type checked struct {
	inner Extractor
}

func (c *checked) ExtractText(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ExtractionError{Reason: "file is empty"}
	}

	text, err := c.inner.ExtractText(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "extract: cancelled")
		}
		var ee *ExtractionError
		if errors.As(err, &ee) {
			return "", err
		}
		return "", &ExtractionError{Reason: "unreadable document", Err: err}
	}

	text = strings.TrimSpace(norm.NFC.String(text))
	if text == "" {
		return "", &ExtractionError{Reason: "no extractable text found"}
	}

	zap.L().Debug("extracted document text",
		zap.Int("bytes", len(data)),
		zap.Int("chars", len(text)),
	)
	return text, nil
}

// ReadAll reads an upload up to limit bytes. A limit <= 0 disables the cap.
// Oversized uploads fail with an ExtractionError.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &ExtractionError{Reason: "read upload", Err: err}
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, &ExtractionError{Reason: "read upload", Err: err}
	}
	if int64(len(data)) > limit {
		return nil, &ExtractionError{Reason: fmt.Sprintf("file exceeds %d bytes", limit)}
	}
	return data, nil
}
