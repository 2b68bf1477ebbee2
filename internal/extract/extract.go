// Package extract converts downloaded document bytes into normalized
// plain text. Format support is deliberately narrow: plain text family,
// PDF and DOCX. Anything else is reported as unsupported, not retried.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType indicates the document's MIME type has no extractor.
var ErrUnsupportedType = errors.New("unsupported document type")

// MIME types handled by the extractor.
const (
	MimeTypePDF  = "application/pdf"
	MimeTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor dispatches document bytes to a format-specific text extractor.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract converts file bytes into normalized text. The MIME type drives
// dispatch; when it is generic the file extension decides.
func (e *Extractor) Extract(ctx context.Context, fileName, mimeType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("extract %q: %w", fileName, err)
	}

	switch resolveType(fileName, mimeType) {
	case MimeTypePDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf %q: %w", fileName, err)
		}
		return normalize(text), nil

	case MimeTypeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return "", fmt.Errorf("extract docx %q: %w", fileName, err)
		}
		return normalize(text), nil

	case "text/plain":
		return normalize(string(data)), nil
	}

	e.logger.Warn("no extractor for document", "file", fileName, "mime_type", mimeType)
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, mimeType, fileName)
}

// resolveType maps the declared MIME type (or, for generic types, the
// file extension) onto one of the supported extractor keys.
func resolveType(fileName, mimeType string) string {
	switch {
	case mimeType == MimeTypePDF:
		return MimeTypePDF
	case mimeType == MimeTypeDOCX:
		return MimeTypeDOCX
	case strings.HasPrefix(mimeType, "text/"),
		mimeType == "application/json",
		mimeType == "application/xml":
		return "text/plain"
	}

	// Generic or absent MIME type: fall back to the extension.
	if mimeType == "" || mimeType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			return MimeTypePDF
		case ".docx":
			return MimeTypeDOCX
		case ".txt", ".md", ".csv":
			return "text/plain"
		}
	}

	return ""
}

// normalize collapses carriage returns and trims surrounding whitespace.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
