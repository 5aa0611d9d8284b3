package services

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"

	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
)

// TextExtractor pulls plain text out of resume documents. It never fails:
// any extraction problem is logged and yields an empty string.
type TextExtractor interface {
	Extract(data []byte, fileType models.FileType) string
}

var (
	xmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	spacePattern     = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLinePattern = regexp.MustCompile(`\n\s*\n+`)
)

type textExtractor struct {
	logger *zap.Logger
}

func NewTextExtractor(log *zap.Logger) TextExtractor {
	return &textExtractor{logger: logger.OrNop(log)}
}

func (e *textExtractor) Extract(data []byte, fileType models.FileType) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("text extraction panicked", zap.String("file_type", string(fileType)), zap.Any("panic", r))
			text = ""
		}
	}()

	if len(data) == 0 {
		e.logger.Warn("empty document", zap.String("file_type", string(fileType)))
		return ""
	}

	var err error
	switch fileType {
	case models.FileTypePDF:
		text, err = extractPDF(data)
	case models.FileTypeDOCX:
		text, err = extractDOCX(data)
	default:
		err = fmt.Errorf("unsupported file type %q", fileType)
	}

	if err != nil {
		e.logger.Warn("failed to extract text",
			zap.String("file_type", string(fileType)),
			zap.Int("size", len(data)),
			zap.Error(err),
		)
		return ""
	}

	return text
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return normalizeWhitespace(textBuilder.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	if content == "" {
		return "", errors.New("no document body found in DOCX")
	}

	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:tab/>", "\t")
	content = strings.ReplaceAll(content, "<w:br/>", "\n")
	content = xmlTagPattern.ReplaceAllString(content, "")

	return normalizeWhitespace(html.UnescapeString(content)), nil
}

func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spacePattern.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLinePattern.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
