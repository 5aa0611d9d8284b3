package models

import (
	"fmt"
	"strings"
)

// FileType is a resume document format the extractor understands.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
)

// ParseFileType accepts a short name, a file extension or a MIME type.
func ParseFileType(s string) (FileType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, ".")

	switch {
	case v == "pdf", v == "application/pdf":
		return FileTypePDF, nil
	case v == "docx", v == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FileTypeDOCX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: only pdf and docx are allowed", s)
	}
}
