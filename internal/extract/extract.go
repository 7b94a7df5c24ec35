// Package extract turns uploaded resume files into normalized plain text.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spigell/smart-resume/internal/textproc"
)

// Kind identifies how an upload is parsed.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "text"
)

// KindOf picks the parser by file extension. Anything that is not a PDF or a
// DOCX document is read as plain text.
func KindOf(filename string) Kind {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	default:
		return KindText
	}
}

// FromUpload extracts normalized text from the uploaded file contents.
func FromUpload(filename string, data []byte) (string, error) {
	switch kind := KindOf(filename); kind {
	case KindPDF:
		text, err := PDF(data)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", kind, err)
		}
		return text, nil
	case KindDOCX:
		text, err := DOCX(data)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", kind, err)
		}
		return text, nil
	default:
		return Text(data), nil
	}
}

// Text decodes raw bytes and normalizes them.
func Text(data []byte) string {
	return textproc.Normalize(textproc.Decode(data))
}
