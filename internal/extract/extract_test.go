package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document part: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write document part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := map[string]Kind{
		"resume.pdf":   KindPDF,
		"RESUME.PDF":   KindPDF,
		"cv.docx":      KindDOCX,
		"cv.Docx ":     KindDOCX,
		"notes.txt":    KindText,
		"resume.doc":   KindText,
		"no-extension": KindText,
		"":             KindText,
	}

	for name, expect := range tests {
		if got := KindOf(name); got != expect {
			t.Fatalf("KindOf(%q): expected %s, got %s", name, expect, got)
		}
	}
}

func TestFromUploadPlainText(t *testing.T) {
	t.Parallel()

	data := []byte("Jane Doe\r\nBackend engineer\r\n\r\n\r\n5 years of Python   backend development")
	text, err := FromUpload("resume.txt", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expect := "Jane Doe Backend engineer\n\n5 years of Python backend development"
	if text != expect {
		t.Fatalf("expected %q, got %q", expect, text)
	}
}

func TestFromUploadDOCX(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Senior </w:t></w:r><w:r><w:t>Go engineer</w:t></w:r></w:p>
    <w:p><w:r><w:t>   </w:t></w:r></w:p>
    <w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go, Kafka</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := FromUpload("cv.docx", buildDOCX(t, doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expect := "Jane Doe\n\nSenior Go engineer\n\nSkills:\tGo, Kafka"
	if text != expect {
		t.Fatalf("expected %q, got %q", expect, text)
	}
}

func TestFromUploadDOCXErrors(t *testing.T) {
	t.Parallel()

	if _, err := FromUpload("cv.docx", []byte("not a zip")); err == nil {
		t.Fatal("expected error for non-zip docx")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if _, err := w.Create("other.xml"); err != nil {
		t.Fatalf("create part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err := FromUpload("cv.docx", buf.Bytes())
	if err == nil || !strings.Contains(err.Error(), "word/document.xml") {
		t.Fatalf("expected missing document part error, got %v", err)
	}
}

func TestFromUploadMalformedPDF(t *testing.T) {
	t.Parallel()

	if _, err := FromUpload("cv.pdf", nil); err == nil {
		t.Fatal("expected error for empty pdf")
	}

	if _, err := FromUpload("cv.pdf", []byte("%PDF-1.4 this is not really a pdf")); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}
