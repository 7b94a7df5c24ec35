// Package textproc cleans up text pulled out of uploaded documents.
package textproc

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	hyphenWrap   = regexp.MustCompile(`([\p{L}\p{M}\p{N}_])-\n([\p{L}\p{M}\p{N}_])`)
	manyBreaks   = regexp.MustCompile(`\n{3,}`)
	manyBlanks   = regexp.MustCompile(`[ \t]{2,}`)
	lineEndingsR = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize unifies line endings, rejoins words split by a hyphen at the end of
// a line, turns single line breaks into spaces and squeezes repeated blank lines
// and horizontal whitespace. Paragraph breaks (two newlines) survive.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = lineEndingsR.Replace(text)
	text = hyphenWrap.ReplaceAllString(text, "$1$2")
	text = joinLoneNewlines(text)
	text = manyBreaks.ReplaceAllString(text, "\n\n")
	text = manyBlanks.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// Decode converts raw upload bytes to a string. Invalid UTF-8 is read as
// ISO-8859-1, which maps every byte to a rune and therefore never fails.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return strings.TrimPrefix(string(b), "\ufeff")
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "")
	}

	return string(out)
}

// joinLoneNewlines replaces every newline that has no newline neighbour with a space.
func joinLoneNewlines(text string) string {
	if !strings.Contains(text, "\n") {
		return text
	}

	buf := []byte(text)
	for i, c := range buf {
		if c != '\n' {
			continue
		}
		if i > 0 && text[i-1] == '\n' {
			continue
		}
		if i+1 < len(text) && text[i+1] == '\n' {
			continue
		}
		buf[i] = ' '
	}

	return string(buf)
}
