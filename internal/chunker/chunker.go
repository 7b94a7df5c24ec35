// Package chunker splits normalized document text into overlapping pieces
// that are small enough to embed one by one.
package chunker

import "strings"

const (
	// DefaultMaxChars is the largest chunk produced, in characters.
	DefaultMaxChars = 900
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 150

	// minCut is the smallest window offset at which a soft boundary is honoured.
	minCut = 200
	// dedupPrefix is how many leading characters identify a chunk for deduplication.
	dedupPrefix = 120
)

// Options controls chunk sizing. Zero values fall back to the defaults.
type Options struct {
	MaxChars int `mapstructure:"max-chars"`
	Overlap  int `mapstructure:"overlap"`
}

// DefaultOptions returns the sizing used when nothing is configured.
func DefaultOptions() Options {
	return Options{MaxChars: DefaultMaxChars, Overlap: DefaultOverlap}
}

func (o Options) withDefaults() Options {
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	return o
}

// Split cuts text into windows of at most MaxChars characters. Inside every
// window the last line break or sentence end (". ") past minCut becomes the
// cut point, so sentences are kept whole where possible. The next window
// starts Overlap characters before the previous one ended. Chunks sharing the
// same first 120 characters are reported once, in order of appearance.
func Split(text string, opts Options) []string {
	opts = opts.withDefaults()

	runes := []rune(strings.TrimSpace(text))
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < n {
		end := min(start+opts.MaxChars, n)

		if cut := lastBoundary(runes[start:end]); cut > minCut {
			end = start + cut + 1
		}

		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}

		next := max(0, end-opts.Overlap)
		if next <= start {
			// overlap would not let the scan advance
			next = end
		}
		start = next
	}

	return dedup(chunks)
}

// lastBoundary returns the index of the last paragraph break, line break or
// sentence end inside the window, or -1.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '\n':
			return i
		case '.':
			if i+1 < len(window) && window[i+1] == ' ' {
				return i
			}
		}
	}
	return -1
}

func dedup(chunks []string) []string {
	if len(chunks) == 0 {
		return chunks
	}

	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		key := prefix(chunk, dedupPrefix)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, chunk)
	}

	return out
}

func prefix(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
