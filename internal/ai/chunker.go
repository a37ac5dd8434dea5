package ai

import (
	"regexp"
	"strings"
)

// Chunk is a contiguous span of a document's text plus its position index.
// Chunks exist only between the worker and the embedding/index calls.
type Chunk struct {
	Index int    `json:"chunk_index"`
	Text  string `json:"text"`
}

// Chunker splits text into paragraph-bounded spans under a maximum length.
// The split is deterministic for a given text and configuration, so
// re-processing the same text yields the same chunk set and the same
// derived vector ids.
type Chunker struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// NewChunker creates a chunker with the given size policy.
func NewChunker(maxChunkSize, overlap, minChunkSize int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if minChunkSize < 0 {
		minChunkSize = 0
	}
	if overlap < 0 || overlap >= maxChunkSize {
		overlap = 0
	}

	return &Chunker{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// Split chunks text with paragraph boundary awareness. Oversized paragraphs
// are broken at sentence boundaries, then hard-wrapped as a last resort.
func (ck *Chunker) Split(text string) []Chunk {
	paragraphs := filterEmpty(ck.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var spans []string
	current := new(strings.Builder)

	flush := func() {
		if current.Len() > 0 {
			spans = append(spans, current.String())
			current = new(strings.Builder)
		}
	}

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)

		if len(paragraph) > ck.maxChunkSize {
			flush()
			spans = append(spans, ck.splitOversized(paragraph)...)
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(paragraph) > ck.maxChunkSize {
			flush()
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		} else if len(spans) > 0 && ck.overlap > 0 {
			// Carry the tail of the previous span for context continuity.
			tail := ck.overlapTail(spans[len(spans)-1])
			if tail != "" && len(tail)+2+len(paragraph) <= ck.maxChunkSize {
				current.WriteString(tail)
				current.WriteString("\n\n")
			}
		}
		current.WriteString(paragraph)
	}
	flush()

	// Merge a trailing undersized span into its predecessor.
	if len(spans) > 1 && len(spans[len(spans)-1]) < ck.minChunkSize {
		last := spans[len(spans)-1]
		if len(spans[len(spans)-2])+2+len(last) <= ck.maxChunkSize+ck.minChunkSize {
			spans[len(spans)-2] = spans[len(spans)-2] + "\n\n" + last
			spans = spans[:len(spans)-1]
		}
	}

	chunks := make([]Chunk, len(spans))
	for i, span := range spans {
		chunks[i] = Chunk{Index: i, Text: span}
	}
	return chunks
}

// splitOversized breaks a single paragraph that exceeds the chunk budget,
// preferring sentence boundaries.
func (ck *Chunker) splitOversized(paragraph string) []string {
	sentences := ck.splitSentences(paragraph)

	var spans []string
	current := new(strings.Builder)

	for _, sentence := range sentences {
		for len(sentence) > ck.maxChunkSize {
			if current.Len() > 0 {
				spans = append(spans, current.String())
				current = new(strings.Builder)
			}
			spans = append(spans, sentence[:ck.maxChunkSize])
			sentence = sentence[ck.maxChunkSize:]
		}
		if sentence == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(sentence) > ck.maxChunkSize {
			spans = append(spans, current.String())
			current = new(strings.Builder)
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		spans = append(spans, current.String())
	}

	return spans
}

// splitSentences splits on sentence-ending punctuation, keeping the
// punctuation with the preceding sentence.
func (ck *Chunker) splitSentences(text string) []string {
	bounds := ck.sentenceRegex.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, b := range bounds {
		sentences = append(sentences, strings.TrimSpace(text[start:b[1]]))
		start = b[1]
	}
	if start < len(text) {
		if rest := strings.TrimSpace(text[start:]); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	return sentences
}

// overlapTail returns the last sentences of a span that fit the overlap
// budget.
func (ck *Chunker) overlapTail(span string) string {
	if len(span) <= ck.overlap {
		return span
	}

	sentences := ck.splitSentences(span)
	tail := ""
	for i := len(sentences) - 1; i >= 0; i-- {
		candidate := sentences[i]
		if tail != "" {
			candidate = candidate + " " + tail
		}
		if len(candidate) > ck.overlap {
			break
		}
		tail = candidate
	}
	return tail
}

// filterEmpty removes empty strings from slice
func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if len(strings.TrimSpace(s)) > 0 {
			result = append(result, s)
		}
	}
	return result
}
