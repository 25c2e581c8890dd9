package ingest

import (
	"strings"
	"unicode"
)

// Chunk is one passage of a document destined for the vector index.
type Chunk struct {
	ChunkIndex int32
	PageIndex  int32
	Content    string
}

// ChunkPolicy bounds chunk sizes in runes.
type ChunkPolicy struct {
	TargetChars  int
	MinChars     int
	MaxChars     int
	OverlapChars int
}

func (p ChunkPolicy) normalized() ChunkPolicy {
	if p.TargetChars <= 0 {
		p.TargetChars = 1000
	}
	if p.MinChars <= 0 {
		p.MinChars = 500
	}
	if p.MaxChars < p.TargetChars {
		p.MaxChars = p.TargetChars + p.TargetChars/2
	}
	if p.OverlapChars < 0 {
		p.OverlapChars = 0
	}
	return p
}

// BuildChunks splits page texts into chunks around the target size. Splits
// prefer paragraph breaks, then sentence boundaries; a sentence is only cut
// mid-way when no boundary exists inside the window. Chunk indexes are
// deterministic and global over the document.
func BuildChunks(pages []string, policy ChunkPolicy) []Chunk {
	policy = policy.normalized()

	chunks := make([]Chunk, 0, 64)
	chunkIdx := int32(0)
	for pageIdx, page := range pages {
		text := strings.TrimSpace(page)
		if text == "" {
			continue
		}
		for _, piece := range splitPage(text, policy) {
			chunks = append(chunks, Chunk{
				ChunkIndex: chunkIdx,
				PageIndex:  int32(pageIdx + 1),
				Content:    piece,
			})
			chunkIdx++
		}
	}
	return chunks
}

func splitPage(text string, policy ChunkPolicy) []string {
	runes := []rune(text)
	if len(runes) <= policy.MaxChars {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + policy.TargetChars
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}
		cut := boundaryBefore(runes, start+policy.MinChars, min(start+policy.MaxChars, len(runes)))
		if cut < 0 {
			cut = end
		}
		pieces = append(pieces, strings.TrimSpace(string(runes[start:cut])))

		next := cut - policy.OverlapChars
		if next <= start {
			next = cut
		}
		start = next
	}

	out := pieces[:0]
	for _, p := range pieces {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// boundaryBefore finds the best split point in (lo, hi]: the last paragraph
// break, else the last sentence end. Returns -1 when the window holds neither.
func boundaryBefore(runes []rune, lo, hi int) int {
	if lo < 1 {
		lo = 1
	}
	best := -1
	for i := hi - 1; i >= lo; i-- {
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i + 1
		}
		if best < 0 && isSentenceEnd(runes, i) {
			best = i + 1
		}
	}
	return best
}

func isSentenceEnd(runes []rune, i int) bool {
	switch runes[i] {
	case '.', '!', '?':
	default:
		return false
	}
	if i+1 >= len(runes) {
		return true
	}
	return unicode.IsSpace(runes[i+1])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
