package ingest

import (
	"strings"
	"testing"
)

func TestBuildChunks_ShortPageStaysWhole(t *testing.T) {
	pages := []string{"Kısa bir sayfa metni."}
	chunks := BuildChunks(pages, ChunkPolicy{TargetChars: 100, MinChars: 50, MaxChars: 150})
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].PageIndex != 1 || chunks[0].ChunkIndex != 0 {
		t.Errorf("chunk meta = page %d, index %d", chunks[0].PageIndex, chunks[0].ChunkIndex)
	}
}

func TestBuildChunks_SkipsEmptyPagesKeepsNumbers(t *testing.T) {
	pages := []string{"Birinci sayfa.", "", "Üçüncü sayfa."}
	chunks := BuildChunks(pages, ChunkPolicy{})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].PageIndex != 1 || chunks[1].PageIndex != 3 {
		t.Errorf("page indexes = %d, %d; want 1, 3", chunks[0].PageIndex, chunks[1].PageIndex)
	}
	if chunks[0].ChunkIndex != 0 || chunks[1].ChunkIndex != 1 {
		t.Errorf("chunk indexes = %d, %d", chunks[0].ChunkIndex, chunks[1].ChunkIndex)
	}
}

func TestBuildChunks_SplitsLongPageAtSentences(t *testing.T) {
	sentence := "Bu cümle bölme sınırını sınayan örnek bir metindir. "
	page := strings.Repeat(sentence, 60) // ~3100 runes
	policy := ChunkPolicy{TargetChars: 500, MinChars: 200, MaxChars: 700, OverlapChars: 0}

	chunks := BuildChunks([]string{page}, policy)
	if len(chunks) < 4 {
		t.Fatalf("got %d chunks, expected the page to split", len(chunks))
	}
	for i, ch := range chunks {
		n := len([]rune(ch.Content))
		if n > policy.MaxChars {
			t.Errorf("chunk %d has %d runes, over max %d", i, n, policy.MaxChars)
		}
		if ch.ChunkIndex != int32(i) {
			t.Errorf("chunk %d carries index %d", i, ch.ChunkIndex)
		}
		// sentence-boundary splits end on punctuation except possibly the last
		if i < len(chunks)-1 && !strings.HasSuffix(ch.Content, ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, ch.Content[len(ch.Content)-20:])
		}
	}
}

func TestBuildChunks_PrefersParagraphBreak(t *testing.T) {
	para1 := strings.Repeat("a", 300)
	para2 := strings.Repeat("b", 300)
	page := para1 + "\n\n" + para2
	chunks := BuildChunks([]string{page}, ChunkPolicy{TargetChars: 320, MinChars: 200, MaxChars: 450})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if strings.Contains(chunks[0].Content, "b") {
		t.Error("first chunk should stop at the paragraph break")
	}
}

func TestBuildChunks_Deterministic(t *testing.T) {
	page := strings.Repeat("Cümle bir. Cümle iki. Cümle üç. ", 100)
	policy := ChunkPolicy{TargetChars: 400, MinChars: 200, MaxChars: 600, OverlapChars: 50}

	a := BuildChunks([]string{page}, policy)
	b := BuildChunks([]string{page}, policy)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Content != b[i].Content {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestCollectionName(t *testing.T) {
	got := CollectionName(5, "Fen Bilimleri", "abcdef0123456789")
	if got != "grade_5_fen_bilimleri_abcdef01" {
		t.Errorf("CollectionName = %q", got)
	}
	// identical content maps to the identical collection
	if again := CollectionName(5, "Fen Bilimleri", "abcdef0123456789"); again != got {
		t.Errorf("not deterministic: %q vs %q", again, got)
	}
}
