package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Errorf("EstimateTokens(%d runes) = %d, want %d", len([]rune(c.in)), got, c.want)
		}
	}
}

func TestPageTag(t *testing.T) {
	if got := PageTag(12, 3); got != "[sayfa 12, parça 3]" {
		t.Errorf("PageTag = %q", got)
	}
}

func TestCompose_SystemFirstQuestionLast(t *testing.T) {
	p, err := Compose(Input{
		Mode:     ModeQA,
		Grade:    5,
		Subject:  "matematik",
		Question: "Kesir nedir?",
		Chunks: []Chunk{
			{PageTag: PageTag(3, 0), Text: "Kesirler bir bütünün parçalarını gösterir."},
		},
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if p.Messages[0].Role != "system" {
		t.Errorf("first message role = %q", p.Messages[0].Role)
	}
	last := p.Messages[len(p.Messages)-1]
	if last.Role != "user" || last.Content != "Kesir nedir?" {
		t.Errorf("last message = %+v", last)
	}
	if !strings.Contains(p.System, "[sayfa 3, parça 0]") {
		t.Error("context block should carry the page tag verbatim")
	}
	if !strings.Contains(p.System, "5. sınıf") {
		t.Error("persona should name the grade")
	}
}

func TestCompose_UnknownModeRejected(t *testing.T) {
	_, err := Compose(Input{Mode: "quiz", Grade: 5, Subject: "matematik", Question: "soru"})
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("got %v, want ErrUnknownMode", err)
	}
}

func TestCompose_DropsHistoryBeforeChunks(t *testing.T) {
	long := strings.Repeat("ç", 400) // 100 tokens each
	in := Input{
		Mode:     ModeQA,
		Grade:    5,
		Subject:  "matematik",
		Question: "soru",
		Chunks: []Chunk{
			{PageTag: PageTag(1, 0), Text: long},
			{PageTag: PageTag(2, 1), Text: long},
		},
		History: []ledger.HistoryTurn{
			{Question: long, AnswerExcerpt: long},
			{Question: "son soru", AnswerExcerpt: "son yanıt"},
		},
		TokenCap: 400,
	}
	p, err := Compose(in)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	// the oldest history turn must be gone before any chunk is dropped
	joined := ""
	for _, m := range p.Messages {
		joined += m.Content + "\n"
	}
	if strings.Count(joined, long) >= 4 {
		t.Error("expected oldest history to be dropped first")
	}
	if p.Tokens > 400 {
		t.Errorf("composed tokens %d over cap", p.Tokens)
	}
}

func TestCompose_KeepsAtLeastOneChunk(t *testing.T) {
	long := strings.Repeat("a", 800)
	p, err := Compose(Input{
		Mode:     ModeQA,
		Grade:    5,
		Subject:  "matematik",
		Question: "soru",
		Chunks: []Chunk{
			{PageTag: PageTag(1, 0), Text: long},
			{PageTag: PageTag(1, 1), Text: long},
			{PageTag: PageTag(2, 2), Text: long},
		},
		TokenCap: 330,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(p.System, "[sayfa 1, parça 0]") {
		t.Error("highest-similarity chunk should survive truncation")
	}
	if strings.Contains(p.System, "[sayfa 2, parça 2]") {
		t.Error("tail chunk should be dropped")
	}
}

func TestCompose_FailsWhenQuestionAloneOverCap(t *testing.T) {
	_, err := Compose(Input{
		Mode:     ModeQA,
		Grade:    5,
		Subject:  "matematik",
		Question: strings.Repeat("soru ", 200),
		TokenCap: 50,
	})
	if !errors.Is(err, ErrPromptTooLarge) {
		t.Fatalf("got %v, want ErrPromptTooLarge", err)
	}
}

func TestExtractCitations(t *testing.T) {
	answer := "Kesirler [sayfa 3, parça 0] payda ile yazılır. Ayrıca [sayfa 4, parça 2] örnek var."
	got := ExtractCitations(answer)
	if len(got) != 2 || got[0] != "[sayfa 3, parça 0]" || got[1] != "[sayfa 4, parça 2]" {
		t.Errorf("ExtractCitations = %v", got)
	}
	if got := ExtractCitations("alıntısız yanıt"); len(got) != 0 {
		t.Errorf("expected no citations, got %v", got)
	}
}
