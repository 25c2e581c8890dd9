package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
)

// Tutor modes.
const (
	ModeTeach   = "teach"
	ModeQA      = "qa"
	ModeSummary = "summary"
)

// ErrPromptTooLarge means the prompt still exceeds the token cap after
// history and tail chunks were dropped. The question itself is never dropped.
var ErrPromptTooLarge = errors.New("prompt exceeds token cap")

// ErrUnknownMode rejects modes outside the closed set.
var ErrUnknownMode = errors.New("unknown tutor mode")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is a retrieved context passage. Chunks arrive ordered by similarity
// descending; truncation removes from the tail.
type Chunk struct {
	PageTag string
	Text    string
}

// Input gathers everything the composer needs.
type Input struct {
	Mode     string
	Grade    int
	Subject  string
	Topic    string
	Question string
	Chunks   []Chunk
	History  []ledger.HistoryTurn
	TokenCap int
}

// Prompt is the composed message list, system first, question last.
type Prompt struct {
	Messages []Message
	System   string
	Tokens   int
}

// PageTag renders the citation tag carried verbatim through the context block
// so citations can be pattern-matched out of the final answer.
func PageTag(page, chunkIndex int32) string {
	return fmt.Sprintf("[sayfa %d, parça %d]", page, chunkIndex)
}

// EstimateTokens approximates tokens as ceil(runes/4). Coarse, but it only
// guards budgets; the same estimate is used consistently everywhere.
func EstimateTokens(s string) int {
	n := len([]rune(s))
	return (n + 3) / 4
}

func subjectLabel(subject string) string {
	return strings.ReplaceAll(subject, "_", " ")
}

func persona(mode string, grade int, subject, topic string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Sen %d. sınıf %s dersi için MEB müfredatına bağlı, sabırlı bir yapay zekâ öğretmensin. ", grade, subjectLabel(subject))
	b.WriteString("Her zaman Türkçe yanıt ver ve yaş grubuna uygun, basit bir dil kullan. ")
	if topic != "" {
		fmt.Fprintf(&b, "Bu oturumun konusu: %s. ", topic)
	}
	switch mode {
	case ModeTeach:
		b.WriteString("Konuyu adım adım anlat, en az bir örnek ver ve anlatımı öğrencinin anlayıp anlamadığını yoklayan kısa bir kontrol sorusuyla bitir.")
	case ModeQA:
		b.WriteString("Yalnızca aşağıdaki bağlam parçalarına dayanarak yanıt ver. Bağlam yetersizse bunu açıkça belirt ve tahmin yürüttüğünü söyle.")
	case ModeSummary:
		b.WriteString("Aşağıdaki bağlamı kısa maddeler hâlinde, önemli kavramları vurgulayarak özetle.")
	default:
		return "", fmt.Errorf("%q: %w", mode, ErrUnknownMode)
	}
	return b.String(), nil
}

func contextBlock(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nBağlam:\n")
	for _, c := range chunks {
		// page tags stay verbatim for citation extraction
		fmt.Fprintf(&b, "%s %s\n\n", c.PageTag, strings.TrimSpace(c.Text))
	}
	return b.String()
}

func assemble(sys string, chunks []Chunk, history []ledger.HistoryTurn, question string) ([]Message, int) {
	system := sys + contextBlock(chunks)
	msgs := make([]Message, 0, 2+2*len(history))
	msgs = append(msgs, Message{Role: "system", Content: system})
	for _, h := range history {
		msgs = append(msgs, Message{Role: "user", Content: h.Question})
		msgs = append(msgs, Message{Role: "assistant", Content: h.AnswerExcerpt})
	}
	msgs = append(msgs, Message{Role: "user", Content: question})

	tokens := 0
	for _, m := range msgs {
		tokens += EstimateTokens(m.Content)
	}
	return msgs, tokens
}

// Compose builds the prompt under the token cap. Over budget, history is
// dropped oldest-first, then chunks from the tail down to one; if the result
// is still over budget the composition fails rather than drop the question.
func Compose(in Input) (Prompt, error) {
	if strings.TrimSpace(in.Question) == "" {
		return Prompt{}, errors.New("question is empty")
	}
	sys, err := persona(in.Mode, in.Grade, in.Subject, in.Topic)
	if err != nil {
		return Prompt{}, err
	}

	budget := in.TokenCap
	if budget <= 0 {
		budget = 3500
	}

	history := append([]ledger.HistoryTurn(nil), in.History...)
	chunks := append([]Chunk(nil), in.Chunks...)

	msgs, tokens := assemble(sys, chunks, history, in.Question)
	for tokens > budget && len(history) > 0 {
		history = history[1:]
		msgs, tokens = assemble(sys, chunks, history, in.Question)
	}
	for tokens > budget && len(chunks) > 1 {
		chunks = chunks[:len(chunks)-1]
		msgs, tokens = assemble(sys, chunks, history, in.Question)
	}
	if tokens > budget {
		return Prompt{}, fmt.Errorf("%d tokens over cap %d: %w", tokens, budget, ErrPromptTooLarge)
	}

	return Prompt{Messages: msgs, System: msgs[0].Content, Tokens: tokens}, nil
}

// SystemTemplate rebuilds the system persona used at answer time; the miner
// reuses it when projecting ledger rows into training examples.
func SystemTemplate(mode string, grade int, subject, topic string) (string, error) {
	return persona(mode, grade, subject, topic)
}

// ExtractCitations pulls verbatim page tags out of a model answer.
func ExtractCitations(answer string) []string {
	var out []string
	rest := answer
	for {
		start := strings.Index(rest, "[sayfa ")
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], "]")
		if end < 0 {
			break
		}
		out = append(out, rest[start:start+end+1])
		rest = rest[start+end+1:]
	}
	return out
}
