package evaluator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"
)

// Case is one evaluation question with its expected answer signals.
type Case struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Grade            int      `json:"grade"`
	Subject          string   `json:"subject"`
	Question         string   `json:"question"`
	ExpectedKeywords []string `json:"expected_keywords"`
}

// CaseResult is one scored answer. Failed carries the call error; failed
// cases are excluded from score means but reported.
type CaseResult struct {
	CaseID     string             `json:"case_id"`
	Score      float64            `json:"score"`
	Dimensions map[string]float64 `json:"dimensions"`
	Answer     string             `json:"-"`
	Failed     bool               `json:"failed"`
	Error      string             `json:"error,omitempty"`
}

// Report aggregates one model's evaluation run.
type Report struct {
	ModelID      string             `json:"model_id"`
	OverallScore float64            `json:"overall_score"`
	CaseCount    int                `json:"case_count"`
	FailureCount int                `json:"failure_count"`
	ByCategory   map[string]float64 `json:"by_category"`
	ByGrade      map[int]float64    `json:"by_grade"`
	Cases        []CaseResult       `json:"cases"`
}

// ModelCaller pins a call to one model with no fallback.
type ModelCaller interface {
	AskModel(ctx context.Context, modelID string, messages []provider.Message, params provider.Params) (provider.Result, error)
}

// Service scores candidate models on a fixed question set with deterministic
// heuristics, so two runs over the same answers always agree.
type Service struct {
	caller ModelCaller
	cases  []Case
}

func NewService(caller ModelCaller) *Service {
	return &Service{caller: caller, cases: DefaultCases()}
}

// NewServiceWith overrides the case set (tests).
func NewServiceWith(caller ModelCaller, cases []Case) *Service {
	return &Service{caller: caller, cases: cases}
}

// Evaluate runs every case against the pinned model and aggregates scores per
// category and grade. Failed calls count toward FailureCount only.
func (s *Service) Evaluate(ctx context.Context, modelID string) (Report, error) {
	report := Report{
		ModelID:    modelID,
		ByCategory: map[string]float64{},
		ByGrade:    map[int]float64{},
	}
	catSum := map[string]float64{}
	catN := map[string]int{}
	gradeSum := map[int]float64{}
	gradeN := map[int]int{}
	total := 0.0
	scored := 0

	for _, c := range s.cases {
		result := s.runCase(ctx, modelID, c)
		report.Cases = append(report.Cases, result)
		report.CaseCount++
		if result.Failed {
			report.FailureCount++
			continue
		}
		total += result.Score
		scored++
		catSum[c.Category] += result.Score
		catN[c.Category]++
		gradeSum[c.Grade] += result.Score
		gradeN[c.Grade]++
	}

	if scored > 0 {
		report.OverallScore = total / float64(scored)
	}
	for cat, sum := range catSum {
		report.ByCategory[cat] = sum / float64(catN[cat])
	}
	for g, sum := range gradeSum {
		report.ByGrade[g] = sum / float64(gradeN[g])
	}

	logger.WithFields(map[string]interface{}{
		"model":    modelID,
		"score":    report.OverallScore,
		"cases":    report.CaseCount,
		"failures": report.FailureCount,
	}).Infof("%v: evaluation finished", config.ModuleEvaluator)
	return report, nil
}

func (s *Service) runCase(ctx context.Context, modelID string, c Case) CaseResult {
	messages := []provider.Message{
		{Role: "system", Content: caseSystem(c)},
		{Role: "user", Content: c.Question},
	}
	res, err := s.caller.AskModel(ctx, modelID, messages, provider.Params{Temperature: 0, MaxTokens: 700})
	if err != nil {
		return CaseResult{CaseID: c.ID, Failed: true, Error: err.Error()}
	}
	return ScoreAnswer(c, res.Text)
}

func caseSystem(c Case) string {
	var b strings.Builder
	b.WriteString("Sen MEB müfredatına bağlı bir yapay zekâ öğretmensin. Türkçe ve yaş grubuna uygun yanıt ver.")
	if c.Grade > 0 {
		fmt.Fprintf(&b, " Öğrenci %d. sınıfta.", c.Grade)
	}
	return b.String()
}

// ScoreAnswer computes the six deterministic dimensions and their mean.
func ScoreAnswer(c Case, answer string) CaseResult {
	dims := map[string]float64{
		"accuracy":     scoreAccuracy(c.ExpectedKeywords, answer),
		"relevance":    scoreRelevance(c.Question, answer),
		"completeness": scoreCompleteness(answer),
		"pedagogy":     scorePedagogy(answer),
		"language":     scoreLanguage(answer),
		"grade_fit":    scoreGradeFit(c.Grade, answer),
	}
	sum := 0.0
	for _, v := range dims {
		sum += v
	}
	return CaseResult{
		CaseID:     c.ID,
		Score:      sum / float64(len(dims)),
		Dimensions: dims,
		Answer:     answer,
	}
}

// scoreAccuracy is the case-insensitive fraction of expected keywords present.
func scoreAccuracy(keywords []string, answer string) float64 {
	if len(keywords) == 0 {
		return 1.0
	}
	lower := strings.ToLower(answer)
	hit := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hit++
		}
	}
	return float64(hit) / float64(len(keywords))
}

// scoreRelevance measures how many meaningful question words the answer
// echoes.
func scoreRelevance(question, answer string) float64 {
	qWords := contentWords(question)
	if len(qWords) == 0 {
		return 1.0
	}
	lower := strings.ToLower(answer)
	hit := 0
	for _, w := range qWords {
		if strings.Contains(lower, w) {
			hit++
		}
	}
	ratio := float64(hit) / float64(len(qWords))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

func contentWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if len([]rune(f)) >= 4 {
			out = append(out, f)
		}
	}
	return out
}

// scoreCompleteness rewards answers inside a length band: too short is
// unhelpful, too long loses the student.
func scoreCompleteness(answer string) float64 {
	n := len([]rune(strings.TrimSpace(answer)))
	switch {
	case n == 0:
		return 0
	case n < 80:
		return float64(n) / 80.0 * 0.5
	case n <= 1600:
		return 1.0
	case n <= 3200:
		return 0.7
	default:
		return 0.4
	}
}

var pedagogyMarkers = []string{"örnek", "adım", "önce", "sonra", "yani", "hatırla", "deneyelim", "soru"}

// scorePedagogy looks for teaching moves: examples, steps, check questions.
func scorePedagogy(answer string) float64 {
	lower := strings.ToLower(answer)
	hit := 0
	for _, m := range pedagogyMarkers {
		if strings.Contains(lower, m) {
			hit++
		}
	}
	score := float64(hit) / 4.0
	if score > 1 {
		score = 1
	}
	return score
}

// scoreLanguage checks the answer is actually Turkish: Turkish-specific
// letters must appear in text of any length.
func scoreLanguage(answer string) float64 {
	if strings.TrimSpace(answer) == "" {
		return 0
	}
	turkish := 0
	letters := 0
	for _, r := range answer {
		if unicode.IsLetter(r) {
			letters++
		}
		switch r {
		case 'ı', 'ğ', 'ü', 'ş', 'ö', 'ç', 'İ', 'Ğ', 'Ü', 'Ş', 'Ö', 'Ç':
			turkish++
		}
	}
	if letters == 0 {
		return 0
	}
	ratio := float64(turkish) / float64(letters)
	switch {
	case ratio >= 0.02:
		return 1.0
	case ratio > 0:
		return 0.7
	default:
		return 0.2
	}
}

// scoreGradeFit penalizes sentence length beyond what the grade can follow.
func scoreGradeFit(grade int, answer string) float64 {
	sentences := strings.FieldsFunc(answer, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	if len(sentences) == 0 {
		return 0
	}
	totalWords := 0
	for _, s := range sentences {
		totalWords += len(strings.Fields(s))
	}
	avg := float64(totalWords) / float64(len(sentences))
	limit := 12.0 + 2.0*float64(grade)
	if avg <= limit {
		return 1.0
	}
	over := (avg - limit) / limit
	score := 1.0 - over
	if score < 0 {
		return 0
	}
	return score
}
