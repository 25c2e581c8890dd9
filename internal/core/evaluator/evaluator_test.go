package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
)

type scriptedCaller struct {
	answers map[string]string
	failAll bool
}

func (s *scriptedCaller) AskModel(ctx context.Context, modelID string, messages []provider.Message, params provider.Params) (provider.Result, error) {
	if s.failAll {
		return provider.Result{}, errors.New("model unavailable")
	}
	question := messages[len(messages)-1].Content
	if answer, ok := s.answers[question]; ok {
		return provider.Result{Text: answer}, nil
	}
	return provider.Result{Text: "Bilmiyorum."}, nil
}

func TestScoreAnswer_Deterministic(t *testing.T) {
	c := Case{
		ID: "mat5", Category: "hesaplama", Grade: 5, Subject: "matematik",
		Question:         "1/4 ile 2/4 kesirlerini toplar mısın?",
		ExpectedKeywords: []string{"3/4", "payda"},
	}
	answer := "Önce paydalara bakalım. Paydalar aynı olduğu için payları toplarız: 1+2=3, yani sonuç 3/4 olur. " +
		"Örnek olarak bir pastayı dört eş parçaya bölelim. Şimdi sana bir soru: 2/5 ile 1/5 kaç eder?"

	a := ScoreAnswer(c, answer)
	b := ScoreAnswer(c, answer)
	if a.Score != b.Score {
		t.Fatalf("same answer scored differently: %v vs %v", a.Score, b.Score)
	}
	for dim, v := range a.Dimensions {
		if b.Dimensions[dim] != v {
			t.Errorf("dimension %s differs between runs", dim)
		}
	}
	if a.Dimensions["accuracy"] != 1.0 {
		t.Errorf("accuracy = %v, both keywords present", a.Dimensions["accuracy"])
	}
	if a.Dimensions["language"] != 1.0 {
		t.Errorf("language = %v for Turkish answer", a.Dimensions["language"])
	}
	if a.Dimensions["pedagogy"] == 0 {
		t.Error("pedagogy should see example and check question markers")
	}
}

func TestScoreAnswer_KeywordCaseInsensitive(t *testing.T) {
	c := Case{ExpectedKeywords: []string{"Kalp", "KAN"}}
	r := ScoreAnswer(c, "kalp vücutta kan pompalar")
	if r.Dimensions["accuracy"] != 1.0 {
		t.Errorf("accuracy = %v, want 1.0 (case-insensitive match)", r.Dimensions["accuracy"])
	}
}

func TestScoreAnswer_PenalizesEmptyAndEnglish(t *testing.T) {
	c := Case{Grade: 5, ExpectedKeywords: []string{"katı"}}

	empty := ScoreAnswer(c, "")
	if empty.Score != 0 {
		t.Errorf("empty answer score = %v, want 0", empty.Score)
	}

	english := ScoreAnswer(c, "Matter has three states: solid, liquid and gas. For example ice is solid.")
	if english.Dimensions["language"] >= 1.0 {
		t.Errorf("language = %v for English answer", english.Dimensions["language"])
	}
}

func TestScoreAnswer_GradeFitPenalizesLongSentences(t *testing.T) {
	short := ScoreAnswer(Case{Grade: 5}, "Kesir bütünün parçasıdır. Pay üsttedir. Payda alttadır.")
	words := strings.Repeat("kelime ", 60)
	long := ScoreAnswer(Case{Grade: 5}, words+".")
	if short.Dimensions["grade_fit"] != 1.0 {
		t.Errorf("short sentences grade_fit = %v", short.Dimensions["grade_fit"])
	}
	if long.Dimensions["grade_fit"] >= short.Dimensions["grade_fit"] {
		t.Error("60-word sentence should score below short sentences")
	}
}

func TestEvaluate_AggregatesAndExcludesFailures(t *testing.T) {
	cases := []Case{
		{ID: "c1", Category: "kavram", Grade: 5, Question: "soru bir", ExpectedKeywords: []string{"katı"}},
		{ID: "c2", Category: "kavram", Grade: 6, Question: "soru iki", ExpectedKeywords: []string{"kalp"}},
		{ID: "c3", Category: "problem", Grade: 5, Question: "soru üç", ExpectedKeywords: []string{"170"}},
	}
	caller := &scriptedCaller{answers: map[string]string{
		"soru bir": "Katı maddeler şeklini korur. Örnek olarak taş katıdır. Önce şekline bakarız, sonra hacmine. Şimdi düşünelim: su hangi hâldedir? Bu soruya birlikte bakalım ve adım adım ilerleyelim.",
		"soru iki": "Kalp kanı damarlara pompalar. Örnek: koşarken kalbin hızlanır. Önce kulakçıklar kasılır, sonra karıncıklar. Sana bir soru: nabzını nasıl ölçersin? Adım adım deneyelim.",
		"soru üç":  "Sonuç 170 liradır çünkü yüzde on beş indirim 30 lira eder. Önce yüzdeyi hesaplarız, sonra çıkarırız. Örnek çözümle gösterelim ve bir soru ile bitirelim: yüzde 20 olsaydı kaç olurdu?",
	}}
	svc := NewServiceWith(caller, cases)

	report, err := svc.Evaluate(context.Background(), "ft:candidate")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.CaseCount != 3 || report.FailureCount != 0 {
		t.Errorf("counts = %d/%d", report.CaseCount, report.FailureCount)
	}
	if report.OverallScore <= 0.5 {
		t.Errorf("overall = %v, expected good answers to score well", report.OverallScore)
	}
	if len(report.ByCategory) != 2 || len(report.ByGrade) != 2 {
		t.Errorf("aggregates = %v / %v", report.ByCategory, report.ByGrade)
	}

	failing := NewServiceWith(&scriptedCaller{failAll: true}, cases)
	report, err = failing.Evaluate(context.Background(), "ft:dead")
	if err != nil {
		t.Fatalf("Evaluate with failures: %v", err)
	}
	if report.FailureCount != 3 {
		t.Errorf("failures = %d, want 3", report.FailureCount)
	}
	if report.OverallScore != 0 {
		t.Errorf("overall = %v with every case failed", report.OverallScore)
	}
}

func TestDefaultCases_CoverGradesAndSubjects(t *testing.T) {
	cases := DefaultCases()
	grades := map[int]bool{}
	subjects := map[string]bool{}
	ids := map[string]bool{}
	for _, c := range cases {
		if ids[c.ID] {
			t.Errorf("duplicate case id %q", c.ID)
		}
		ids[c.ID] = true
		grades[c.Grade] = true
		subjects[c.Subject] = true
		if len(c.ExpectedKeywords) == 0 {
			t.Errorf("case %q has no expected keywords", c.ID)
		}
	}
	for _, g := range []int{5, 6, 7, 8} {
		if !grades[g] {
			t.Errorf("no case for grade %d", g)
		}
	}
	if !subjects["matematik"] || !subjects["fen_bilimleri"] {
		t.Errorf("subjects covered = %v", subjects)
	}
}
