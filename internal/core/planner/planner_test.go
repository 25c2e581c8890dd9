package planner

import (
	"testing"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/curriculum"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
)

func testGraph(t *testing.T) *curriculum.Graph {
	t.Helper()
	g, err := curriculum.NewGraph([]curriculum.Node{
		{ID: "t1", Grade: 5, Subject: "matematik", Topic: "T1", EstimatedHours: 4, Objectives: []string{"o1"}},
		{ID: "t2", Grade: 5, Subject: "matematik", Topic: "T2", EstimatedHours: 6, Prerequisites: []string{"t1"}},
		{ID: "t3", Grade: 5, Subject: "matematik", Topic: "T3", EstimatedHours: 2, Prerequisites: []string{"t2"}},
	})
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	return g
}

func entry(topic string, score float64, attempts int) model.MasteryEntry {
	return model.MasteryEntry{Topic: topic, Score: score, Attempts: attempts}
}

func TestBuild_FreshStudentStartsAtFirstTopic(t *testing.T) {
	plan, err := Build(testGraph(t), 5, "matematik", nil, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.CurrentTopic != "t1" {
		t.Errorf("current topic = %q, want t1", plan.CurrentTopic)
	}
	if len(plan.UpcomingTopics) != 2 || plan.UpcomingTopics[0] != "t2" {
		t.Errorf("upcoming = %v", plan.UpcomingTopics)
	}
	if plan.HasOverallScore {
		t.Error("overall score should be undefined with no attempts")
	}
	if plan.EstimatedCompletionH != 12 {
		t.Errorf("estimated hours = %v, want 12", plan.EstimatedCompletionH)
	}
}

func TestBuild_PrerequisiteGatesCurrentTopic(t *testing.T) {
	// t1 mastered, so t2 unlocks; t3 stays gated behind t2
	entries := []model.MasteryEntry{entry("t1", 0.9, 3)}
	plan, err := Build(testGraph(t), 5, "matematik", entries, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.CurrentTopic != "t2" {
		t.Errorf("current topic = %q, want t2", plan.CurrentTopic)
	}
	if len(plan.Strengths) != 1 || plan.Strengths[0] != "t1" {
		t.Errorf("strengths = %v", plan.Strengths)
	}
	// mastered t1 drops out of the remaining-hours total
	if plan.EstimatedCompletionH != 8 {
		t.Errorf("estimated hours = %v, want 8", plan.EstimatedCompletionH)
	}
}

func TestBuild_WeakTopicBlocksProgress(t *testing.T) {
	// t1 still learning: it stays the current topic and shows as a weakness
	entries := []model.MasteryEntry{entry("t1", 0.3, 2)}
	plan, err := Build(testGraph(t), 5, "matematik", entries, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.CurrentTopic != "t1" {
		t.Errorf("current topic = %q, want t1", plan.CurrentTopic)
	}
	if len(plan.Weaknesses) != 1 || plan.Weaknesses[0] != "t1" {
		t.Errorf("weaknesses = %v", plan.Weaknesses)
	}
	if len(plan.RecommendedActivities) == 0 {
		t.Error("expected activities for the current topic")
	}
}

func TestBuild_AllMastered(t *testing.T) {
	entries := []model.MasteryEntry{
		entry("t1", 0.9, 3),
		entry("t2", 0.95, 4),
		entry("t3", 0.88, 3),
	}
	plan, err := Build(testGraph(t), 5, "matematik", entries, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !plan.Completed {
		t.Error("plan should be completed")
	}
	if plan.CurrentTopic != "" {
		t.Errorf("current topic = %q, want empty", plan.CurrentTopic)
	}
	if plan.EstimatedCompletionH != 0 {
		t.Errorf("estimated hours = %v, want 0", plan.EstimatedCompletionH)
	}
}

func TestBuild_PaceFactorScalesHours(t *testing.T) {
	plan, err := Build(testGraph(t), 5, "matematik", nil, Options{PaceFactor: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if plan.EstimatedCompletionH != 6 {
		t.Errorf("estimated hours = %v, want 6 at double pace", plan.EstimatedCompletionH)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	entries := []model.MasteryEntry{entry("t1", 0.7, 2)}
	a, err := Build(testGraph(t), 5, "matematik", entries, Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(testGraph(t), 5, "matematik", entries, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if a.CurrentTopic != b.CurrentTopic || a.EstimatedCompletionH != b.EstimatedCompletionH ||
		len(a.RecommendedActivities) != len(b.RecommendedActivities) {
		t.Errorf("plans differ: %+v vs %+v", a, b)
	}
}
