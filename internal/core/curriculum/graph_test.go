package curriculum

import (
	"errors"
	"testing"
)

func testNodes() []Node {
	return []Node{
		{ID: "a", Grade: 5, Subject: "matematik", Topic: "A"},
		{ID: "b", Grade: 5, Subject: "matematik", Topic: "B", Prerequisites: []string{"a"}},
		{ID: "c", Grade: 5, Subject: "matematik", Topic: "C", Prerequisites: []string{"a", "b"}},
		{ID: "d", Grade: 6, Subject: "matematik", Topic: "D"},
	}
}

func TestNewGraph_TopicsKeepAuthoredOrder(t *testing.T) {
	g, err := NewGraph(testNodes())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	topics := g.Topics(5, "matematik")
	want := []string{"a", "b", "c"}
	if len(topics) != len(want) {
		t.Fatalf("got %d topics, want %d", len(topics), len(want))
	}
	for i := range want {
		if topics[i] != want[i] {
			t.Errorf("topics[%d] = %q, want %q", i, topics[i], want[i])
		}
	}

	if got := g.Topics(6, "matematik"); len(got) != 1 || got[0] != "d" {
		t.Errorf("grade 6 topics = %v, want [d]", got)
	}
	if got := g.Topics(7, "matematik"); len(got) != 0 {
		t.Errorf("grade 7 topics = %v, want empty", got)
	}
}

func TestNewGraph_RejectsDuplicateIDs(t *testing.T) {
	nodes := testNodes()
	nodes = append(nodes, Node{ID: "a", Grade: 5, Subject: "matematik"})
	if _, err := NewGraph(nodes); err == nil {
		t.Fatal("expected error on duplicate topic id")
	}
}

func TestNewGraph_RejectsUnknownPrerequisite(t *testing.T) {
	nodes := []Node{
		{ID: "x", Grade: 5, Subject: "matematik", Prerequisites: []string{"ghost"}},
	}
	_, err := NewGraph(nodes)
	if !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("got %v, want ErrTopicNotFound", err)
	}
}

func TestNewGraph_RejectsCycle(t *testing.T) {
	nodes := []Node{
		{ID: "x", Grade: 5, Subject: "matematik", Prerequisites: []string{"y"}},
		{ID: "y", Grade: 5, Subject: "matematik", Prerequisites: []string{"x"}},
	}
	_, err := NewGraph(nodes)
	if !errors.Is(err, ErrCyclicCurriculum) {
		t.Fatalf("got %v, want ErrCyclicCurriculum", err)
	}
}

func TestGraph_PrerequisitesAndMetadata(t *testing.T) {
	g, err := NewGraph([]Node{
		{ID: "a", Grade: 5, Subject: "matematik", Objectives: []string{"obj1"}, EstimatedHours: 4},
		{ID: "b", Grade: 5, Subject: "matematik", Prerequisites: []string{"a"}},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	prereqs, err := g.Prerequisites("b")
	if err != nil || len(prereqs) != 1 || prereqs[0] != "a" {
		t.Errorf("Prerequisites(b) = %v, %v", prereqs, err)
	}
	if _, err := g.Prerequisites("ghost"); !errors.Is(err, ErrTopicNotFound) {
		t.Errorf("Prerequisites(ghost) err = %v, want ErrTopicNotFound", err)
	}

	meta, err := g.Metadata("a")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.EstimatedHours != 4 || len(meta.Objectives) != 1 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestLoad_BuiltInCurriculumIsValid(t *testing.T) {
	g, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, grade := range []int{5, 6, 7, 8} {
		if len(g.Topics(grade, SubjectMatematik)) == 0 {
			t.Errorf("no matematik topics for grade %d", grade)
		}
	}
	if len(g.Topics(5, SubjectFen)) == 0 {
		t.Error("no fen bilimleri topics for grade 5")
	}
}
