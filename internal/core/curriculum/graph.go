package curriculum

import (
	"errors"
	"fmt"
)

var (
	// ErrTopicNotFound reports an unknown topic id.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrCyclicCurriculum reports a prerequisite cycle; the graph refuses to load.
	ErrCyclicCurriculum = errors.New("curriculum graph is not a DAG")
)

// Node is one authored curriculum topic.
type Node struct {
	ID             string
	Grade          int
	Subject        string
	LearningArea   string
	Unit           string
	Topic          string
	Objectives     []string
	EstimatedHours float64
	Prerequisites  []string
}

// Metadata is the per-topic read view.
type Metadata struct {
	Objectives     []string `json:"objectives"`
	EstimatedHours float64  `json:"estimated_hours"`
	Unit           string   `json:"unit"`
	LearningArea   string   `json:"learning_area"`
}

// Graph is the static MEB curriculum, read-only after construction.
type Graph struct {
	nodes map[string]Node
	// authored order per (grade, subject)
	order map[string][]string
}

func scopeKey(grade int, subject string) string {
	return fmt.Sprintf("%d/%s", grade, subject)
}

// NewGraph validates the node set and builds the graph. Prerequisites must
// reference known topics and must not form a cycle.
func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]Node, len(nodes)),
		order: make(map[string][]string),
	}
	for _, n := range nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate topic id %q", n.ID)
		}
		g.nodes[n.ID] = n
		key := scopeKey(n.Grade, n.Subject)
		g.order[key] = append(g.order[key], n.ID)
	}
	for _, n := range nodes {
		for _, p := range n.Prerequisites {
			if _, ok := g.nodes[p]; !ok {
				return nil, fmt.Errorf("topic %q: unknown prerequisite %q: %w", n.ID, p, ErrTopicNotFound)
			}
		}
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkAcyclic runs Kahn's algorithm over the prerequisite edges.
func (g *Graph) checkAcyclic() error {
	indeg := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for id, n := range g.nodes {
		if _, ok := indeg[id]; !ok {
			indeg[id] = 0
		}
		for _, p := range n.Prerequisites {
			indeg[id]++
			dependents[p] = append(dependents[p], id)
		}
	}
	queue := make([]string, 0, len(indeg))
	for id, d := range indeg {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range dependents[id] {
			indeg[dep]--
			if indeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if visited != len(g.nodes) {
		return ErrCyclicCurriculum
	}
	return nil
}

// Topics returns topic ids for a (grade, subject) in the authored order.
func (g *Graph) Topics(grade int, subject string) []string {
	ids := g.order[scopeKey(grade, subject)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Prerequisites returns the prerequisite topic ids of the given topic.
func (g *Graph) Prerequisites(topicID string) ([]string, error) {
	n, ok := g.nodes[topicID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", topicID, ErrTopicNotFound)
	}
	out := make([]string, len(n.Prerequisites))
	copy(out, n.Prerequisites)
	return out, nil
}

// Metadata returns the authored metadata of the given topic.
func (g *Graph) Metadata(topicID string) (Metadata, error) {
	n, ok := g.nodes[topicID]
	if !ok {
		return Metadata{}, fmt.Errorf("%q: %w", topicID, ErrTopicNotFound)
	}
	return Metadata{
		Objectives:     append([]string(nil), n.Objectives...),
		EstimatedHours: n.EstimatedHours,
		Unit:           n.Unit,
		LearningArea:   n.LearningArea,
	}, nil
}

// Node returns the full node for the given topic.
func (g *Graph) Node(topicID string) (Node, error) {
	n, ok := g.nodes[topicID]
	if !ok {
		return Node{}, fmt.Errorf("%q: %w", topicID, ErrTopicNotFound)
	}
	return n, nil
}

// HasTopic reports whether the topic exists in the graph.
func (g *Graph) HasTopic(topicID string) bool {
	_, ok := g.nodes[topicID]
	return ok
}
