package planner

import (
	"fmt"
	"math"

	"github.com/efezeyus/aiogretmen-sub001/internal/core/curriculum"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/mastery"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
)

// Options tune the plan projection.
type Options struct {
	UpcomingTopics int
	PaceFactor     float64
}

// Plan is the derived study plan. It is never persisted; mastery plus the
// curriculum graph are the source of truth.
type Plan struct {
	Grade                int      `json:"grade"`
	Subject              string   `json:"subject"`
	Completed            bool     `json:"completed"`
	CurrentTopic         string   `json:"current_topic,omitempty"`
	UpcomingTopics       []string `json:"upcoming_topics"`
	OverallScore         float64  `json:"overall_score"`
	HasOverallScore      bool     `json:"has_overall_score"`
	Strengths            []string `json:"strengths"`
	Weaknesses           []string `json:"weaknesses"`
	RecommendedActivities []string `json:"recommended_activities"`
	EstimatedCompletionH float64  `json:"estimated_completion_hours"`
}

// Build projects mastery entries onto the curriculum. Pure: identical inputs
// produce identical plans.
func Build(graph *curriculum.Graph, grade int, subject string, entries []model.MasteryEntry, opts Options) (Plan, error) {
	if opts.UpcomingTopics <= 0 {
		opts.UpcomingTopics = 3
	}
	if opts.PaceFactor <= 0 {
		opts.PaceFactor = 1.0
	}

	order := graph.Topics(grade, subject)
	byTopic := make(map[string]model.MasteryEntry, len(entries))
	for _, e := range entries {
		byTopic[e.Topic] = e
	}

	levelOf := func(topicID string) string {
		e, ok := byTopic[topicID]
		if !ok {
			return model.LevelNotStarted
		}
		return mastery.DeriveLevel(e.Score, e.Attempts)
	}

	plan := Plan{
		Grade:          grade,
		Subject:        subject,
		UpcomingTopics: []string{},
		Strengths:      []string{},
		Weaknesses:     []string{},
		RecommendedActivities: []string{},
	}

	// current topic: first in authored order with all prerequisites at least
	// proficient and itself not mastered
	currentIdx := -1
	for i, topicID := range order {
		if levelOf(topicID) == model.LevelMastered {
			continue
		}
		prereqs, err := graph.Prerequisites(topicID)
		if err != nil {
			return Plan{}, err
		}
		ready := true
		for _, p := range prereqs {
			lv := levelOf(p)
			if lv != model.LevelProficient && lv != model.LevelMastered {
				ready = false
				break
			}
		}
		if ready {
			currentIdx = i
			break
		}
	}

	if currentIdx < 0 {
		plan.Completed = allMastered(order, levelOf)
	} else {
		plan.CurrentTopic = order[currentIdx]
		for i := currentIdx + 1; i < len(order) && len(plan.UpcomingTopics) < opts.UpcomingTopics; i++ {
			plan.UpcomingTopics = append(plan.UpcomingTopics, order[i])
		}
	}

	for _, topicID := range order {
		e, ok := byTopic[topicID]
		switch levelOf(topicID) {
		case model.LevelMastered:
			plan.Strengths = append(plan.Strengths, topicID)
		case model.LevelLearning:
			if ok && e.Attempts >= 1 {
				plan.Weaknesses = append(plan.Weaknesses, topicID)
			}
		}
	}

	if score, defined, err := scoreOf(entries); err == nil && defined {
		plan.OverallScore = score
		plan.HasOverallScore = true
	}

	if plan.CurrentTopic != "" {
		acts, err := activities(graph, plan.CurrentTopic, levelOf(plan.CurrentTopic))
		if err != nil {
			return Plan{}, err
		}
		plan.RecommendedActivities = acts
	}

	// remaining hours over the not-mastered tail, scaled by learning pace
	var remaining float64
	for _, topicID := range order {
		if levelOf(topicID) == model.LevelMastered {
			continue
		}
		meta, err := graph.Metadata(topicID)
		if err != nil {
			return Plan{}, err
		}
		remaining += meta.EstimatedHours
	}
	plan.EstimatedCompletionH = math.Round(remaining/opts.PaceFactor*10) / 10

	return plan, nil
}

func allMastered(order []string, levelOf func(string) string) bool {
	for _, topicID := range order {
		if levelOf(topicID) != model.LevelMastered {
			return false
		}
	}
	return len(order) > 0
}

func scoreOf(entries []model.MasteryEntry) (float64, bool, error) {
	return mastery.Overall(entries)
}

// activities derives a small deterministic activity list from the current
// topic's objectives and the student's level on it.
func activities(graph *curriculum.Graph, topicID, level string) ([]string, error) {
	meta, err := graph.Metadata(topicID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(meta.Objectives)+1)
	switch level {
	case model.LevelNotStarted:
		out = append(out, fmt.Sprintf("Konu anlatımı: %s", topicID))
		for _, obj := range meta.Objectives {
			out = append(out, fmt.Sprintf("Kazanım çalışması: %s", obj))
		}
	case model.LevelLearning:
		for _, obj := range meta.Objectives {
			out = append(out, fmt.Sprintf("Tekrar ve alıştırma: %s", obj))
		}
		out = append(out, fmt.Sprintf("Soru çözümü: %s", topicID))
	default: // proficient
		out = append(out, fmt.Sprintf("Pekiştirme testi: %s", topicID))
		for _, obj := range meta.Objectives {
			out = append(out, fmt.Sprintf("Zenginleştirme: %s", obj))
		}
	}
	return out, nil
}
