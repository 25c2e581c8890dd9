package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the append-only interaction log. Every answered or failed
// request writes exactly one row; rows are never mutated afterwards except to
// flip training_data_generated once (done by the miner) and to attach user
// feedback.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Filter narrows ledger reads.
type Filter struct {
	Since    *time.Time
	Until    *time.Time
	Provider string
	Grade    int
	Subject  string
	Feedback string
	Page     int
	PageSize int
}

// Append inserts one interaction row.
func (s *Service) Append(ctx context.Context, rec *model.Interaction) error {
	if rec.UserFeedback == "" {
		rec.UserFeedback = model.FeedbackNone
	}
	return s.db.WithContext(ctx).Create(rec).Error
}

// SetFeedback attaches the student's verdict to an interaction.
func (s *Service) SetFeedback(ctx context.Context, id uint, feedback string) error {
	if feedback != model.FeedbackPositive && feedback != model.FeedbackNegative && feedback != model.FeedbackNone {
		return errors.New("unknown feedback value")
	}
	return s.db.WithContext(ctx).Model(&model.Interaction{}).
		Where("id = ?", id).
		Update("user_feedback", feedback).Error
}

// Query reads interactions matching the filter, newest first, paged.
func (s *Service) Query(ctx context.Context, f Filter) ([]model.Interaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Interaction{})
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		q = q.Where("created_at <= ?", *f.Until)
	}
	if f.Provider != "" {
		q = q.Where("provider_id = ?", f.Provider)
	}
	if f.Grade > 0 {
		q = q.Where("grade = ?", f.Grade)
	}
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.Feedback != "" {
		q = q.Where("user_feedback = ?", f.Feedback)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var records []model.Interaction
	err := q.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&records).Error
	return records, total, err
}

// HistoryTurn is one (question, answer excerpt) pair for prompt history.
type HistoryTurn struct {
	Question      string
	AnswerExcerpt string
}

// RecentHistory returns the student's last n successful turns in
// chronological order, answers trimmed to excerptRunes.
func (s *Service) RecentHistory(ctx context.Context, studentID string, grade int, subject string, n, excerptRunes int) ([]HistoryTurn, error) {
	if n <= 0 {
		return nil, nil
	}
	var records []model.Interaction
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND grade = ? AND subject = ? AND failed = ?", studentID, grade, subject, false).
		Order("id DESC").
		Limit(n).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	turns := make([]HistoryTurn, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		turns = append(turns, HistoryTurn{
			Question:      records[i].PromptText,
			AnswerExcerpt: excerpt(records[i].ResponseText, excerptRunes),
		})
	}
	return turns, nil
}

func excerpt(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 280
	}
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes])
}

// PendingTrainingCount counts rows eligible for mining that were not yet
// projected into training data.
func (s *Service) PendingTrainingCount(ctx context.Context, confidenceThreshold float64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Interaction{}).
		Where("training_data_generated = ? AND failed = ?", false, false).
		Where("user_feedback = ? OR confidence >= ?", model.FeedbackPositive, confidenceThreshold).
		Count(&count).Error
	return count, err
}

// RecomputeModelMetrics rebuilds the per-model aggregates from the ledger.
// Idempotent: recomputing over the same rows yields the same numbers.
func (s *Service) RecomputeModelMetrics(ctx context.Context) ([]model.ModelMetric, error) {
	type row struct {
		ModelID       string
		UsageCount    int64
		AvgLatencyMs  float64
		PositiveRatio float64
		AvgConfidence float64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&model.Interaction{}).
		Select(`model_id,
			COUNT(*) AS usage_count,
			AVG(latency_ms) AS avg_latency_ms,
			AVG(CASE WHEN user_feedback = ? THEN 1.0 ELSE 0.0 END) AS positive_ratio,
			AVG(confidence) AS avg_confidence`, model.FeedbackPositive).
		Where("failed = ? AND model_id <> ''", false).
		Group("model_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]model.ModelMetric, 0, len(rows))
	for _, r := range rows {
		m := model.ModelMetric{
			ModelID:       r.ModelID,
			UsageCount:    r.UsageCount,
			AvgLatencyMs:  r.AvgLatencyMs,
			PositiveRatio: r.PositiveRatio,
			AvgConfidence: r.AvgConfidence,
			Score:         r.PositiveRatio * r.AvgConfidence,
		}
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "model_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"usage_count", "avg_latency_ms", "positive_ratio", "avg_confidence", "score", "updated_at",
			}),
		}).Create(&m).Error
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// MetricFor returns the stored aggregate for one model, nil when absent.
func (s *Service) MetricFor(ctx context.Context, modelID string) (*model.ModelMetric, error) {
	var m model.ModelMetric
	err := s.db.WithContext(ctx).Where("model_id = ?", modelID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
