package mastery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"

	"gorm.io/gorm"
)

var (
	// ErrScoreOutOfRange rejects updates with score outside [0,1].
	ErrScoreOutOfRange = errors.New("score must be within [0,1]")
	// ErrNegativeTime rejects updates with negative study time.
	ErrNegativeTime = errors.New("time must be >= 0")
)

// Service maintains per-(student, grade, subject, topic) mastery state.
type Service struct {
	db *gorm.DB

	// per-(student, topic) locks so concurrent updates never race the
	// running mean
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, locks: make(map[string]*sync.Mutex)}
}

func (s *Service) lockFor(studentID, grade, subject, topic string) *sync.Mutex {
	key := studentID + "|" + grade + "|" + subject + "|" + topic
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// DeriveLevel maps (score, attempts) to the four-valued mastery level.
func DeriveLevel(score float64, attempts int) string {
	switch {
	case attempts == 0:
		return model.LevelNotStarted
	case score >= 0.85 && attempts >= 3:
		return model.LevelMastered
	case score >= 0.85:
		return model.LevelProficient
	case score >= 0.6:
		return model.LevelProficient
	default:
		return model.LevelLearning
	}
}

// Update upserts the mastery entry with a running-mean score.
func (s *Service) Update(ctx context.Context, studentID string, grade int, subject, topic string, score float64, timeS int64) (*model.MasteryEntry, error) {
	if score < 0 || score > 1 {
		return nil, ErrScoreOutOfRange
	}
	if timeS < 0 {
		return nil, ErrNegativeTime
	}

	l := s.lockFor(studentID, fmt.Sprintf("%d", grade), subject, topic)
	l.Lock()
	defer l.Unlock()

	var entry model.MasteryEntry
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND grade = ? AND subject = ? AND topic = ?", studentID, grade, subject, topic).
		First(&entry).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = model.MasteryEntry{
			StudentID: studentID,
			Grade:     grade,
			Subject:   subject,
			Topic:     topic,
		}
	}

	entry.Score = (entry.Score*float64(entry.Attempts) + score) / float64(entry.Attempts+1)
	entry.Attempts++
	entry.TotalTimeS += timeS
	entry.LastUpdate = time.Now()
	entry.Level = DeriveLevel(entry.Score, entry.Attempts)

	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Get returns all mastery entries for the (student, grade, subject) scope.
func (s *Service) Get(ctx context.Context, studentID string, grade int, subject string) ([]model.MasteryEntry, error) {
	var entries []model.MasteryEntry
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND grade = ? AND subject = ?", studentID, grade, subject).
		Order("topic ASC").
		Find(&entries).Error
	return entries, err
}

// OverallScore is the attempts-weighted mean of topic scores. The second
// return value is false when the student has no entries in scope.
func (s *Service) OverallScore(ctx context.Context, studentID string, grade int, subject string) (float64, bool, error) {
	entries, err := s.Get(ctx, studentID, grade, subject)
	if err != nil {
		return 0, false, err
	}
	return Overall(entries)
}

// Overall computes the attempts-weighted mean over the given entries.
func Overall(entries []model.MasteryEntry) (float64, bool, error) {
	var weighted float64
	var attempts int
	for _, e := range entries {
		weighted += e.Score * float64(e.Attempts)
		attempts += e.Attempts
	}
	if attempts == 0 {
		return 0, false, nil
	}
	return weighted / float64(attempts), true, nil
}
