package trainer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const leaseName = "autolearn-scheduler"

// Scheduler runs the periodic training check. A database lease guarantees
// that only one instance creates jobs even when several replicas run the
// loop.
type Scheduler struct {
	db       *gorm.DB
	trainer  *Service
	cron     *cron.Cron
	holderID string
	leaseTTL time.Duration
}

func NewScheduler(db *gorm.DB, trainer *Service) *Scheduler {
	return &Scheduler{
		db:       db,
		trainer:  trainer,
		cron:     cron.New(),
		holderID: uuid.NewString(),
		leaseTTL: 10 * time.Minute,
	}
}

// Start registers the periodic check and launches the cron loop.
func (s *Scheduler) Start() error {
	hours := config.Cfg.Autolearn.CheckIntervalHours
	if hours <= 0 {
		hours = 6
	}
	spec := fmt.Sprintf("@every %dh", hours)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("%v: scheduler started, checking every %dh", config.ModuleTrainer, hours)
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.leaseTTL)
	defer cancel()

	ok, err := s.AcquireLease(ctx)
	if err != nil {
		logger.Error(err, "%v: lease check failed", config.ModuleTrainer)
		return
	}
	if !ok {
		logger.Debug("%v: another instance holds the scheduler lease", config.ModuleTrainer)
		return
	}

	job, err := s.trainer.Trigger(ctx, true)
	switch {
	case err == nil:
		logger.Info("%v: scheduled training job %s", config.ModuleTrainer, job.JobID)
		go s.trainer.Run(context.Background(), job.JobID)
	case errors.Is(err, ErrInsufficientData),
		errors.Is(err, ErrIntervalNotElapsed),
		errors.Is(err, ErrJobActive):
		logger.Debug("%v: no training this tick: %v", config.ModuleTrainer, err)
	default:
		logger.Error(err, "%v: scheduled trigger failed", config.ModuleTrainer)
	}
}

// AcquireLease takes or renews the named lease. It returns false when a
// different live holder owns it.
func (s *Scheduler) AcquireLease(ctx context.Context) (bool, error) {
	now := time.Now()
	expires := now.Add(s.leaseTTL)

	// renew or steal an expired lease in one guarded update
	res := s.db.WithContext(ctx).Model(&model.SchedulerLease{}).
		Where("name = ? AND (holder_id = ? OR expires_at < ?)", leaseName, s.holderID, now).
		Updates(map[string]interface{}{"holder_id": s.holderID, "expires_at": expires})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var existing model.SchedulerLease
	err := s.db.WithContext(ctx).Where("name = ?", leaseName).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		lease := model.SchedulerLease{Name: leaseName, HolderID: s.holderID, ExpiresAt: expires}
		if e := s.db.WithContext(ctx).Create(&lease).Error; e != nil {
			// lost the race to another instance
			return false, nil
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
