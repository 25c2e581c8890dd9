package trainer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/evaluator"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ingest"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/miner"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInsufficientData means the ledger holds fewer eligible rows than the
	// training floor.
	ErrInsufficientData = errors.New("not enough eligible interactions for training")
	// ErrJobActive enforces the single-active-job invariant.
	ErrJobActive = errors.New("a training job is already pending or running")
	// ErrIntervalNotElapsed reports an automatic trigger inside the cooldown.
	// Manual triggers bypass the interval, never the data floor.
	ErrIntervalNotElapsed = errors.New("training interval has not elapsed")
	// ErrInvalidTransition rejects a job state change outside the machine.
	ErrInvalidTransition = errors.New("invalid job state transition")
	// ErrJobNotFound means no job with the given id exists.
	ErrJobNotFound = errors.New("training job not found")
)

// validNext maps each job state to the states it may move to. Terminal states
// map to nothing.
var validNext = map[string][]string{
	model.JobPending: {model.JobRunning, model.JobCancelled},
	model.JobRunning: {model.JobSucceeded, model.JobFailed, model.JobCancelled},
}

// ValidTransition reports whether from -> to is allowed.
func ValidTransition(from, to string) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Service owns the training pipeline: mine, upload, fine-tune, evaluate,
// maybe promote.
type Service struct {
	db     *gorm.DB
	miner  *miner.Service
	ledger *ledger.Service
	eval   *evaluator.Service
	router *provider.Router
	tuner  FineTuner

	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewService(db *gorm.DB, router *provider.Router, tuner FineTuner) *Service {
	return &Service{
		db:           db,
		miner:        miner.NewService(db),
		ledger:       ledger.NewService(db),
		eval:         evaluator.NewService(router),
		router:       router,
		tuner:        tuner,
		pollInterval: 30 * time.Second,
		pollTimeout:  4 * time.Hour,
	}
}

// NewServiceWith wires explicit collaborators and fast polling (tests).
func NewServiceWith(db *gorm.DB, router *provider.Router, tuner FineTuner, eval *evaluator.Service) *Service {
	s := NewService(db, router, tuner)
	s.eval = eval
	s.pollInterval = time.Millisecond
	s.pollTimeout = time.Second
	return s
}

// Trigger creates a new pending job if policy allows. Automatic triggers
// honor both the data floor and the cooldown interval; manual triggers skip
// only the interval.
func (s *Service) Trigger(ctx context.Context, auto bool) (model.TrainingJob, error) {
	pending, err := s.ledger.PendingTrainingCount(ctx, config.Cfg.Autolearn.ConfidenceThreshold)
	if err != nil {
		return model.TrainingJob{}, err
	}
	floor := config.Cfg.Autolearn.MinDataForTraining
	if pending < int64(floor) {
		return model.TrainingJob{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, pending, floor)
	}

	if auto {
		last, err := s.lastSucceeded(ctx)
		if err != nil {
			return model.TrainingJob{}, err
		}
		if last != nil && last.FinishedAt != nil {
			interval := time.Duration(config.Cfg.Autolearn.TrainingIntervalDays) * 24 * time.Hour
			if time.Since(*last.FinishedAt) < interval {
				return model.TrainingJob{}, ErrIntervalNotElapsed
			}
		}
	}

	job := model.TrainingJob{
		JobID:         uuid.NewString(),
		State:         model.JobPending,
		AutoTriggered: auto,
		BaseModel:     config.Cfg.Autolearn.BaseModel,
	}
	// the unique index on active states is enforced in code: create only when
	// no non-terminal job exists, inside one transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if e := tx.Model(&model.TrainingJob{}).
			Where("state IN ?", []string{model.JobPending, model.JobRunning}).
			Count(&active).Error; e != nil {
			return e
		}
		if active > 0 {
			return ErrJobActive
		}
		return tx.Create(&job).Error
	})
	if err != nil {
		return model.TrainingJob{}, err
	}

	logger.WithFields(map[string]interface{}{
		"job_id": job.JobID,
		"auto":   auto,
		"rows":   pending,
	}).Infof("%v: training job created", config.ModuleTrainer)
	return job, nil
}

// Run executes one job to completion. Callers run it in a goroutine; it
// records its outcome on the job row and never panics the process.
func (s *Service) Run(ctx context.Context, jobID string) {
	if err := s.run(ctx, jobID); err != nil {
		logger.Error(err, "%v: job %s failed", config.ModuleTrainer, jobID)
	}
}

func (s *Service) run(ctx context.Context, jobID string) error {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return err
	}
	now := time.Now()
	if err := s.transition(ctx, job, model.JobRunning, func(j *model.TrainingJob) {
		j.StartedAt = &now
	}); err != nil {
		return err
	}

	fail := func(cause error) error {
		finished := time.Now()
		_ = s.transition(ctx, job, model.JobFailed, func(j *model.TrainingJob) {
			j.Error = cause.Error()
			j.FinishedAt = &finished
		})
		return cause
	}

	export, err := s.miner.Mine(ctx, time.Time{}, time.Now())
	if err != nil {
		return fail(fmt.Errorf("mine training data: %w", err))
	}
	job.DataCount = export.ExampleCount
	job.InputFileRef = export.FileRef
	if err := s.db.WithContext(ctx).Model(&model.TrainingJob{}).
		Where("job_id = ?", job.JobID).
		Updates(map[string]interface{}{"data_count": job.DataCount, "input_file_ref": job.InputFileRef}).Error; err != nil {
		return fail(err)
	}

	local, cleanup, err := ingest.FetchToLocalTemp(ctx, export.FileRef)
	if err != nil {
		return fail(fmt.Errorf("fetch export: %w", err))
	}
	defer cleanup()

	fileID, err := s.tuner.UploadFile(ctx, local)
	if err != nil {
		return fail(err)
	}
	remoteID, err := s.tuner.CreateJob(ctx, fileID, job.BaseModel)
	if err != nil {
		return fail(err)
	}

	status, err := s.poll(ctx, remoteID)
	if err != nil {
		return fail(err)
	}
	if status.Status != remoteSucceeded {
		msg := status.Error
		if msg == "" {
			msg = "fine-tuning ended in state " + status.Status
		}
		return fail(errors.New(msg))
	}

	report, err := s.eval.Evaluate(ctx, status.FineTunedModel)
	if err != nil {
		return fail(fmt.Errorf("evaluate candidate: %w", err))
	}
	metricsJSON, _ := json.Marshal(report)

	promoted := s.maybePromote(ctx, status.FineTunedModel, report)

	finished := time.Now()
	return s.transition(ctx, job, model.JobSucceeded, func(j *model.TrainingJob) {
		j.ResultingModel = status.FineTunedModel
		j.MetricsJSON = string(metricsJSON)
		j.Promoted = promoted
		j.FinishedAt = &finished
	})
}

func (s *Service) poll(ctx context.Context, remoteID string) (JobStatus, error) {
	deadline := time.Now().Add(s.pollTimeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		status, err := s.tuner.Status(ctx, remoteID)
		if err == nil && status.Terminal() {
			return status, nil
		}
		if err != nil {
			logger.Warn("%v: poll %s failed: %v", config.ModuleTrainer, remoteID, err)
		}
		if time.Now().After(deadline) {
			return JobStatus{}, fmt.Errorf("fine-tuning job %s did not finish within %s", remoteID, s.pollTimeout)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return JobStatus{}, ctx.Err()
		}
	}
}

// maybePromote swaps the serving model when the candidate clears the absolute
// bar and beats the current model's ledger score by the configured margin.
func (s *Service) maybePromote(ctx context.Context, candidate string, report evaluator.Report) bool {
	bar := config.Cfg.Autolearn.AutoDeployThreshold
	if report.OverallScore < bar {
		logger.Info("%v: candidate %s scored %.3f, below deploy bar %.3f", config.ModuleTrainer, candidate, report.OverallScore, bar)
		return false
	}
	_, current := s.router.CurrentModel()
	currentScore := 0.0
	if metric, err := s.ledger.MetricFor(ctx, current); err == nil && metric != nil {
		currentScore = metric.Score
	}
	if report.OverallScore <= currentScore+config.Cfg.Autolearn.PromotionMargin {
		logger.Info("%v: candidate %s (%.3f) does not beat %s (%.3f) by margin", config.ModuleTrainer, candidate, report.OverallScore, current, currentScore)
		return false
	}
	if err := s.router.UpdateCurrentModel(candidate); err != nil {
		logger.Error(err, "%v: promotion swap failed", config.ModuleTrainer)
		return false
	}
	logger.Info("%v: promoted %s over %s", config.ModuleTrainer, candidate, current)
	return true
}

func (s *Service) transition(ctx context.Context, job *model.TrainingJob, to string, mutate func(*model.TrainingJob)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fresh model.TrainingJob
		if err := tx.Where("job_id = ?", job.JobID).First(&fresh).Error; err != nil {
			return err
		}
		if !ValidTransition(fresh.State, to) {
			return fmt.Errorf("%s -> %s: %w", fresh.State, to, ErrInvalidTransition)
		}
		fresh.State = to
		if mutate != nil {
			mutate(&fresh)
		}
		if err := tx.Save(&fresh).Error; err != nil {
			return err
		}
		*job = fresh
		return nil
	})
}

// Cancel moves a non-terminal job to cancelled.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.Job(ctx, jobID)
	if err != nil {
		return err
	}
	finished := time.Now()
	return s.transition(ctx, job, model.JobCancelled, func(j *model.TrainingJob) {
		j.FinishedAt = &finished
	})
}

// Job fetches one job by its public id.
func (s *Service) Job(ctx context.Context, jobID string) (*model.TrainingJob, error) {
	var job model.TrainingJob
	err := s.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Service) lastSucceeded(ctx context.Context) (*model.TrainingJob, error) {
	var job model.TrainingJob
	err := s.db.WithContext(ctx).
		Where("state = ?", model.JobSucceeded).
		Order("id DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// Status is the training surface the API exposes.
type Status struct {
	PendingExamples  int64              `json:"pending_examples"`
	DataFloor        int                `json:"data_floor"`
	ActiveJob        *model.TrainingJob `json:"active_job,omitempty"`
	LastJob          *model.TrainingJob `json:"last_job,omitempty"`
	NextAutoEligible *time.Time         `json:"next_auto_eligible,omitempty"`
	CurrentProvider  string             `json:"current_provider"`
	CurrentModel     string             `json:"current_model"`
}

// GetStatus summarizes the autolearn loop.
func (s *Service) GetStatus(ctx context.Context) (Status, error) {
	st := Status{DataFloor: config.Cfg.Autolearn.MinDataForTraining}

	pending, err := s.ledger.PendingTrainingCount(ctx, config.Cfg.Autolearn.ConfidenceThreshold)
	if err != nil {
		return Status{}, err
	}
	st.PendingExamples = pending

	var active model.TrainingJob
	err = s.db.WithContext(ctx).
		Where("state IN ?", []string{model.JobPending, model.JobRunning}).
		Order("id DESC").
		First(&active).Error
	if err == nil {
		st.ActiveJob = &active
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Status{}, err
	}

	var last model.TrainingJob
	err = s.db.WithContext(ctx).
		Where("state IN ?", []string{model.JobSucceeded, model.JobFailed, model.JobCancelled}).
		Order("id DESC").
		First(&last).Error
	if err == nil {
		st.LastJob = &last
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Status{}, err
	}

	if succeeded, err := s.lastSucceeded(ctx); err == nil && succeeded != nil && succeeded.FinishedAt != nil {
		next := succeeded.FinishedAt.Add(time.Duration(config.Cfg.Autolearn.TrainingIntervalDays) * 24 * time.Hour)
		st.NextAutoEligible = &next
	}

	st.CurrentProvider, st.CurrentModel = s.router.CurrentModel()
	return st, nil
}
