package model

import (
	"time"

	"gorm.io/gorm"
)

// Document is an ingested curriculum PDF.
type Document struct {
	gorm.Model
	Grade            int    `gorm:"not null;index:idx_doc_scope" json:"grade"`
	Subject          string `gorm:"size:64;not null;index:idx_doc_scope" json:"subject"`
	SourceHash       string `gorm:"size:64;not null;uniqueIndex:uniq_doc_source" json:"source_hash"`
	OriginalFilename string `gorm:"size:255" json:"original_filename"`
	FilePath         string `gorm:"size:512" json:"file_path"`
	Collection       string `gorm:"size:128;index" json:"collection"`
	ChunkCount       int    `gorm:"not null;default:0" json:"chunk_count"`
	Status           string `gorm:"size:32;not null;default:'uploaded'" json:"status"`
}

// Chunk mirrors one Milvus vector row for citation lookups.
type Chunk struct {
	gorm.Model
	DocumentID  uint   `gorm:"not null;index" json:"document_id"`
	Collection  string `gorm:"size:128;not null;index" json:"collection"`
	ChunkIndex  int32  `gorm:"not null" json:"chunk_index"`
	PageIndex   int32  `gorm:"not null" json:"page_index"`
	Content     string `gorm:"type:text;not null" json:"content"`
	ContentHash string `gorm:"size:64;not null" json:"content_hash"`
	MilvusID    int64  `gorm:"not null" json:"milvus_id"`
	TokenCount  int    `json:"token_count"`
}

// Feedback values on an interaction.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
	FeedbackNone     = "none"
)

// Interaction is one append-only ledger row. Rows are never mutated except to
// flip TrainingDataGenerated once.
type Interaction struct {
	ID                    uint      `gorm:"primarykey" json:"id"`
	CreatedAt             time.Time `gorm:"index" json:"created_at"`
	StudentID             string    `gorm:"size:64;not null;index" json:"student_id"`
	Grade                 int       `gorm:"not null;index:idx_int_scope" json:"grade"`
	Subject               string    `gorm:"size:64;not null;index:idx_int_scope" json:"subject"`
	Topic                 string    `gorm:"size:128" json:"topic"`
	Mode                  string    `gorm:"size:16;not null" json:"mode"`
	PromptText            string    `gorm:"type:text;not null" json:"prompt_text"`
	ResponseText          string    `gorm:"type:text" json:"response_text"`
	ProviderID            string    `gorm:"size:32;index" json:"provider_id"`
	ModelID               string    `gorm:"size:128;index" json:"model_id"`
	LatencyMs             int64     `json:"latency_ms"`
	InputTokens           int       `json:"input_tokens"`
	OutputTokens          int       `json:"output_tokens"`
	UserFeedback          string    `gorm:"size:16;not null;default:'none'" json:"user_feedback"`
	Confidence            float64   `json:"confidence"`
	TrainingDataGenerated bool      `gorm:"not null;default:false;index" json:"training_data_generated"`
	Failed                bool      `gorm:"not null;default:false" json:"failed"`
	ErrorKind             string    `gorm:"size:64" json:"error_kind,omitempty"`
}

// Mastery levels derived from (score, attempts).
const (
	LevelNotStarted = "not_started"
	LevelLearning   = "learning"
	LevelProficient = "proficient"
	LevelMastered   = "mastered"
)

// MasteryEntry is the per-(student, grade, subject, topic) mastery state.
type MasteryEntry struct {
	gorm.Model
	StudentID  string    `gorm:"size:64;not null;uniqueIndex:uniq_mastery" json:"student_id"`
	Grade      int       `gorm:"not null;uniqueIndex:uniq_mastery" json:"grade"`
	Subject    string    `gorm:"size:64;not null;uniqueIndex:uniq_mastery" json:"subject"`
	Topic      string    `gorm:"size:128;not null;uniqueIndex:uniq_mastery" json:"topic"`
	Score      float64   `gorm:"not null;default:0" json:"score"`
	Attempts   int       `gorm:"not null;default:0" json:"attempts"`
	TotalTimeS int64     `gorm:"not null;default:0" json:"total_time_s"`
	LastUpdate time.Time `json:"last_update"`
	Level      string    `gorm:"size:16;not null;default:'not_started'" json:"level"`
}

// Training job states. Terminal states never transition.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// TrainingJob is one fine-tuning run.
type TrainingJob struct {
	gorm.Model
	JobID          string     `gorm:"size:64;not null;uniqueIndex" json:"job_id"`
	State          string     `gorm:"size:16;not null;index" json:"state"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	AutoTriggered  bool       `gorm:"not null;default:false" json:"auto_triggered"`
	DataCount      int        `gorm:"not null;default:0" json:"data_count"`
	InputFileRef   string     `gorm:"size:512" json:"input_file_ref"`
	BaseModel      string     `gorm:"size:128;not null" json:"base_model"`
	ResultingModel string     `gorm:"size:128" json:"resulting_model,omitempty"`
	MetricsJSON    string     `gorm:"type:text" json:"metrics_json,omitempty"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	Promoted       bool       `gorm:"not null;default:false" json:"promoted"`
}

// ModelMetric holds rolling per-model aggregates recomputed from the ledger.
type ModelMetric struct {
	gorm.Model
	ModelID       string  `gorm:"size:128;not null;uniqueIndex" json:"model_id"`
	UsageCount    int64   `gorm:"not null;default:0" json:"usage_count"`
	AvgLatencyMs  float64 `gorm:"not null;default:0" json:"avg_latency_ms"`
	PositiveRatio float64 `gorm:"not null;default:0" json:"positive_ratio"`
	AvgConfidence float64 `gorm:"not null;default:0" json:"avg_confidence"`
	Score         float64 `gorm:"not null;default:0" json:"score"`
}

// TrainingExport records one miner output file.
type TrainingExport struct {
	gorm.Model
	FileRef      string `gorm:"size:512;not null" json:"file_ref"`
	ExampleCount int    `gorm:"not null" json:"example_count"`
	DroppedCount int    `gorm:"not null;default:0" json:"dropped_count"`
	WarningsJSON string `gorm:"type:text" json:"warnings_json,omitempty"`
}

// SchedulerLease is a named lease row; the holder with an unexpired lease is
// the only scheduler instance allowed to create jobs.
type SchedulerLease struct {
	gorm.Model
	Name      string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	HolderID  string    `gorm:"size:64;not null" json:"holder_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// All returns every model for migration.
func All() []interface{} {
	return []interface{}{
		&Document{},
		&Chunk{},
		&Interaction{},
		&MasteryEntry{},
		&TrainingJob{},
		&ModelMetric{},
		&TrainingExport{},
		&SchedulerLease{},
	}
}
