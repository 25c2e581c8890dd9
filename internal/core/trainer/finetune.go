package trainer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/efezeyus/aiogretmen-sub001/config"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Remote job statuses as the fine-tuning API reports them.
const (
	remoteRunning   = "running"
	remoteQueued    = "queued"
	remoteValidated = "validating_files"
	remoteSucceeded = "succeeded"
	remoteFailed    = "failed"
	remoteCancelled = "cancelled"
)

// JobStatus is a poll snapshot of a remote fine-tuning job.
type JobStatus struct {
	Status         string
	FineTunedModel string
	Error          string
}

func (j JobStatus) Terminal() bool {
	switch j.Status {
	case remoteSucceeded, remoteFailed, remoteCancelled:
		return true
	}
	return false
}

// FineTuner talks to the model tuning backend.
type FineTuner interface {
	UploadFile(ctx context.Context, localPath string) (fileID string, err error)
	CreateJob(ctx context.Context, fileID, baseModel string) (remoteJobID string, err error)
	Status(ctx context.Context, remoteJobID string) (JobStatus, error)
}

// openaiTuner drives the OpenAI files + fine_tuning endpoints.
type openaiTuner struct{}

func NewFineTuner() FineTuner {
	return &openaiTuner{}
}

func (t *openaiTuner) client() openai.Client {
	return openai.NewClient(
		option.WithAPIKey(config.Cfg.OpenAI.Key),
		option.WithBaseURL(config.Cfg.OpenAI.Endpoint),
		option.WithMaxRetries(1),
	)
}

func (t *openaiTuner) UploadFile(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	client := t.client()
	out, err := client.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeFineTune,
	})
	if err != nil {
		return "", fmt.Errorf("upload training file: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("file upload returned empty id")
	}
	return out.ID, nil
}

type createJobRequest struct {
	Model        string `json:"model"`
	TrainingFile string `json:"training_file"`
}

type jobResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	FineTunedModel string `json:"fine_tuned_model"`
	Error          *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *openaiTuner) CreateJob(ctx context.Context, fileID, baseModel string) (string, error) {
	client := t.client()
	req := createJobRequest{Model: baseModel, TrainingFile: fileID}
	var out jobResponse
	if err := client.Post(ctx, "/fine_tuning/jobs", req, &out); err != nil {
		return "", fmt.Errorf("create fine-tuning job: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("fine-tuning job returned empty id")
	}
	return out.ID, nil
}

func (t *openaiTuner) Status(ctx context.Context, remoteJobID string) (JobStatus, error) {
	client := t.client()
	var out jobResponse
	if err := client.Get(ctx, "/fine_tuning/jobs/"+remoteJobID, nil, &out); err != nil {
		return JobStatus{}, err
	}
	st := JobStatus{Status: out.Status, FineTunedModel: out.FineTunedModel}
	if out.Error != nil {
		st.Error = out.Error.Message
	}
	return st, nil
}
