package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// EmbedTexts embeds inputs in batches of up to 100. A batch that keeps
// failing after the configured retries fails the whole call; partial vector
// sets never reach the index.
func EmbedTexts(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	key := config.Cfg.OpenAI.Key
	if key == "" {
		return nil, errors.New("missing openai key")
	}
	retries := config.Cfg.Ingest.EmbedRetries
	if retries <= 0 {
		retries = 3
	}

	var all [][]float32
	for i := 0; i < len(inputs); i += 100 {
		j := i + 100
		if j > len(inputs) {
			j = len(inputs)
		}
		batch := inputs[i:j]

		vectors, err := embedBatchWithRetry(ctx, key, batch, retries)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"model":       config.Cfg.OpenAI.EmbeddingModel,
				"batch_start": i,
				"batch_end":   j,
				"error":       err,
			}).Errorf("%v: embedding batch failed", config.ModuleIngest)
			return nil, err
		}
		logger.WithFields(map[string]interface{}{
			"batch_start": i,
			"batch_end":   j,
			"vectors":     len(vectors),
		}).Infof("%v: embedding batch done", config.ModuleIngest)
		all = append(all, vectors...)
	}
	return all, nil
}

func embedBatchWithRetry(ctx context.Context, apiKey string, batch []string, retries int) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		vectors, err := embedBatch(ctx, apiKey, batch)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case <-time.After(time.Duration(attempt+1) * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func embedBatch(ctx context.Context, apiKey string, batch []string) ([][]float32, error) {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(config.Cfg.OpenAI.Endpoint),
		option.WithMaxRetries(0),
	)

	req := embeddingRequest{Model: config.Cfg.OpenAI.EmbeddingModel, Input: batch}
	var out embeddingResponse
	if err := client.Post(ctx, "/embeddings", req, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Message)
	}
	vectors := make([][]float32, len(out.Data))
	for i := range out.Data {
		src := out.Data[i].Embedding
		vec := make([]float32, len(src))
		for k := range src {
			vec[k] = float32(src[k])
		}
		vectors[i] = vec
	}
	return vectors, nil
}
