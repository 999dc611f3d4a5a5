// Package gemini talks to the Gemini REST API for embeddings and text
// generation. Both clients share one rate limiter so the process stays
// under the account's request-per-second quota.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"finqa-orchestrator/internal/domain"
)

type Embedder struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewEmbedder creates an embedContent client for the given model.
func NewEmbedder(baseURL, model, apiKey string, client *http.Client, limiter *rate.Limiter) *Embedder {
	return &Embedder{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		Client:  client,
		Limiter: limiter,
	}
}

var _ domain.Embedder = (*Embedder)(nil)

type embedContentRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type embedContentResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

var taskTypes = map[domain.EmbedMode]string{
	domain.EmbedDocument: "RETRIEVAL_DOCUMENT",
	domain.EmbedQuery:    "RETRIEVAL_QUERY",
}

func (e *Embedder) Embed(ctx context.Context, text string, mode domain.EmbedMode) ([]float32, error) {
	if err := e.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embed rate limit: %w", err)
	}
	start := time.Now()

	taskType, ok := taskTypes[mode]
	if !ok {
		return nil, fmt.Errorf("unknown embed mode: %s", mode)
	}

	reqBody := embedContentRequest{
		Model:    "models/" + e.Model,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: taskType,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.BaseURL, e.Model, e.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		slog.Error("gemini_embed_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("call gemini embed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Error("gemini_embed_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("gemini embed returned status: %d", resp.StatusCode)
	}

	var respBody embedContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(respBody.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed returned empty vector")
	}

	slog.Info("gemini_embed_completed",
		slog.String("task_type", taskType),
		slog.Int("dimensions", len(respBody.Embedding.Values)),
		slog.Duration("elapsed", time.Since(start)))

	return respBody.Embedding.Values, nil
}

func (e *Embedder) Version() string {
	return "gemini:" + e.Model
}
