package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"finqa-orchestrator/internal/domain"
)

type Generator struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewGenerator creates a generateContent client for the given model.
func NewGenerator(baseURL, model, apiKey string, client *http.Client, limiter *rate.Limiter) *Generator {
	return &Generator{
		BaseURL: baseURL,
		Model:   model,
		APIKey:  apiKey,
		Client:  client,
		Limiter: limiter,
	}
}

var _ domain.LLMClient = (*Generator)(nil)

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generate rate limit: %w", err)
	}
	start := time.Now()

	reqBody := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.BaseURL, g.Model, g.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		slog.Error("gemini_generate_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("call gemini generate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Error("gemini_generate_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return "", fmt.Errorf("gemini generate returned status: %d", resp.StatusCode)
	}

	var respBody generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(respBody.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate returned no candidates")
	}

	var b strings.Builder
	for _, p := range respBody.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()

	slog.Info("gemini_generate_completed",
		slog.Int("response_chars", len(text)),
		slog.Duration("elapsed", time.Since(start)))

	return text, nil
}

func (g *Generator) Version() string {
	return "gemini:" + g.Model
}
