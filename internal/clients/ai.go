package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cvpipe/resume-worker/internal/domain"
)

// AIClient calls the content-generation service. Transport failures and 5xx
// responses are retryable by the caller; 4xx responses surface as errors the
// retry executor classifies as non-retryable.
type AIClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewAIClient(baseURL string, timeout time.Duration, logger *slog.Logger) *AIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GenerateContent requests a rewrite for one piece of content.
func (c *AIClient) GenerateContent(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ai service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ai service returned %d: %s", resp.StatusCode, string(payload))
	}

	var result domain.GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ai response: %w", err)
	}

	c.logger.Debug("AI content generated",
		slog.String("type", req.Type),
		slog.Int("tokens_used", result.TokensUsed),
		slog.String("model", result.Model),
	)

	return &result, nil
}
