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

// maxArtifactSize bounds PDF downloads.
const maxArtifactSize = 32 << 20

// RenderClient calls the document-rendering service. When the service
// answers 202 with a status URL, the client polls at a fixed interval up to a
// bounded wait window; exceeding the window is a timeout failure.
type RenderClient struct {
	baseURL      string
	http         *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	waitWindow   time.Duration
}

func NewRenderClient(baseURL string, timeout, pollInterval, waitWindow time.Duration, logger *slog.Logger) *RenderClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if waitWindow <= 0 {
		waitWindow = 2 * time.Minute
	}
	return &RenderClient{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: timeout},
		logger:       logger,
		pollInterval: pollInterval,
		waitWindow:   waitWindow,
	}
}

// Render submits a payload and waits for the terminal result. The returned
// error carries the service's reported error text when one is present.
func (c *RenderClient) Render(ctx context.Context, payload domain.RenderPayload) (*domain.RenderResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("render service returned %d: %s", resp.StatusCode, string(payload))
	}

	var result domain.RenderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode render response: %w", err)
	}

	if result.StatusURL != "" && result.PDFURL == "" && result.HTML == "" && result.Error == "" {
		return c.awaitCompletion(ctx, result.StatusURL)
	}

	return c.finalize(&result)
}

// awaitCompletion polls the status URL until the render reaches a terminal
// state or the wait window closes.
func (c *RenderClient) awaitCompletion(ctx context.Context, statusURL string) (*domain.RenderResult, error) {
	deadline := time.Now().Add(c.waitWindow)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.logger.Debug("Awaiting render completion",
		slog.String("status_url", statusURL),
		slog.Duration("wait_window", c.waitWindow),
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return nil, domain.ErrRenderTimeout
			}

			result, done, err := c.pollStatus(ctx, statusURL)
			if err != nil {
				return nil, err
			}
			if done {
				return c.finalize(result)
			}
		}
	}
}

func (c *RenderClient) pollStatus(ctx context.Context, statusURL string) (*domain.RenderResult, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("render status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("render status returned %d", resp.StatusCode)
	}

	var result domain.RenderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("failed to decode render status: %w", err)
	}

	done := result.PDFURL != "" || result.HTML != "" || result.Error != ""
	return &result, done, nil
}

// finalize maps a terminal render response to a result or error.
func (c *RenderClient) finalize(result *domain.RenderResult) (*domain.RenderResult, error) {
	if result.Error != "" {
		return nil, fmt.Errorf("Renderer error: %s", result.Error)
	}
	if result.PDFURL == "" && result.HTML == "" {
		return nil, domain.ErrNoArtifact
	}
	return result, nil
}

// Download fetches a rendered PDF by reference.
func (c *RenderClient) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact body: %w", err)
	}

	return data, nil
}
