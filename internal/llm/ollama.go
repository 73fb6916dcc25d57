package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mrwolf/ppl-server/internal/models"
)

const serviceName = "ollama"

// Client wraps the Ollama API
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewClient creates a new Ollama client
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// GenerateRequest is the request body for /api/generate
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"` // "json" for JSON output
}

// GenerateResponse is the response from /api/generate
type GenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"created_at"`
}

// Generate sends a prompt in JSON format mode and returns the response
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	return c.generate(ctx, GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
		Format: "json",
	})
}

// GenerateText sends a prompt without JSON format requirement
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return c.generate(ctx, GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: system,
	})
}

// generate retries with exponential backoff. Failures are returned as
// *models.ExternalServiceError
func (c *Client) generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			backoff := c.backoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return "", &models.ExternalServiceError{Service: serviceName, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		response, err := c.doGenerate(ctx, body)
		if err == nil {
			return response, nil
		}
		lastErr = err
	}

	return "", &models.ExternalServiceError{
		Service: serviceName,
		Err:     fmt.Errorf("after %d attempts: %w", c.attempts, lastErr),
	}
}

func (c *Client) doGenerate(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return genResp.Response, nil
}

// HealthCheck checks if Ollama is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("connecting to ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	return nil
}
