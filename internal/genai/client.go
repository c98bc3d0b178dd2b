package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"macro-journal/internal/retry"
)

const (
	snackPath  = "/claude-snack"
	reportPath = "/claude-report"
)

// Client talks to the text-generation proxy. Calls are single-attempt: a
// failed generation is handled by the calling rule (fallback text or a
// visible error), never retried automatically.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Snack requests a snack suggestion for the prompt.
func (c *Client) Snack(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, snackPath, prompt)
}

// Report requests a narrative report for the prompt.
func (c *Client) Report(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, reportPath, prompt)
}

func (c *Client) generate(ctx context.Context, path, prompt string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return "", &retry.StatusError{Code: resp.StatusCode, Message: apiErr.Error}
		}
		return "", &retry.StatusError{Code: resp.StatusCode, Message: fmt.Sprintf("generation failed with status %d", resp.StatusCode)}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("malformed generation response: %w", err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("generation response carries no text")
	}

	return out.Text, nil
}
