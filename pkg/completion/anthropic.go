package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"personasim/pkg/prompt"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	TopP        float64            `json:"top_p"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

// anthropicResponse leaves content raw: some upstreams return a flat text
// field, others a list of typed content blocks. extractReply handles both.
type anthropicResponse struct {
	Content json.RawMessage `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Client) completeAnthropic(ctx context.Context, msgs []prompt.Message, key, model string) (string, error) {
	reqBody := anthropicRequest{
		Model:       model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	for _, m := range msgs {
		if m.Role == "system" {
			// The messages API takes the system block as a top-level field
			reqBody.System = m.Content
			continue
		}
		reqBody.Messages = append(reqBody.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.anthropicURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	reply, err := extractReply(apiResp.Content)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// extractReply handles the two known reply shapes: a flat text field, or a
// list of content blocks whose text fragments are concatenated in order.
// Fragments are trimmed and joined with newlines; an empty result is an
// upstream error either way.
func extractReply(content json.RawMessage) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyReply
	}

	var flat string
	if err := json.Unmarshal(content, &flat); err == nil {
		flat = strings.TrimSpace(flat)
		if flat == "" {
			return "", ErrEmptyReply
		}
		return flat, nil
	}

	var blocks []anthropicContentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return "", fmt.Errorf("unexpected content shape: %w", err)
	}

	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != "" && b.Type != "text" {
			continue
		}
		if text := strings.TrimSpace(b.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyReply
	}
	return strings.Join(parts, "\n"), nil
}
