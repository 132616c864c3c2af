package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"personasim/pkg/persona"
	"personasim/pkg/prompt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	defaultAnthropicURL  = "https://api.anthropic.com/v1/messages"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// ErrNoAPIKey means the persona's key environment variable is unset.
var ErrNoAPIKey = errors.New("api key not configured")

// ErrEmptyReply means the upstream answered but no text could be extracted.
var ErrEmptyReply = errors.New("upstream response contained no text")

// APIError captures non-2xx upstream responses so the status code can be
// inspected by the endpoint layer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.StatusCode, e.Body)
}

// KeyResolver maps a key environment-variable name to its secret. Keeping
// this explicit avoids scattering os.Getenv through the pipeline and makes
// the client testable.
type KeyResolver func(envName string) string

// Client talks to the completion backends. One attempt per request, no
// retries; cancellation comes from the caller's context.
type Client struct {
	resolver     KeyResolver
	defaultModel string
	temperature  float64
	topP         float64
	maxTokens    int

	anthropicURL  string
	openaiBaseURL string
	httpClient    *http.Client

	openaiClients   map[string]openai.Client
	openaiClientsMu sync.RWMutex
}

func NewClient(defaultModel string, temperature, topP float64, maxTokens int) *Client {
	return &Client{
		resolver:      os.Getenv,
		defaultModel:  defaultModel,
		temperature:   temperature,
		topP:          topP,
		maxTokens:     maxTokens,
		anthropicURL:  defaultAnthropicURL,
		openaiBaseURL: defaultOpenAIBaseURL,
		// No client-level timeout: the per-request context carries the
		// deadline so a slow upstream surfaces as a caller timeout.
		httpClient:    &http.Client{},
		openaiClients: make(map[string]openai.Client),
	}
}

// SetKeyResolver overrides environment lookup (tests).
func (c *Client) SetKeyResolver(r KeyResolver) { c.resolver = r }

// SetAnthropicURL overrides the Anthropic messages endpoint (tests).
func (c *Client) SetAnthropicURL(url string) { c.anthropicURL = url }

// SetOpenAIBaseURL overrides the OpenAI-compatible base URL (tests).
func (c *Client) SetOpenAIBaseURL(url string) { c.openaiBaseURL = url }

// resolveProvider picks the provider and key for a persona. Each persona
// has a single designated key source; a missing key is a configuration
// error naming the env var, never a retry.
func (c *Client) resolveProvider(p *persona.Persona) (string, string, error) {
	preferred := p.Provider
	if preferred == "" {
		preferred = ProviderAnthropic
	}

	key := c.resolver(p.APIKeyEnv)
	if key != "" {
		return preferred, key, nil
	}
	return "", "", fmt.Errorf("%w: set %s in the environment", ErrNoAPIKey, p.APIKeyEnv)
}

// resolveModel returns the persona's model override when its env var is
// set and non-empty, otherwise the global default.
func (c *Client) resolveModel(p *persona.Persona) string {
	if p.ModelEnv != "" {
		if model := c.resolver(p.ModelEnv); model != "" {
			return model
		}
	}
	return c.defaultModel
}

// Complete sends the assembled prompt and returns the reply text.
func (c *Client) Complete(ctx context.Context, msgs []prompt.Message, p *persona.Persona) (string, error) {
	provider, key, err := c.resolveProvider(p)
	if err != nil {
		return "", err
	}
	model := c.resolveModel(p)

	switch provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, msgs, key, model)
	default:
		return c.completeAnthropic(ctx, msgs, key, model)
	}
}

// CompleteStream forwards reply tokens in arrival order. Only the
// OpenAI-compatible backend streams; the Anthropic path buffers the full
// reply and emits it as a single token.
func (c *Client) CompleteStream(ctx context.Context, msgs []prompt.Message, p *persona.Persona, onToken func(string)) error {
	provider, key, err := c.resolveProvider(p)
	if err != nil {
		return err
	}
	model := c.resolveModel(p)

	if provider == ProviderOpenAI {
		return c.streamOpenAI(ctx, msgs, key, model, onToken)
	}

	reply, err := c.completeAnthropic(ctx, msgs, key, model)
	if err != nil {
		return err
	}
	onToken(reply)
	return nil
}

// Ready reports whether any persona has a resolvable key, and which
// provider would serve the first such persona. Used by /api/status; no
// secret material leaves this function.
func (c *Client) Ready(personas []*persona.Persona) (bool, string) {
	for _, p := range personas {
		if provider, _, err := c.resolveProvider(p); err == nil {
			return true, provider
		}
	}
	return false, ""
}

func (c *Client) getOpenAIClient(key string) openai.Client {
	c.openaiClientsMu.RLock()
	if client, ok := c.openaiClients[key]; ok {
		c.openaiClientsMu.RUnlock()
		return client
	}
	c.openaiClientsMu.RUnlock()

	c.openaiClientsMu.Lock()
	defer c.openaiClientsMu.Unlock()

	client := openai.NewClient(
		option.WithBaseURL(c.openaiBaseURL),
		option.WithAPIKey(key),
		option.WithHTTPClient(c.httpClient),
	)
	c.openaiClients[key] = client
	return client
}
