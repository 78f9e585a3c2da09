// Package ollama implements the sole concrete LM backend adapter: an
// HTTP client against a local inference daemon (default
// http://localhost:11434, overridable via OLLAMA_URL). It satisfies the
// Model Coordinator's LMClient interface, following the teacher's
// provider.Provider-interface / concrete-implementation split — here
// there is exactly one concrete implementation because spec.md fixes the
// backend to a single local daemon (see DESIGN.md's eino-drop decision).
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cadenroberts/OllamaBot-sub010/pkg/types"
)

// Message is one turn in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chunk is one decoded line of a streamed response.
type Chunk struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Response        string  `json:"response"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Client talks to the ollama HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the optional bearer token (OLLAMA_TOKEN).
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout overrides the default 120s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient overrides the underlying *http.Client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client against baseURL (e.g. "http://localhost:11434").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ollama: marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// ListModels calls GET /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]types.Model, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: list models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: list models: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Models []struct {
			Name    string `json:"name"`
			Details struct {
				ParameterSize string `json:"parameter_size"`
			} `json:"details"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama: decode list models response: %w", err)
	}

	out := make([]types.Model, 0, len(body.Models))
	for _, m := range body.Models {
		out = append(out, types.Model{Name: m.Name, ParameterSize: m.Details.ParameterSize})
	}
	return out, nil
}

// Probe reports whether model is present on the backend.
func (c *Client) Probe(ctx context.Context, model string) (bool, error) {
	models, err := c.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == model {
			return true, nil
		}
	}
	return false, nil
}

// StreamFunc is invoked once per decoded chunk as a chat/generate stream
// arrives. Returning an error aborts the stream.
type StreamFunc func(Chunk) error

// Chat streams a multi-turn completion from POST /api/chat. Streamed
// newline-delimited JSON responses are read line by line with a
// bufio.Scanner and each line decoded with json.Unmarshal (spec §6);
// the final chunk (done=true) carries
// prompt/completion token counts and is also returned for convenience.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, onChunk StreamFunc) (Chunk, error) {
	payload := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   true,
	}
	return c.stream(ctx, "/api/chat", payload, onChunk)
}

// Generate streams a single-turn completion from POST /api/generate.
func (c *Client) Generate(ctx context.Context, model, prompt string, onChunk StreamFunc) (Chunk, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": true,
	}
	return c.stream(ctx, "/api/generate", payload, onChunk)
}

func (c *Client) stream(ctx context.Context, path string, payload any, onChunk StreamFunc) (Chunk, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return Chunk{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Chunk{}, fmt.Errorf("ollama: request to %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Chunk{}, fmt.Errorf("ollama: %s: unexpected status %d", path, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var last Chunk
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return last, fmt.Errorf("ollama: decode stream chunk: %w", err)
		}
		last = chunk
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return last, err
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return last, fmt.Errorf("ollama: reading stream: %w", err)
	}
	return last, nil
}

// Embeddings calls POST /api/embeddings.
func (c *Client) Embeddings(ctx context.Context, model, prompt string) ([]float64, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/embeddings", map[string]any{
		"model":  model,
		"prompt": prompt,
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: embeddings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: embeddings: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama: decode embeddings response: %w", err)
	}
	return body.Embedding, nil
}
