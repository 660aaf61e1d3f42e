// Package embeddings generates dense vectors for structured meeting summaries.
// The pipeline calls it once per run, after structuring, over the meetings
// that were structured in that run.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"minutebook/internal/config"
	"minutebook/internal/services"
)

const (
	defaultTimeout   = 2 * time.Minute
	defaultBatchSize = 16

	component = "embeddings"
)

// Client talks to the embedding service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	httpClient *http.Client
}

// Option customizes the embeddings client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an embeddings client from configuration.
func NewClient(cfg config.Embeddings, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the model name embeddings are generated with.
func (c *Client) Model() string {
	return c.model
}

type embeddingRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// GenerateBatch embeds the given texts, issuing as many service calls as the
// configured batch size requires. The returned vectors are positionally
// aligned with texts.
func (c *Client) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		copy(vectors[start:end], batch)
	}
	return vectors, nil
}

func (c *Client) embed(ctx context.Context, batch []string) ([][]float32, error) {
	encoded, err := json.Marshal(embeddingRequest{Model: c.model, Input: batch})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "generate", "encode request", err)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/v1/embeddings")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "generate", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "generate", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "generate", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "generate", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.WrapHTTPStatus(component, "generate", resp.StatusCode, body)
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "generate", "decode response", err)
	}
	if len(decoded.Data) != len(batch) {
		return nil, services.Wrap(services.ErrValidation, component, "generate", "vector count mismatch", nil)
	}

	vectors := make([][]float32, len(batch))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(batch) {
			return nil, services.Wrap(services.ErrValidation, component, "generate", "vector index out of range", nil)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
