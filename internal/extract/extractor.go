// Package extract wraps the two AI collaborator services the pipeline leans
// on: document text extraction and audio transcription. Both are remote and
// flaky, so every call goes through bounded transient-only retry.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minutebook/internal/config"
	"minutebook/internal/services"
)

const (
	defaultTimeout       = 5 * time.Minute
	defaultRetryAttempts = 3
	retryDelay           = 2 * time.Second
)

// Extractor converts archived documents into plain text.
type Extractor struct {
	baseURL    string
	apiKey     string
	attempts   int
	httpClient *http.Client
}

// NewExtractor constructs an extraction client from configuration.
func NewExtractor(cfg config.Extraction, opts ...Option) *Extractor {
	timeout := defaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = defaultRetryAttempts
	}
	e := &Extractor{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		attempts:   attempts,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt.applyExtractor(e)
	}
	return e
}

// ExtractText uploads the document at path and returns its plain text.
// Transient service failures are retried a bounded number of times.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	var text string
	err := services.Retry(ctx, e.attempts, retryDelay, func(ctx context.Context) error {
		extracted, err := e.extractOnce(ctx, path)
		if err != nil {
			return err
		}
		text = extracted
		return nil
	})
	return text, err
}

func (e *Extractor) extractOnce(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "open document", err)
	}
	defer file.Close()

	var payload bytes.Buffer
	writer := multipart.NewWriter(&payload)
	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "build form", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", services.Wrap(services.ErrUnavailable, "extract", "extract text", "read document", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "finalize form", err)
	}

	endpoint, err := url.JoinPath(e.baseURL, "/v1/extract")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &payload)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "extract", "extract text", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "extract", "extract text", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.WrapHTTPStatus("extract", "extract text", resp.StatusCode, body)
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "decode response", err)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return "", services.Wrap(services.ErrValidation, "extract", "extract text", "service returned no text", nil)
	}
	return decoded.Text, nil
}
