package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"minutebook/internal/align"
	"minutebook/internal/config"
	"minutebook/internal/services"
)

// Option customizes an extraction or transcription client.
type Option interface {
	applyExtractor(*Extractor)
	applyTranscriber(*Transcriber)
}

type httpClientOption struct {
	client *http.Client
}

func (o httpClientOption) applyExtractor(e *Extractor) {
	if o.client != nil {
		e.httpClient = o.client
	}
}

func (o httpClientOption) applyTranscriber(t *Transcriber) {
	if o.client != nil {
		t.httpClient = o.client
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return httpClientOption{client: client}
}

// Transcriber turns a hosted meeting recording into speaker-labeled segments.
type Transcriber struct {
	baseURL    string
	apiKey     string
	model      string
	attempts   int
	httpClient *http.Client
}

// NewTranscriber constructs a transcription client from configuration.
func NewTranscriber(cfg config.Transcription, opts ...Option) *Transcriber {
	timeout := defaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = defaultRetryAttempts
	}
	t := &Transcriber{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		attempts:   attempts,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt.applyTranscriber(t)
	}
	return t
}

type transcriptionRequest struct {
	MediaURL string `json:"media_url"`
	Model    string `json:"model,omitempty"`
	Diarize  bool   `json:"diarize"`
}

type transcriptionResponse struct {
	Segments []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"segments"`
}

// Transcribe submits the recording behind mediaURL and returns its segments
// in spoken order. Transient service failures are retried a bounded number
// of times.
func (t *Transcriber) Transcribe(ctx context.Context, mediaURL string) ([]align.Segment, error) {
	var segments []align.Segment
	err := services.Retry(ctx, t.attempts, retryDelay, func(ctx context.Context) error {
		transcribed, err := t.transcribeOnce(ctx, mediaURL)
		if err != nil {
			return err
		}
		segments = transcribed
		return nil
	})
	return segments, err
}

func (t *Transcriber) transcribeOnce(ctx context.Context, mediaURL string) ([]align.Segment, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "transcribe", "media url required", nil)
	}
	encoded, err := json.Marshal(transcriptionRequest{MediaURL: mediaURL, Model: t.model, Diarize: true})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "transcribe", "encode request", err)
	}
	endpoint, err := url.JoinPath(t.baseURL, "/v1/transcriptions")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "transcribe", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "transcribe", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "transcribe", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "transcribe", "read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.WrapHTTPStatus("transcribe", "transcribe", resp.StatusCode, body)
	}

	var decoded transcriptionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "transcribe", "decode response", err)
	}
	if len(decoded.Segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "transcribe", "empty transcript", nil)
	}
	segments := make([]align.Segment, 0, len(decoded.Segments))
	for _, segment := range decoded.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		segments = append(segments, align.Segment{
			Speaker: strings.TrimSpace(segment.Speaker),
			Text:    text,
		})
	}
	return segments, nil
}
