// Package video looks up meeting recordings on the hosting platform the
// municipality publishes to. Lookup results carry an opaque handle that is
// stored on the meeting and passed unmodified to the transcription service;
// nothing in this codebase interprets it.
package video

import (
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
	defaultTimeout = 30 * time.Second

	component = "video"
)

// LookupKind tags a lookup response.
type LookupKind string

const (
	// LookupFound means the platform has a recording for the meeting.
	LookupFound LookupKind = "found"
	// LookupAbsent means the platform recognizably has no recording. Not a
	// failure; many meetings are never recorded.
	LookupAbsent LookupKind = "absent"
	// LookupUnrecognized means the platform answered with a shape this client
	// cannot interpret. Callers treat the source as silent.
	LookupUnrecognized LookupKind = "unrecognized"
)

// LookupResult is the tagged outcome of a recording lookup.
type LookupResult struct {
	Kind LookupKind
	// Handle is the platform's opaque identifier for the recording, reused on
	// every later reference to it.
	Handle   string
	MediaURL string
	Duration time.Duration
}

// Client talks to the video hosting platform.
type Client struct {
	baseURL    string
	apiKey     string
	channelID  string
	httpClient *http.Client
}

// Option customizes the video client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a video platform client from configuration.
func NewClient(cfg config.Video, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		channelID:  strings.TrimSpace(cfg.ChannelID),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type lookupResponse struct {
	Videos []struct {
		Handle          string `json:"handle"`
		MediaURL        string `json:"media_url"`
		DurationSeconds int    `json:"duration_seconds"`
	} `json:"videos"`
}

// Lookup queries the channel for a recording matching the meeting date and
// portal reference. Absence and unrecognized responses are tagged results,
// not errors.
func (c *Client) Lookup(ctx context.Context, portalID string, date time.Time) (LookupResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/v1/channels", c.channelID, "videos")
	if err != nil {
		return LookupResult{}, services.Wrap(services.ErrValidation, component, "lookup", "build url", err)
	}
	query := url.Values{"ref": []string{portalID}}
	if !date.IsZero() {
		query.Set("date", date.Format("2006-01-02"))
	}
	endpoint += "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return LookupResult{}, services.Wrap(services.ErrValidation, component, "lookup", "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return LookupResult{}, services.Wrap(services.ErrTransient, component, "lookup", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LookupResult{}, services.Wrap(services.ErrTransient, component, "lookup", "read body", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return LookupResult{Kind: LookupAbsent}, nil
	case resp.StatusCode != http.StatusOK:
		return LookupResult{}, services.WrapHTTPStatus(component, "lookup", resp.StatusCode, body)
	}

	var decoded lookupResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return LookupResult{Kind: LookupUnrecognized}, nil
	}
	if len(decoded.Videos) == 0 {
		return LookupResult{Kind: LookupAbsent}, nil
	}

	// The platform orders matches best-first; later entries are reuploads.
	first := decoded.Videos[0]
	handle := strings.TrimSpace(first.Handle)
	if handle == "" {
		return LookupResult{Kind: LookupUnrecognized}, nil
	}
	return LookupResult{
		Kind:     LookupFound,
		Handle:   handle,
		MediaURL: strings.TrimSpace(first.MediaURL),
		Duration: time.Duration(first.DurationSeconds) * time.Second,
	}, nil
}
