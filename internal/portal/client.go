// Package portal is the read-only client for the municipal meeting portal:
// meeting discovery listings, per-meeting document listings, and document
// downloads. The portal is scraped infrastructure, not an API under our
// control, so document listings come back as tagged variants (ok, absent,
// unrecognized) instead of hard errors.
package portal

import (
	"context"
	"encoding/json"
	"io"
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
	defaultTimeout = 30 * time.Second

	component = "portal"
)

// Document types the portal publishes.
const (
	DocumentAgenda  = "agenda"
	DocumentMinutes = "minutes"
)

// ListingKind tags a document listing response.
type ListingKind string

const (
	// ListingOK means the portal returned a well-formed document listing.
	ListingOK ListingKind = "ok"
	// ListingAbsent means the portal has no listing for the meeting. This is
	// a recognized condition, not a failure.
	ListingAbsent ListingKind = "absent"
	// ListingUnrecognized means the portal answered with a shape this client
	// cannot interpret. Callers treat the source as silent for the meeting.
	ListingUnrecognized ListingKind = "unrecognized"
)

// MeetingRecord is one meeting in a portal discovery listing.
type MeetingRecord struct {
	PortalID   string
	Body       string
	Type       string
	Date       time.Time
	HasAgenda  bool
	HasMinutes bool
}

// Document is one downloadable document attached to a meeting.
type Document struct {
	Type string
	URL  string
}

// DocumentListing is the tagged result of a per-meeting document query.
type DocumentListing struct {
	Kind      ListingKind
	Documents []Document
}

// Has reports whether the listing carries a document of the given type.
func (l DocumentListing) Has(docType string) bool {
	if l.Kind != ListingOK {
		return false
	}
	for _, doc := range l.Documents {
		if doc.Type == docType {
			return true
		}
	}
	return false
}

// Client talks to the meeting portal.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the portal client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a portal client from configuration.
func NewClient(cfg config.Portal, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type meetingListingResponse struct {
	Meetings []struct {
		ID        string   `json:"id"`
		Body      string   `json:"body"`
		Type      string   `json:"meeting_type"`
		Date      string   `json:"date"`
		Documents []string `json:"documents"`
	} `json:"meetings"`
}

// ListMeetings fetches the discovery listing of meetings dated on or after
// since. A zero since requests the portal's full listing.
func (c *Client) ListMeetings(ctx context.Context, since time.Time) ([]MeetingRecord, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/api/meetings")
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "list meetings", "build url", err)
	}
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.Format("2006-01-02"))
	}

	body, status, err := c.get(ctx, endpoint, "list meetings")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, services.WrapHTTPStatus(component, "list meetings", status, body)
	}

	var listing meetingListingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, services.Wrap(services.ErrValidation, component, "list meetings", "decode response", err)
	}

	records := make([]MeetingRecord, 0, len(listing.Meetings))
	for _, m := range listing.Meetings {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			continue
		}
		record := MeetingRecord{
			PortalID: id,
			Body:     strings.TrimSpace(m.Body),
			Type:     strings.TrimSpace(m.Type),
		}
		if parsed, err := time.Parse("2006-01-02", strings.TrimSpace(m.Date)); err == nil {
			record.Date = parsed
		}
		for _, doc := range m.Documents {
			switch strings.ToLower(strings.TrimSpace(doc)) {
			case DocumentAgenda:
				record.HasAgenda = true
			case DocumentMinutes:
				record.HasMinutes = true
			}
		}
		records = append(records, record)
	}
	return records, nil
}

type documentListingResponse struct {
	Documents []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"documents"`
}

// MeetingDocuments fetches the document listing for one meeting. A 404 is
// reported as ListingAbsent and an undecodable body as ListingUnrecognized;
// neither is an error.
func (c *Client) MeetingDocuments(ctx context.Context, portalID string) (DocumentListing, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/api/meetings", portalID, "documents")
	if err != nil {
		return DocumentListing{}, services.Wrap(services.ErrValidation, component, "meeting documents", "build url", err)
	}

	body, status, err := c.get(ctx, endpoint, "meeting documents")
	if err != nil {
		return DocumentListing{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return DocumentListing{Kind: ListingAbsent}, nil
	case status != http.StatusOK:
		return DocumentListing{}, services.WrapHTTPStatus(component, "meeting documents", status, body)
	}

	var listing documentListingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return DocumentListing{Kind: ListingUnrecognized}, nil
	}

	result := DocumentListing{Kind: ListingOK}
	for _, doc := range listing.Documents {
		docType := strings.ToLower(strings.TrimSpace(doc.Type))
		if docType == "" || strings.TrimSpace(doc.URL) == "" {
			return DocumentListing{Kind: ListingUnrecognized}, nil
		}
		result.Documents = append(result.Documents, Document{Type: docType, URL: strings.TrimSpace(doc.URL)})
	}
	return result, nil
}

// DownloadDocument streams a listed document to destination, creating parent
// directories as needed. Writes go through a temp file so a failed download
// never leaves a truncated document behind.
func (c *Client) DownloadDocument(ctx context.Context, doc Document, destination string) error {
	docURL := doc.URL
	if strings.HasPrefix(docURL, "/") {
		joined, err := url.JoinPath(c.baseURL, docURL)
		if err != nil {
			return services.Wrap(services.ErrValidation, component, "download", "build url", err)
		}
		docURL = joined
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "download", "build request", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, component, "download", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return services.Wrap(services.ErrNotFound, component, "download", docURL, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return services.WrapHTTPStatus(component, "download", resp.StatusCode, nil)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return services.Wrap(services.ErrUnavailable, component, "download", "create directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destination), ".download-*")
	if err != nil {
		return services.Wrap(services.ErrUnavailable, component, "download", "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrTransient, component, "download", "stream body", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrUnavailable, component, "download", "close temp file", err)
	}
	if err := os.Rename(tmpName, destination); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrUnavailable, component, "download", "finalize file", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, operation string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrValidation, component, operation, "build request", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrTransient, component, operation, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, services.Wrap(services.ErrTransient, component, operation, "read body", err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
