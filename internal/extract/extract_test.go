package extract_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"minutebook/internal/config"
	"minutebook/internal/extract"
	"minutebook/internal/services"
)

func TestExtractTextUploadsDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Errorf("missing document part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "agenda.pdf" {
			t.Errorf("unexpected filename %q", header.Filename)
		}
		w.Write([]byte(`{"text":"1. Call to Order\n2. New Business"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "agenda.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	extractor := extract.NewExtractor(config.Extraction{BaseURL: server.URL, RetryAttempts: 1})
	text, err := extractor.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "1. Call to Order\n2. New Business" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"text":"recovered"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "minutes.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	extractor := extract.NewExtractor(config.Extraction{BaseURL: server.URL, RetryAttempts: 2})
	text, err := extractor.ExtractText(context.Background(), path)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if text != "recovered" || calls.Load() != 2 {
		t.Fatalf("unexpected outcome text=%q calls=%d", text, calls.Load())
	}
}

func TestExtractTextDoesNotRetryDataShapeFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	extractor := extract.NewExtractor(config.Extraction{BaseURL: server.URL, RetryAttempts: 3})
	_, err := extractor.ExtractText(context.Background(), path)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("data-shape failure must not be retried, got %d calls", calls.Load())
	}
}

func TestTranscribeReturnsOrderedSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"segments":[
			{"speaker":"Clerk","text":"1. Call to order"},
			{"speaker":"","text":"   "},
			{"speaker":"Mayor","text":"Thank you all"}
		]}`))
	}))
	defer server.Close()

	transcriber := extract.NewTranscriber(config.Transcription{BaseURL: server.URL, RetryAttempts: 1})
	segments, err := transcriber.Transcribe(context.Background(), "https://cdn.example/m.mp4")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected blank segments dropped, got %d", len(segments))
	}
	if segments[0].Speaker != "Clerk" || segments[1].Text != "Thank you all" {
		t.Fatalf("unexpected segments %#v", segments)
	}
}

func TestTranscribeRequiresMediaURL(t *testing.T) {
	transcriber := extract.NewTranscriber(config.Transcription{BaseURL: "https://transcribe.test.invalid"})
	if _, err := transcriber.Transcribe(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
