package embeddings_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"minutebook/internal/config"
	"minutebook/internal/embeddings"
)

func TestGenerateBatchSplitsOnBatchSize(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Input) > 2 {
			t.Errorf("batch size exceeded: %d", len(req.Input))
		}
		fmt.Fprint(w, `{"data":[`)
		for i := range req.Input {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"index":%d,"embedding":[%d.0]}`, i, i)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	client := embeddings.NewClient(config.Embeddings{BaseURL: server.URL, BatchSize: 2, Model: "text-embed-1"})
	vectors, err := client.GenerateBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("GenerateBatch failed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, vector := range vectors {
		if len(vector) != 1 {
			t.Fatalf("vector %d empty: %#v", i, vectors)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 service calls for batch size 2, got %d", calls.Load())
	}
}

func TestGenerateBatchRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := embeddings.NewClient(config.Embeddings{BaseURL: server.URL})
	if _, err := client.GenerateBatch(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error when service returns wrong vector count")
	}
}

func TestGenerateBatchEmptyInputIsNoop(t *testing.T) {
	client := embeddings.NewClient(config.Embeddings{BaseURL: "https://embed.test.invalid"})
	vectors, err := client.GenerateBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("expected silent no-op, got %v %v", vectors, err)
	}
}
