package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newOpenAITestServer(t *testing.T, handler func(req map[string]any) (int, any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func embeddingsResponse(vectors map[int][]float64) map[string]any {
	data := make([]map[string]any, 0, len(vectors))
	// Reverse index order so the client has to sort.
	for i := len(vectors) - 1; i >= 0; i-- {
		data = append(data, map[string]any{"object": "embedding", "index": i, "embedding": vectors[i]})
	}
	return map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-3-small",
		"usage":  map[string]any{"prompt_tokens": 2, "total_tokens": 2},
	}
}

func TestOpenAIEmbed_OrdersByIndex(t *testing.T) {
	server := newOpenAITestServer(t, func(req map[string]any) (int, any) {
		if req["model"] != "text-embedding-3-small" {
			t.Errorf("model = %v", req["model"])
		}
		input, _ := req["input"].([]any)
		if len(input) != 2 {
			t.Errorf("input = %v", req["input"])
		}
		if _, ok := req["dimensions"]; ok {
			t.Error("dimensions should not be sent when not configured")
		}
		return http.StatusOK, embeddingsResponse(map[int][]float64{0: {1, 0}, 1: {0, 1}})
	})

	p, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not in input order: %v", vecs)
	}
	if p.Dimensions() != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", p.Dimensions())
	}
}

func TestOpenAIEmbed_RequestedDimensions(t *testing.T) {
	server := newOpenAITestServer(t, func(req map[string]any) (int, any) {
		if req["dimensions"] != float64(2) {
			t.Errorf("dimensions = %v, want 2", req["dimensions"])
		}
		return http.StatusOK, embeddingsResponse(map[int][]float64{0: {0.6, 0.8}})
	})

	p, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/", Dimensions: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if p.Dimensions() != 2 {
		t.Errorf("Dimensions() = %d, want 2", p.Dimensions())
	}
}

func TestOpenAIEmbed_APIError(t *testing.T) {
	server := newOpenAITestServer(t, func(map[string]any) (int, any) {
		return http.StatusInternalServerError, map[string]any{"error": map[string]any{"message": "overloaded", "type": "server_error"}}
	})

	p, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(context.Background(), []string{"x"}); !errors.Is(err, ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
}

func TestOpenAIEmbed_CountMismatch(t *testing.T) {
	server := newOpenAITestServer(t, func(map[string]any) (int, any) {
		return http.StatusOK, embeddingsResponse(map[int][]float64{0: {1, 0}})
	})

	p, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Embed(context.Background(), []string{"a", "b"}); !errors.Is(err, ErrEmbeddingFailed) {
		t.Fatalf("expected ErrEmbeddingFailed, got %v", err)
	}
}

func TestNewOpenAIEmbedder_Config(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAIEmbedder(OpenAIConfig{}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Model: "custom-model"}); err == nil {
		t.Error("expected error for unknown model without dimensions")
	}
	p, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Model: "custom-model", Dimensions: 64})
	if err != nil {
		t.Fatal(err)
	}
	if p.Dimensions() != 64 || p.Name() != "openai" {
		t.Errorf("Dimensions/Name = %d/%s", p.Dimensions(), p.Name())
	}
}
