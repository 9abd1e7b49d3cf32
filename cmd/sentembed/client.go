package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/sentembed/internal/models"
)

// apiClient talks to a running sentembed server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *apiClient) embed(ctx context.Context, texts []string) (*models.EmbedResponse, error) {
	var out models.EmbedResponse
	if err := c.do(ctx, http.MethodPost, "/embed", models.EmbedRequest{Texts: texts}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) rank(ctx context.Context, req models.SimilarityRequest) ([]models.RankedChunk, error) {
	var out []models.RankedChunk
	if err := c.do(ctx, http.MethodPost, "/similarity", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// compare sends raw vector JSON so the server sees exactly what the user typed.
func (c *apiClient) compare(ctx context.Context, a, b json.RawMessage, mode string) (*models.VectorSimilarityResponse, error) {
	body := struct {
		VectorsA json.RawMessage `json:"vectors_a"`
		VectorsB json.RawMessage `json:"vectors_b"`
		Mode     string          `json:"mode,omitempty"`
	}{a, b, mode}
	var out models.VectorSimilarityResponse
	if err := c.do(ctx, http.MethodPost, "/vector_similarity", body, &out); err != nil {
		return nil, err
	}
	if out.Similarities != nil {
		out.Similarities.Mode = out.Mode
	}
	return &out, nil
}

func (c *apiClient) status(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr models.ErrorResponse
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return &statusError{Code: resp.StatusCode, Message: apiErr.Error}
		}
		return &statusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError is a non-200 server response.
type statusError struct {
	Code    int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
