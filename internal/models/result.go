package models

import (
	"github.com/hyperjump/sentembed/internal/embedding"
	"github.com/hyperjump/sentembed/internal/similarity"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// EmbedResponse is the body of a successful POST /embed.
type EmbedResponse struct {
	Embeddings similarity.VectorSet `json:"embeddings"`
	Dimensions int                  `json:"dimensions"`
}

// RankedChunk is one entry of the POST /similarity response, which is a bare
// array sorted by score descending.
type RankedChunk struct {
	Chunk string  `json:"chunk"`
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// VectorSimilarityResponse is the body of a successful POST /vector_similarity.
// Similarities is a flat array, or a matrix for cross comparisons.
type VectorSimilarityResponse struct {
	Similarities *similarity.Result `json:"similarities"`
	Mode         similarity.Mode    `json:"mode"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Version       string         `json:"version"`
	Model         string         `json:"model"`
	Provider      embedding.Info `json:"provider"`
	UptimeSeconds float64        `json:"uptime_seconds"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
