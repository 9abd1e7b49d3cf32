// Package models defines the JSON request and response bodies of the HTTP API.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperjump/sentembed/internal/similarity"
)

// TextList accepts either a single JSON string or an array of strings.
type TextList []string

// UnmarshalJSON promotes a bare string to a one-element list.
func (l *TextList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = TextList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("texts must be a string or an array of strings")
	}
	*l = list
	return nil
}

// VectorInput accepts a single vector ([f, ...]) or a set of vectors
// ([[f, ...], ...]). A single vector is promoted to a one-element set.
type VectorInput struct {
	Set similarity.VectorSet
	// Single reports that the input was a bare vector.
	Single bool
}

// UnmarshalJSON decodes a flat or nested numeric array. Deeper nesting,
// nulls and non-numeric elements are rejected.
func (v *VectorInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = VectorInput{}
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return errors.New("expected an array of numbers or an array of arrays")
	}
	if len(elems) == 0 {
		*v = VectorInput{Set: similarity.VectorSet{}}
		return nil
	}

	if first := bytes.TrimSpace(elems[0]); len(first) > 0 && first[0] == '[' {
		set := make(similarity.VectorSet, len(elems))
		for i, raw := range elems {
			vec, err := decodeVector(raw)
			if err != nil {
				return fmt.Errorf("vector %d: %w", i, err)
			}
			set[i] = vec
		}
		*v = VectorInput{Set: set}
		return nil
	}

	vec, err := decodeVector(data)
	if err != nil {
		return err
	}
	*v = VectorInput{Set: similarity.VectorSet{vec}, Single: true}
	return nil
}

func decodeVector(data []byte) (similarity.Vector, error) {
	var ptrs []*float64
	if err := json.Unmarshal(data, &ptrs); err != nil {
		return nil, errors.New("expected an array of numbers")
	}
	vec := make(similarity.Vector, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			return nil, fmt.Errorf("component %d is null", i)
		}
		vec[i] = *p
	}
	return vec, nil
}

// EmbedRequest is the body of POST /embed.
type EmbedRequest struct {
	Texts TextList `json:"texts"`
}

// SimilarityRequest is the body of POST /similarity.
type SimilarityRequest struct {
	Query  string   `json:"query"`
	Chunks []string `json:"chunks"`
	// TopK truncates the ranking; 0 returns every chunk.
	TopK int `json:"top_k,omitempty"`
}

// VectorSimilarityRequest is the body of POST /vector_similarity.
type VectorSimilarityRequest struct {
	VectorsA *VectorInput `json:"vectors_a"`
	VectorsB *VectorInput `json:"vectors_b"`
	Mode     string       `json:"mode,omitempty"`
}

// Validate checks that both vector inputs are present and parses the mode.
func (r *VectorSimilarityRequest) Validate() (similarity.Mode, error) {
	const op = "vector_similarity"
	if r.VectorsA == nil {
		return "", similarity.Validationf(op, "vectors_a is required")
	}
	if r.VectorsB == nil {
		return "", similarity.Validationf(op, "vectors_b is required")
	}
	return similarity.ParseMode(r.Mode)
}
