// Package cli formats sentembed results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/sentembed/internal/models"
	"github.com/hyperjump/sentembed/internal/similarity"
	"github.com/hyperjump/sentembed/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one result per line, tab separated.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value against allowed.
func ParseOutputFormat(s string, allowed ...OutputFormat) (OutputFormat, error) {
	names := make([]string, len(allowed))
	for i, f := range allowed {
		if string(f) == s {
			return f, nil
		}
		names[i] = string(f)
	}
	return "", fmt.Errorf("unknown output format %q; use %s", s, strings.Join(names, ", "))
}

const previewComponents = 5

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteEmbeddings writes an embed response. texts labels each vector in text mode.
func WriteEmbeddings(w io.Writer, texts []string, resp *models.EmbedResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, resp)
	case OutputCompact:
		for _, v := range resp.Embeddings {
			parts := make([]string, len(v))
			for i, x := range v {
				parts[i] = fmt.Sprintf("%g", x)
			}
			fmt.Fprintln(w, strings.Join(parts, " "))
		}
		return nil
	default:
		fmt.Fprintf(w, "%d embeddings, %d dimensions\n", len(resp.Embeddings), resp.Dimensions)
		for i, v := range resp.Embeddings {
			label := ""
			if i < len(texts) {
				label = Truncate(oneLine(texts[i]), 60)
			}
			fmt.Fprintf(w, "[%d] %q norm=%.4f %s\n", i, label, similarity.L2Norm(v), preview(v))
		}
		return nil
	}
}

func preview(v similarity.Vector) string {
	n := len(v)
	if n > previewComponents {
		n = previewComponents
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("%.4f", v[i])
	}
	s := "[" + strings.Join(parts, ", ")
	if len(v) > n {
		s += ", ..."
	}
	return s + "]"
}

// WriteRanked writes ranked chunks for query.
func WriteRanked(w io.Writer, query string, ranked []models.RankedChunk, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if ranked == nil {
			ranked = []models.RankedChunk{}
		}
		return writeJSON(w, ranked)
	case OutputCompact:
		for _, r := range ranked {
			fmt.Fprintf(w, "%.4f\t%d\t%s\n", r.Score, r.Index, Truncate(oneLine(r.Chunk), 120))
		}
		return nil
	default:
		fmt.Fprintf(w, "\nRanked %d chunks for %q\n\n", len(ranked), query)
		for i, r := range ranked {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Rank: %d | Score: %.4f | Index: %d\n", i+1, r.Score, r.Index)
			fmt.Fprintf(w, "\n%s\n\n", Truncate(r.Chunk, 200))
		}
		return nil
	}
}

// WriteSimilarities writes a vector comparison result.
func WriteSimilarities(w io.Writer, resp *models.VectorSimilarityResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	res := resp.Similarities
	if format == OutputText {
		fmt.Fprintf(w, "mode: %s\n", resp.Mode)
	}
	if res == nil {
		return nil
	}
	if res.IsMatrix() {
		for i, row := range res.Matrix {
			parts := make([]string, len(row))
			for j, x := range row {
				parts[j] = fmt.Sprintf("%.4f", x)
			}
			if format == OutputText {
				fmt.Fprintf(w, "a[%d]  %s\n", i, strings.Join(parts, "  "))
			} else {
				fmt.Fprintln(w, strings.Join(parts, "\t"))
			}
		}
		return nil
	}
	for i, x := range res.Flat {
		if format == OutputText {
			fmt.Fprintf(w, "[%d]  %.4f\n", i, x)
		} else {
			fmt.Fprintf(w, "%.4f\n", x)
		}
	}
	return nil
}

// WriteStatus writes a status response.
func WriteStatus(w io.Writer, s *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "version:        %s\n", s.Version)
	fmt.Fprintf(w, "model:          %s\n", s.Model)
	fmt.Fprintf(w, "provider:       %s\n", s.Provider.Name)
	fmt.Fprintf(w, "dimensions:     %d\n", s.Provider.Dimensions)
	if s.Provider.BreakerState != "" {
		fmt.Fprintf(w, "breaker_state:  %s\n", s.Provider.BreakerState)
	}
	if c := s.Provider.Cache; c != nil {
		fmt.Fprintf(w, "cache_entries:  %d / %d   # hits %d, misses %d\n", c.Entries, c.Capacity, c.Hits, c.Misses)
	}
	if s.UptimeSeconds > 0 {
		fmt.Fprintf(w, "uptime:         %.0fs\n", s.UptimeSeconds)
	}
	return nil
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
