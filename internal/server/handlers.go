package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/sentembed/internal/models"
	"github.com/hyperjump/sentembed/internal/similarity"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:     "ok",
		Model:      s.model,
		Dimensions: s.engine.Dimensions(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.StatusResponse{
		Version:       s.version,
		Model:         s.model,
		Provider:      s.engine.Info(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	const op = "embed"
	var req models.EmbedRequest
	if err := decodeJSON(r, op, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	if req.Texts == nil {
		s.fail(w, r, op, similarity.Validationf(op, "texts is required"))
		return
	}
	s.logger.Debug("embed request", zap.Int("texts", len(req.Texts)))
	vecs, err := s.engine.Embed(r.Context(), req.Texts)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.EmbedResponse{
		Embeddings: vecs,
		Dimensions: s.engine.Dimensions(),
	})
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	const op = "similarity"
	var req models.SimilarityRequest
	if err := decodeJSON(r, op, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.logger.Debug("similarity request", zap.Int("chunks", len(req.Chunks)), zap.Int("top_k", req.TopK))
	ranked, err := s.engine.Rank(r.Context(), req.Query, req.Chunks, req.TopK)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.respondJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleVectorSimilarity(w http.ResponseWriter, r *http.Request) {
	const op = "vector_similarity"
	var req models.VectorSimilarityRequest
	if err := decodeJSON(r, op, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	mode, err := req.Validate()
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.logger.Debug("vector similarity request",
		zap.Int("vectors_a", len(req.VectorsA.Set)),
		zap.Int("vectors_b", len(req.VectorsB.Set)),
		zap.String("mode", mode.String()),
	)
	res, err := s.engine.Compare(r.Context(), req.VectorsA.Set, req.VectorsB.Set, mode)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VectorSimilarityResponse{Similarities: res, Mode: res.Mode})
}

// fail logs err and writes it with the status its category maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
