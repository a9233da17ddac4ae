package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/raaihank/pii-anonymizer/internal/anonymizer"
	"github.com/raaihank/pii-anonymizer/internal/history"
	"github.com/raaihank/pii-anonymizer/internal/sentiment"
	"github.com/raaihank/pii-anonymizer/internal/telemetry"
	"github.com/raaihank/pii-anonymizer/internal/websocket"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type anonymizeRequest struct {
	Text   json.RawMessage `json:"text"`
	Config map[string]bool `json:"config,omitempty"`
}

// text returns the request text. An absent or null text reads as empty and
// is rejected later by the anonymizer; any other non-string is a validation
// error here.
func (req anonymizeRequest) text() (string, error) {
	if len(req.Text) == 0 || string(req.Text) == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(req.Text, &text); err != nil {
		return "", fmt.Errorf("%w: text must be a string", anonymizer.ErrValidation)
	}
	return text, nil
}

type restoreRequest struct {
	Text     string                     `json:"text"`
	Mappings []anonymizer.EntityMapping `json:"mappings"`
}

// failedResult is the body of a 400: the empty result shape plus the error
type failedResult struct {
	*anonymizer.Result
	Error string `json:"error"`
}

type analyzeResponse struct {
	*anonymizer.Result
	Sentiment *sentiment.Result `json:"sentiment"`
	HistoryID string            `json:"history_id,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	defaults, maxLen := s.settings()

	classes := make(map[anonymizer.Class]bool)
	for _, c := range anonymizer.Classes() {
		classes[c] = defaults.Enabled(c)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":              "pii-anonymizer",
		"version":           s.version,
		"default_classes":   classes,
		"max_text_length":   maxLen,
		"sentiment_enabled": s.scorer != nil,
		"history_backend":   s.config.History.Backend,
		"websocket_enabled": s.config.WebSocket.Enabled,
	})
}

// handleAnonymize replaces PII in the request text with tokens
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	result, _, ok := s.anonymize(w, r, "anonymize")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAnalyze anonymizes the text, scores only the anonymized text and
// records the outcome in history
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	if s.scorer == nil {
		writeError(w, http.StatusServiceUnavailable, "sentiment analysis is not configured")
		return
	}

	result, ctx, ok := s.anonymize(w, r, "analyze")
	if !ok {
		return
	}

	verdict, err := s.scorer.Score(ctx, result.AnonymizedText)
	if err != nil {
		log.Error("Sentiment scoring failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "sentiment scoring failed")
		return
	}

	breakdown := breakdownStrings(result.Stats.EntityBreakdown)
	record := &history.Record{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now(),
		AnonymizedText:  result.AnonymizedText,
		Sentiment:       verdict.Label,
		Score:           verdict.Score,
		EntitiesFound:   result.Stats.EntitiesFound,
		EntityBreakdown: history.Breakdown(breakdown),
		ProcessingMS:    result.Stats.ProcessingTimeMS,
	}

	resp := analyzeResponse{Result: result, Sentiment: verdict}
	if err := s.history.Save(ctx, record); err != nil {
		log.Warn("Failed to save history record", zap.Error(err))
	} else {
		resp.HistoryID = record.ID
	}

	s.hub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeAnalysis,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.AnalysisEvent{
			RequestID:       requestID,
			Sentiment:       verdict.Label,
			Score:           verdict.Score,
			EntitiesFound:   result.Stats.EntitiesFound,
			EntityBreakdown: breakdown,
		},
	})

	log.Info("Text analyzed",
		zap.String("sentiment", verdict.Label),
		zap.Float64("score", verdict.Score),
		zap.Bool("cached", verdict.Cached),
	)

	writeJSON(w, http.StatusOK, resp)
}

// anonymize runs the shared decode, validate and anonymize steps. When ok is
// false the error response has already been written.
func (s *Server) anonymize(w http.ResponseWriter, r *http.Request, operation string) (*anonymizer.Result, context.Context, bool) {
	requestID := getRequestID(r.Context())
	log := s.logger.WithRequestID(requestID)

	var req anonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, nil, false
	}

	text, err := req.text()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, failedResult{Result: emptyResult(""), Error: err.Error()})
		return nil, nil, false
	}

	defaults, maxLen := s.settings()
	if maxLen > 0 && len(text) > maxLen {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds the maximum length of %d bytes", maxLen))
		return nil, nil, false
	}

	override := anonymizer.ConfigFromMap(req.Config)
	if err := override.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, failedResult{
			Result: emptyResult(text),
			Error:  err.Error(),
		})
		return nil, nil, false
	}

	ctx, span := telemetry.StartSpan(r.Context(), operation, len(text))

	result, err := s.anonymizer.Anonymize(text, anonymizer.Merge(defaults, override))
	switch {
	case errors.Is(err, anonymizer.ErrValidation):
		telemetry.EndSpan(span, 0, err)
		writeJSON(w, http.StatusBadRequest, failedResult{Result: result, Error: err.Error()})
		return nil, nil, false
	case err != nil:
		telemetry.EndSpan(span, 0, err)
		log.Error("Anonymization failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "anonymization failed")
		return nil, nil, false
	}
	telemetry.EndSpan(span, result.Stats.EntitiesFound, nil)

	breakdown := breakdownStrings(result.Stats.EntityBreakdown)
	s.totalRequests.Add(1)
	s.totalEntities.Add(int64(result.Stats.EntitiesFound))
	s.recorder.Record(ctx, operation, breakdown)

	s.hub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeAnonymization,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.AnonymizationEvent{
			RequestID:       requestID,
			EntitiesFound:   result.Stats.EntitiesFound,
			EntityBreakdown: breakdown,
			ProcessingMS:    result.Stats.ProcessingTimeMS,
			TextLength:      len(text),
		},
	})

	log.Info("Text anonymized",
		zap.String("operation", operation),
		zap.Int("entities_found", result.Stats.EntitiesFound),
		zap.Float64("processing_ms", result.Stats.ProcessingTimeMS),
	)

	return result, ctx, true
}

// handleRestore puts original values back into a text holding tokens
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"text": anonymizer.Restore(req.Text, req.Mappings),
	})
}

// handleHistory returns the most recent analysis records
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to load history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// handleStats returns service counters and aggregated history statistics
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Failed to load history stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	body := map[string]any{
		"service": map[string]any{
			"version":        s.version,
			"uptime":         time.Since(s.startedAt).Round(time.Second).String(),
			"total_requests": s.totalRequests.Load(),
			"total_entities": s.totalEntities.Load(),
		},
		"history":   stats,
		"websocket": s.hub.GetStats(),
	}
	if cached, ok := s.scorer.(*sentiment.CachedScorer); ok {
		body["sentiment_cache"] = cached.Stats()
	}

	writeJSON(w, http.StatusOK, body)
}

func emptyResult(text string) *anonymizer.Result {
	return &anonymizer.Result{
		AnonymizedText: text,
		Mappings:       []anonymizer.EntityMapping{},
		Stats:          anonymizer.Stats{EntityBreakdown: map[anonymizer.EntityType]int{}},
	}
}

func breakdownStrings(in map[anonymizer.EntityType]int) map[string]int {
	out := make(map[string]int, len(in))
	for t, n := range in {
		out[string(t)] = n
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
