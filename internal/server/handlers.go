package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/feature"
)

// Response messages.
const (
	msgTitleRequired = "Title is required"
	msgInternal      = "internal error"
)

type predictRequest struct {
	Title  *string  `json:"title"`
	Amount *float64 `json:"amount"`
}

type predictResponse struct {
	Category string `json:"category"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	if s.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}

	var req predictRequest
	if err := decodeBody(r.Body, &req); err != nil {
		// An unreadable body carries no usable title.
		slog.DebugContext(r.Context(), "Could not decode predict request", "error", err)
		s.metrics.ObserveError("bad_request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTitleRequired})
		return
	}

	var title string
	if req.Title != nil {
		title = feature.Normalize(*req.Title)
	}
	if title == "" {
		s.metrics.ObserveError("empty_title")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTitleRequired})
		return
	}

	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}

	category, err := s.predictor.Predict(title, amount)
	if err != nil {
		if errors.Is(err, common.ErrEmptyTitle) {
			s.metrics.ObserveError("empty_title")
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgTitleRequired})
			return
		}
		slog.ErrorContext(r.Context(), "Prediction failed", "error", err)
		s.metrics.ObserveError("predict")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}

	s.metrics.ObservePrediction(category)
	writeJSON(w, http.StatusOK, predictResponse{Category: category})
}

var errTrailingData = errors.New("unexpected data after JSON body")

// decodeBody reads exactly one JSON value from body.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	switch err := dec.Decode(&struct{}{}); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return fmt.Errorf("%w: %w", errTrailingData, err)
	default:
		return errTrailingData
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
