package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"vcmarket/internal/pipeline"
	"vcmarket/internal/store"
)

// APIError is the JSON body of every failed request
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// toAPIError classifies err into a status code and error code
func toAPIError(err error) *APIError {
	var apiErr *APIError
	var pe *pipeline.ParameterError
	var se *pipeline.SchemaError
	var dq *pipeline.DataQualityError

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &pe):
		return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_PARAMETER", Message: pe.Error(),
			Details: map[string]string{"field": pe.Field, "reason": pe.Reason}}
	case errors.As(err, &se):
		return &APIError{StatusCode: http.StatusUnprocessableEntity, ErrorCode: "SCHEMA_ERROR", Message: se.Error(),
			Details: map[string]string{"source": se.Source, "reason": se.Reason}}
	case errors.As(err, &dq):
		return &APIError{StatusCode: http.StatusUnprocessableEntity, ErrorCode: "DATA_QUALITY_ERROR", Message: dq.Error(),
			Details: map[string]any{"source": dq.Source, "rejected_rows": dq.Rejected}}
	case errors.Is(err, pipeline.ErrNoDataset):
		return &APIError{StatusCode: http.StatusConflict, ErrorCode: "NO_DATASET", Message: "no dataset loaded, POST /api/v1/datasets first"}
	case errors.Is(err, store.ErrNotFound):
		return &APIError{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: "resource not found"}
	default:
		return &APIError{StatusCode: http.StatusInternalServerError, ErrorCode: "INTERNAL_ERROR", Message: err.Error()}
	}
}

func invalidRequest(err error) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, ErrorCode: "INVALID_REQUEST", Message: "invalid JSON payload: " + err.Error()}
}

func (h *MarketHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.String("error_code", apiErr.ErrorCode), zap.Error(err))
	}
	writeJSON(w, apiErr.StatusCode, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
