package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "curriculum-graph/internal/errors"
	"curriculum-graph/internal/interfaces/http/dto"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decode reads a JSON body into dst, rejecting unknown fields and trailing data.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidation(apperrors.CodeInvalidInput, "request body is empty")
		}
		return apperrors.NewValidation(apperrors.CodeInvalidInput, "malformed request body: "+err.Error())
	}
	if dec.More() {
		return apperrors.NewValidation(apperrors.CodeInvalidInput, "request body must contain a single JSON object")
	}
	return nil
}

// handleServiceError converts builder errors to HTTP responses. Store failure
// details stay in the log; the client only sees the code.
func (h *handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.CodeOf(err)

	body := dto.ErrorResponse{
		Code:      string(code),
		Retryable: apperrors.IsRetryable(err),
	}
	switch {
	case apperrors.IsValidation(err) || apperrors.IsNotFound(err):
		if appErr, ok := apperrors.As(err); ok {
			body.Error = appErr.Message
		} else {
			body.Error = err.Error()
		}
	case status == http.StatusServiceUnavailable:
		body.Error = "graph store temporarily unavailable"
	case apperrors.IsStoreError(err):
		body.Error = "graph store rejected the transaction"
	default:
		body.Error = "an internal error occurred"
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", string(code)),
		zap.String("requestID", chimiddleware.GetReqID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	respondJSON(w, status, body)
}

func (h *handler) respondInvalid(w http.ResponseWriter, fields []dto.FieldError) {
	respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:  "request validation failed",
		Code:   string(apperrors.CodeInvalidInput),
		Fields: fields,
	})
}
