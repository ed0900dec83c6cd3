package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "matchchat-backend/pkg/errors"
)

// Response is the envelope for all REST responses.
type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondData sends a successful response.
func respondData(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// respondError maps an error to its HTTP status and sends it.
func respondError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	message := err.Error()
	if code == apperrors.CodeInternal || code == apperrors.CodeUnknown {
		message = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(code))
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   &APIError{Code: string(code), Message: message},
	})
}

// respondBadRequest reports a malformed request body or parameter.
func respondBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   &APIError{Code: string(apperrors.CodeInvalidArgument), Message: message},
	})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeNotFound, apperrors.CodeNothingToUndo:
		return http.StatusNotFound
	case apperrors.CodeForbidden, apperrors.CodeExpired:
		return http.StatusForbidden
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodeAlreadyMatched, apperrors.CodeLimitExceeded:
		return http.StatusConflict
	case apperrors.CodeQuotaExhausted:
		return http.StatusTooManyRequests
	case apperrors.CodeInvalidTarget, apperrors.CodeInvalidReference,
		apperrors.CodeInvalidArgument, apperrors.CodeUnsupported:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
