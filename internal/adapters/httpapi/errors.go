package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shoplist-app/shoplist-api/internal/app/auth"
	"github.com/shoplist-app/shoplist-api/internal/app/shoppinglists"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
	CodeBadGateway = "EXTRACTION_FAILED"

	msgValidation = "Nieprawidłowe dane wejściowe"
	msgInternal   = "Wystąpił nieoczekiwany błąd"
	msgBadGateway = "Nie udało się przetworzyć tekstu"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, status int, code, message string, details map[string]string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

func writeInternal(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, r, http.StatusInternalServerError, CodeInternal, msgInternal, nil)
}

// listErrorStatus maps every access-layer error kind to its HTTP status.
func listErrorStatus(k shoppinglists.ErrorKind) int {
	switch k {
	case shoppinglists.KindNotFound:
		return http.StatusNotFound
	case shoppinglists.KindForbidden:
		return http.StatusForbidden
	case shoppinglists.KindDuplicateTitle:
		return http.StatusConflict
	case shoppinglists.KindInvalidUUID:
		return http.StatusBadRequest
	case shoppinglists.KindDatabase:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeListError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var le *shoppinglists.Error
	if !errors.As(err, &le) {
		writeInternal(w, r, log, err)
		return
	}
	status := listErrorStatus(le.Kind)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "shopping list store failed", "kind", string(le.Kind), "err", le.Err)
	}
	writeError(w, r, status, string(le.Kind), le.Message, nil)
}

func authErrorStatus(k auth.ErrorKind) int {
	switch k {
	case auth.KindInvalidCredentials, auth.KindInvalidToken:
		return http.StatusUnauthorized
	case auth.KindRegistrationFailed:
		return http.StatusBadRequest
	case auth.KindProviderUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var ae *auth.Error
	if !errors.As(err, &ae) {
		writeInternal(w, r, log, err)
		return
	}
	status := authErrorStatus(ae.Kind)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "identity provider failed", "kind", string(ae.Kind), "err", ae.Err)
	}
	writeError(w, r, status, string(ae.Kind), ae.Message, nil)
}
