package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/logging"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// Error codes sent in the "code" field.
const (
	CodeBadRequest   = "bad_request"
	CodeNotFound     = "not_found"
	CodeDuplicateID  = "duplicate_id"
	CodeImportFormat = "import_format"
	CodeInvalidID    = "invalid_id"
	CodeConfirm      = "confirmation_required"
	CodeStorage      = "storage"
	CodeInternal     = "internal"
)

// ErrorResponse defines standard error payload
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSONError sends a JSON error response with "error" and "code" fields.
func JSONError(w http.ResponseWriter, message, code string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: CodeBadRequest, Fields: fields})
}

// writeServiceError maps inventory errors to HTTP responses. Storage failures
// are logged with the request id and reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound  *inventory.NotFoundError
		duplicate *inventory.DuplicateIDError
		format    *inventory.ImportFormatError
		invalidID *inventory.InvalidIDError
	)
	switch {
	case errors.As(err, &notFound):
		JSONError(w, notFound.Error(), CodeNotFound, http.StatusNotFound)
	case errors.As(err, &duplicate):
		JSONError(w, duplicate.Error(), CodeDuplicateID, http.StatusConflict)
	case errors.As(err, &invalidID):
		JSONError(w, invalidID.Error(), CodeInvalidID, http.StatusBadRequest)
	case errors.As(err, &format):
		JSONError(w, format.Error(), CodeImportFormat, http.StatusBadRequest)
	case errors.Is(err, inventory.ErrStorage):
		logging.FromContext(r.Context()).Error("inventory storage failure",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		JSONError(w, "inventory storage is unavailable", CodeStorage, http.StatusInternalServerError)
	default:
		logging.FromContext(r.Context()).Error("inventory request failed",
			"path", r.URL.Path,
			"error", err)
		JSONError(w, ErrMessageInternal, CodeInternal, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
