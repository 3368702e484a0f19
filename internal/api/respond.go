package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verist/sitechain/internal/chain"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeLedgerError maps ledger error categories onto HTTP statuses.
// Storage details never reach the client; they are logged server-side.
func writeLedgerError(w http.ResponseWriter, err error) {
	var le *chain.LedgerError
	if !errors.As(err, &le) {
		slog.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}

	switch le.Code {
	case chain.ErrCodeValidation:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", le.Message)
	case chain.ErrCodeScopeNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", le.Message)
	case chain.ErrCodeDuplicateRecord:
		writeError(w, http.StatusConflict, "DUPLICATE_RECORD", le.Message)
	default:
		slog.Error("storage error", "scope", le.Scope, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
