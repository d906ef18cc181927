package web

// errors.go maps engine error kinds onto HTTP statuses and the JSON
// error envelope. Every error kind carries enough context (offending
// name, row number) to be surfaced verbatim to the caller.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/JonMunkholm/sheets/internal/sheet"
)

// statusFor resolves the HTTP status for an engine error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sheet.ErrSheetNotFound),
		errors.Is(err, sheet.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheet.ErrEmptyWorksheet):
		return http.StatusBadRequest
	}

	var (
		invalidName   *sheet.InvalidNameError
		unsupported   *sheet.UnsupportedTypeError
		duplicate     *sheet.DuplicateTableNameError
		nonNumeric    *sheet.NonNumericSumSourceError
		unknownSource *sheet.UnknownSumSourceError
		invalidSum    *sheet.InvalidSumDefinitionError
		worksheetGone *sheet.WorksheetNotFoundError
	)
	switch {
	case errors.As(err, &invalidName),
		errors.As(err, &unsupported),
		errors.As(err, &duplicate),
		errors.As(err, &nonNumeric),
		errors.As(err, &unknownSource),
		errors.As(err, &invalidSum),
		errors.As(err, &worksheetGone):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error with request context and writes
// the {"error": ...} envelope with the mapped status.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	writeError(w, status, err.Error())
}

// writeError writes a JSON error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
