package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"workdash/internal/core"
	"workdash/internal/ingest"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// writeJSON encodes v with sonic. Encoding failures become a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// importErrorMessage returns the message shown to the user when err is a
// problem with the uploaded content. Infrastructure errors return false.
func importErrorMessage(err error) (string, bool) {
	var schemaErr *core.SchemaError
	var fieldErr *core.FieldError
	switch {
	case errors.As(err, &schemaErr):
		return "Missing required columns: " + strings.Join(schemaErr.Missing, ", "), true
	case errors.As(err, &fieldErr):
		return "Malformed value in row " + strconv.Itoa(fieldErr.Row) + ", column " + fieldErr.Column + ": " + fieldErr.Value, true
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return "Unsupported file type. Upload a .csv or .xlsx export.", true
	case errors.Is(err, ingest.ErrEmptyFile), errors.Is(err, ingest.ErrNoHeader), errors.Is(err, core.ErrEmptyTable):
		return "The uploaded file contains no records.", true
	case errors.Is(err, ingest.ErrUnreadable):
		return "The uploaded file could not be read.", true
	case errors.Is(err, core.ErrNoDates), errors.Is(err, core.ErrInvalidDate):
		return "The workDate column contains no valid dates.", true
	}
	return "", false
}
