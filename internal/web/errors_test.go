package web

import (
	"errors"
	"net/http"
	"testing"

	"github.com/JonMunkholm/sheets/internal/sheet"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"sheet not found", sheet.ErrSheetNotFound, http.StatusNotFound},
		{"row not found", sheet.ErrRowNotFound, http.StatusNotFound},
		{"empty worksheet", sheet.ErrEmptyWorksheet, http.StatusBadRequest},
		{"invalid name", &sheet.InvalidNameError{Raw: "!!!"}, http.StatusBadRequest},
		{"unsupported type", &sheet.UnsupportedTypeError{Type: "money"}, http.StatusBadRequest},
		{"duplicate table", &sheet.DuplicateTableNameError{TableName: "x"}, http.StatusBadRequest},
		{"non-numeric sum source", &sheet.NonNumericSumSourceError{Source: "a"}, http.StatusBadRequest},
		{"unknown sum source", &sheet.UnknownSumSourceError{Column: "t", Source: "x"}, http.StatusBadRequest},
		{"invalid sum definition", &sheet.InvalidSumDefinitionError{Column: "t", Reason: "cyclic"}, http.StatusBadRequest},
		{"worksheet not found", &sheet.WorksheetNotFoundError{Worksheet: "Data"}, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusFor_WrappedError(t *testing.T) {
	err := errors.Join(errors.New("context"), sheet.ErrSheetNotFound)
	if got := statusFor(err); got != http.StatusNotFound {
		t.Errorf("statusFor(wrapped) = %d, want %d", got, http.StatusNotFound)
	}
}
