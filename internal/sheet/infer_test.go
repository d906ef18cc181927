package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   DataType
	}{
		{"booleans", []string{"true", "FALSE", "yes", "no"}, TypeBoolean},
		{"zero one is boolean", []string{"1", "0", "1"}, TypeBoolean},
		{"integers", []string{"1", "42", "-7"}, TypeInteger},
		{"floats", []string{"1.5", "2", "3.25"}, TypeFloat},
		{"dates", []string{"2024-01-15", "2024-02-01"}, TypeDate},
		{"slash dates", []string{"01/15/2024", "12/31/2023"}, TypeDate},
		{"strings", []string{"alpha", "beta"}, TypeString},
		{"mixed falls back to string", []string{"1", "two", "3"}, TypeString},
		{"blanks ignored", []string{"", "  ", "5", ""}, TypeInteger},
		{"all blank defaults to string", []string{"", "   "}, TypeString},
		{"empty defaults to string", nil, TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferColumnType(tt.values))
		})
	}
}

func TestInferColumnType_SampleLimit(t *testing.T) {
	// A bad value past the sample limit must not affect classification.
	values := make([]string, 0, inferSampleLimit+1)
	for i := 0; i < inferSampleLimit; i++ {
		values = append(values, "7")
	}
	values = append(values, "not a number")
	assert.Equal(t, TypeInteger, inferColumnType(values))
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		typ  DataType
		want any
	}{
		{"integer", "42", TypeInteger, int64(42)},
		{"integer from float text", "42.0", TypeInteger, int64(42)},
		{"float", "3.14", TypeFloat, 3.14},
		{"bool true", "yes", TypeBoolean, true},
		{"bool false", "no", TypeBoolean, false},
		{"string", " hello ", TypeString, "hello"},
		{"blank is nil", "   ", TypeInteger, nil},
		{"unparseable int is nil", "abc", TypeInteger, nil},
		{"unparseable float is nil", "abc", TypeFloat, nil},
		{"unparseable date is nil", "not a date", TypeDate, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCell(tt.raw, tt.typ))
		})
	}
}

func TestParseCell_Date(t *testing.T) {
	got := parseCell("2024-01-15", TypeDate)
	require.IsType(t, time.Time{}, got)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}
