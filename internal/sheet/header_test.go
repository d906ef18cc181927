package sheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeHeader(t *testing.T) {
	cols, err := analyzeHeader([]string{"Product", "Q1", "Q2", "Revenue__sum(Q1, Q2)"})
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, "product", cols[0].Name)
	assert.Nil(t, cols[0].SumOf)
	assert.Equal(t, "revenue", cols[3].Name)
	assert.Equal(t, []string{"q1", "q2"}, cols[3].SumOf)
}

func TestAnalyzeHeader_CaseInsensitiveSumSyntax(t *testing.T) {
	cols, err := analyzeHeader([]string{"a", "Total__SUM(A)"})
	require.NoError(t, err)
	assert.Equal(t, "total", cols[1].Name)
	assert.Equal(t, []string{"a"}, cols[1].SumOf)
}

func TestAnalyzeHeader_BlankCells(t *testing.T) {
	cols, err := analyzeHeader([]string{"", "name", "  "})
	require.NoError(t, err)
	assert.Equal(t, "col1", cols[0].Name)
	assert.Equal(t, "name", cols[1].Name)
	assert.Equal(t, "col3", cols[2].Name)
}

func TestAnalyzeHeader_Duplicates(t *testing.T) {
	cols, err := analyzeHeader([]string{"Revenue", "revenue", "REVENUE"})
	require.NoError(t, err)
	assert.Equal(t, "revenue", cols[0].Name)
	assert.Equal(t, "revenue_2", cols[1].Name)
	assert.Equal(t, "revenue_3", cols[2].Name)
}

func TestAnalyzeHeader_UnknownSumSource(t *testing.T) {
	_, err := analyzeHeader([]string{"a", "total__sum(x, y)"})
	var unknown *UnknownSumSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "total", unknown.Column)
	assert.Equal(t, "x", unknown.Source)
}

func TestAnalyzeHeader_EmptySumSources(t *testing.T) {
	_, err := analyzeHeader([]string{"a", "total__sum( , )"})
	var invalid *InvalidSumDefinitionError
	assert.True(t, errors.As(err, &invalid))
}

func TestAnalyzeHeader_CyclicSums(t *testing.T) {
	_, err := analyzeHeader([]string{"x__sum(y)", "y__sum(x)"})
	var invalid *InvalidSumDefinitionError
	require.ErrorAs(t, err, &invalid)
}

func TestAnalyzeHeader_SumOverDerived(t *testing.T) {
	cols, err := analyzeHeader([]string{"a", "b", "total__sum(a,b)", "grand__sum(total)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"total"}, cols[3].SumOf)
}
