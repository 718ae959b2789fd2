package notebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ogctester/internal/apperrors"
)

func mustExtract(t *testing.T, source string) *Params {
	t.Helper()
	params, err := ExtractSource(source)
	require.NoError(t, err)
	return params
}

func TestExtractSimpleMapping(t *testing.T) {
	t.Parallel()

	params := mustExtract(t, `params = {"name": "water-bodies", "epsg": 4326, "cloudy": False}`)

	assert.Equal(t, []string{"name", "epsg", "cloudy"}, params.Keys())
	name, _ := params.Get("name")
	assert.Equal(t, "water-bodies", name)
	epsg, _ := params.Get("epsg")
	assert.Equal(t, int64(4326), epsg)
	cloudy, _ := params.Get("cloudy")
	assert.Equal(t, false, cloudy)
}

func TestExtractNestedStructures(t *testing.T) {
	t.Parallel()

	params := mustExtract(t, `
import os

params = {
    "aoi": {
        "bbox": [-121.399, 39.834, -120.74, 40.472],
        "crs": "EPSG:4326",
    },
    "bands": ["green", "nir"],
    "threshold": 0.02,
    "label": None,
}
`)

	assert.Equal(t, []string{"aoi", "bands", "threshold", "label"}, params.Keys())

	aoi, ok := params.Get("aoi")
	require.True(t, ok)
	nested := aoi.(*Params)
	assert.Equal(t, []string{"bbox", "crs"}, nested.Keys())
	bbox, _ := nested.Get("bbox")
	assert.Equal(t, []any{-121.399, 39.834, -120.74, 40.472}, bbox)

	bands, _ := params.Get("bands")
	assert.Equal(t, []any{"green", "nir"}, bands)
	threshold, _ := params.Get("threshold")
	assert.Equal(t, 0.02, threshold)
	label, _ := params.Get("label")
	assert.Nil(t, label)
}

func TestExtractStringForms(t *testing.T) {
	t.Parallel()

	params := mustExtract(t, `params = {
    "escaped": "line one\nline two\ttabbed",
    "single": 'it\'s fine',
    "adjacent": 'it''s fine',
    "concat": "part one "
              "part two",
    "triple": """first
second""",
    "unicode": "café",
}`)

	escaped, _ := params.Get("escaped")
	assert.Equal(t, "line one\nline two\ttabbed", escaped)
	single, _ := params.Get("single")
	assert.Equal(t, "it's fine", single)
	// Back-to-back quoted strings concatenate; '' is not an escaped quote.
	adjacent, _ := params.Get("adjacent")
	assert.Equal(t, "its fine", adjacent)
	concat, _ := params.Get("concat")
	assert.Equal(t, "part one part two", concat)
	triple, _ := params.Get("triple")
	assert.Equal(t, "first\nsecond", triple)
	uni, _ := params.Get("unicode")
	assert.Equal(t, "café", uni)
}

func TestExtractNumberForms(t *testing.T) {
	t.Parallel()

	params := mustExtract(t, `params = {
    "int": 42,
    "negative": -7,
    "float": 3.25,
    "exponent": 1.5e3,
    "negexp": 2E-2,
    "grouped": 1_000_000,
}`)

	for key, want := range map[string]any{
		"int":      int64(42),
		"negative": int64(-7),
		"float":    3.25,
		"exponent": 1500.0,
		"negexp":   0.02,
		"grouped":  int64(1000000),
	} {
		got, ok := params.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestExtractCommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	params := mustExtract(t, `params = {
    # area of interest
    "bbox": [1, 2, 3, 4,],  # WGS84
    "flag": True,
}`)

	assert.Equal(t, []string{"bbox", "flag"}, params.Keys())
	bbox, _ := params.Get("bbox")
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, bbox)
}

func TestExtractRejectsCall(t *testing.T) {
	t.Parallel()

	_, err := ExtractSource(`params = compute_defaults()`)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsafeExpression)
	assert.Contains(t, err.Error(), "compute_defaults")
}

func TestExtractRejectsNameInsideLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
	}{
		{"bare name value", `params = {"a": some_variable}`},
		{"call value", `params = {"a": os.getenv("HOME")}`},
		{"call in list", `params = {"a": [1, build(), 3]}`},
		{"bare assignment", `params = defaults`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ExtractSource(tt.source)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUnsafeExpression,
				"must reject without falling back, got: %v", err)
		})
	}
}

func TestExtractFallbackBareKeys(t *testing.T) {
	t.Parallel()

	// Bare keys fail the strict grammar but are benign; the fallback
	// grammar reads them as strings with order intact.
	params, err := ExtractSource(`params = {stac: "https://example.com/item", epsg: 4326, wet: True, empty: None}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"stac", "epsg", "wet", "empty"}, params.Keys())
	epsg, _ := params.Get("epsg")
	assert.Equal(t, int64(4326), epsg)
	wet, _ := params.Get("wet")
	assert.Equal(t, true, wet)
	empty, _ := params.Get("empty")
	assert.Nil(t, empty)
}

func TestExtractParseErrorCarriesSnippet(t *testing.T) {
	t.Parallel()

	_, err := ExtractSource(`params = {"a": 1`)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParamsParse)
	assert.Contains(t, err.Error(), `{"a": 1`)
}

func TestExtractNotebookFirstParsedCellWins(t *testing.T) {
	t.Parallel()

	nb := &Notebook{Cells: []Cell{
		{CellType: "markdown", Source: `params = {"from": "markdown"}`},
		{CellType: "code", Source: "import os\nprint(os.getcwd())\n"},
		{CellType: "code", Source: `params = {"winner": True}`},
		{CellType: "code", Source: `params = {"loser": True}`},
	}}

	params, err := Extract(nb, "pattern-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"winner"}, params.Keys())
}

func TestExtractNotebookWithoutParams(t *testing.T) {
	t.Parallel()

	nb := &Notebook{Cells: []Cell{
		{CellType: "code", Source: "print('no parameters here')\n"},
		{CellType: "code", Source: "if params == expected:\n    pass\n"},
	}}

	_, err := Extract(nb, "pattern-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrParamsNotFound)
	assert.Contains(t, err.Error(), "pattern-3")
}

func TestParseNotebookSourceEncodings(t *testing.T) {
	t.Parallel()

	doc := `{
  "cells": [
    {"cell_type": "code", "source": ["params = {\n", "    \"a\": 1,\n", "}\n"]},
    {"cell_type": "code", "source": "print('joined form')"}
  ]
}`
	nb, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, nb.Cells, 2)

	params, err := Extract(nb, "pattern-1")
	require.NoError(t, err)
	a, _ := params.Get("a")
	assert.Equal(t, int64(1), a)
}

func TestExtractRoundTrip(t *testing.T) {
	t.Parallel()

	params := mustExtract(t, `params = {"a": 1, "b": [1, 2, 3], "c": {"d": "x\ny"}}`)
	require.Equal(t, []string{"a", "b", "c"}, params.Keys())

	path := t.TempDir() + "/pattern-1.json"
	require.NoError(t, params.WriteFile(path))

	reloaded := loadParams(t, path)
	assert.Equal(t, []string{"a", "b", "c"}, reloaded.Keys())

	a, _ := reloaded.Get("a")
	assert.Equal(t, int64(1), a)
	b, _ := reloaded.Get("b")
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, b)
	c, _ := reloaded.Get("c")
	nested := c.(*Params)
	d, _ := nested.Get("d")
	assert.Equal(t, "x\ny", d)

	// Re-extracting unchanged source must produce identical bytes.
	again := mustExtract(t, `params = {"a": 1, "b": [1, 2, 3], "c": {"d": "x\ny"}}`)
	first, err := params.Encode()
	require.NoError(t, err)
	second, err := again.Encode()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
