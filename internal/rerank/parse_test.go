package rerank

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLLMResponse_DirectArray(t *testing.T) {
	raw := `[{"id": "abc-123", "score": 85, "reason": "strong backend skills"}]`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc-123", entries[0].ID)
	assert.Equal(t, 85.0, entries[0].Score)
	assert.Equal(t, "strong backend skills", entries[0].Reason)
}

func TestParseLLMResponse_FencedWithProse(t *testing.T) {
	raw := "Here are the rankings you asked for:\n```json\n" +
		`[{"id": "abc-123", "score": 72, "reason": "good fit"}]` +
		"\n```\nLet me know if you need anything else."

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc-123", entries[0].ID)
}

func TestParseLLMResponse_WrapperObject(t *testing.T) {
	for _, key := range []string{"rankings", "scores", "results", "candidates"} {
		raw := `{"` + key + `": [{"id": "x1", "score": 60}]}`
		entries, err := parseLLMResponse(raw)
		require.NoError(t, err, "wrapper key %q", key)
		require.Len(t, entries, 1, "wrapper key %q", key)
		assert.Equal(t, "x1", entries[0].ID)
	}
}

func TestParseLLMResponse_TruncatedArray(t *testing.T) {
	// Cut off mid-object, as a length-limited completion would be.
	raw := `[{"id": "a1", "score": 90, "reason": "excellent"}, {"id": "b2", "score": 75, "reason": "goo`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "a1", entries[0].ID)
}

func TestParseLLMResponse_TruncatedKeepsOnlyCompleteRows(t *testing.T) {
	raw := `[{"id": "a1", "score": 90, "reason": "done"}, {"id": "b2", "sco`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a1", entries[0].ID)
	assert.Equal(t, 90.0, entries[0].Score)
}

func TestParseLLMResponse_BracesInsideReason(t *testing.T) {
	raw := `[{"id": "a1", "score": 55, "reason": "knows {json} and [arrays]"}]`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "knows {json} and [arrays]", entries[0].Reason)
}

func TestParseLLMResponse_AlternateKeys(t *testing.T) {
	raw := `[{"candidate_id": "c9", "rating": 44, "rationale": "average"}]`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c9", entries[0].ID)
	assert.Equal(t, 44.0, entries[0].Score)
	assert.Equal(t, "average", entries[0].Reason)
}

func TestParseLLMResponse_NumericIDBecomesIndex(t *testing.T) {
	raw := `[{"id": 2, "score": 80}, {"id": "3", "score": 70}]`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Index)
	assert.Empty(t, entries[0].ID)
	assert.Equal(t, 3, entries[1].Index)
}

func TestParseLLMResponse_StringScore(t *testing.T) {
	raw := `[{"id": "a1", "score": "88"}]`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 88.0, entries[0].Score)
}

func TestParseLLMResponse_RegexSalvage(t *testing.T) {
	raw := `The scores are {"id": "a1", "score": 65} and also {"id": "b2", "score": 40} roughly.`

	entries, err := parseLLMResponse(raw)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestParseLLMResponse_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "no json here at all", `{"unrelated": true}`} {
		_, err := parseLLMResponse(raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, ErrParseFailed), "input %q", raw)
	}
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.85, 85},  // fractional scale
		{1, 100},    // boundary treated as fraction
		{85, 85},    // already 0-100
		{150, 100},  // clamp high
		{-5, 0},     // clamp low
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeScore(tt.in), "normalizeScore(%v)", tt.in)
	}
}

func TestParseKeepList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{"wrapper object", `{"keep": [1, 3, 5]}`, []int{1, 3, 5}},
		{"fenced wrapper", "```json\n{\"keep\": [2, 4]}\n```", []int{2, 4}},
		{"bare array", `[1, 2, 3]`, []int{1, 2, 3}},
		{"truncated wrapper", `{"keep": [1, 2`, []int{1, 2}},
		{"truncated bare array", `[4, 7`, []int{4, 7}},
	}
	for _, tt := range tests {
		got, err := parseKeepList(tt.raw)
		require.NoError(t, err, "%s: %q", tt.name, tt.raw)
		assert.Equal(t, tt.want, got, "%s: %q", tt.name, tt.raw)
	}
}

func TestParseKeepList_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "keep everyone", `{"keep": []}`} {
		_, err := parseKeepList(raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, ErrParseFailed), "input %q", raw)
	}
}
