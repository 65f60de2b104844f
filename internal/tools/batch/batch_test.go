package batch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    []string
		wantErr string
	}{
		{name: "single string", input: "abc", want: []string{"abc"}},
		{name: "array", input: []interface{}{"a", "b"}, want: []string{"a", "b"}},
		{name: "string slice", input: []string{"a"}, want: []string{"a"}},
		{name: "json array string", input: `["a.pdf", "b.pdf"]`, want: []string{"a.pdf", "b.pdf"}},
		{name: "json array with padding", input: "  [\"x\"]  ", want: []string{"x"}},
		{name: "bracketed name is one value", input: "[draft] notes.txt", want: []string{"[draft] notes.txt"}},
		{name: "broken json is one value", input: "[oops", want: []string{"[oops"}},
		{name: "nil", input: nil, wantErr: "fileIds is required"},
		{name: "empty string", input: "", wantErr: "fileIds cannot be empty"},
		{name: "blank string", input: "   ", wantErr: "fileIds cannot be empty"},
		{name: "empty array", input: []interface{}{}, wantErr: "fileIds cannot be empty"},
		{name: "empty json array", input: "[]", wantErr: "fileIds cannot be empty"},
		{name: "non-string element", input: []interface{}{"a", 1.0}, wantErr: "fileIds[1] must be a string"},
		{name: "empty element", input: []interface{}{""}, wantErr: "fileIds[0] cannot be empty"},
		{name: "json with number", input: `["a", 2]`, wantErr: "fileIds[1] must be a string"},
		{name: "wrong type", input: 42, wantErr: "must be a string or array of strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "fileIds")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessBatch_ContinuesAfterFailure(t *testing.T) {
	var seen []string
	results := ProcessBatch([]string{"a", "b", "c"}, func(id string) (interface{}, error) {
		seen = append(seen, id)
		if id == "b" {
			return nil, errors.New("boom")
		}
		return map[string]string{"id": id}, nil
	})

	assert.Equal(t, []string{"a", "b", "c"}, seen)
	require.Len(t, results, 3)
	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, "boom", results[1].Error)
	assert.Nil(t, results[1].Result)
	assert.Equal(t, StatusSuccess, results[2].Status)
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		NewSuccessResult("1", "ok"),
		NewSuccessResult("2", map[string]int{"n": 2}),
		NewErrorResult("3", errors.New("not found")),
	})

	var br BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &br))
	assert.Equal(t, 3, br.Total)
	assert.Equal(t, 2, br.Successful)
	assert.Equal(t, 1, br.Failed)
	assert.Equal(t, "not found", br.Results[2].Error)
	assert.Equal(t, map[string]interface{}{"n": float64(2)}, br.Results[1].Result)
}

func TestToolResult(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		isError bool
	}{
		{"all succeeded", []Result{NewSuccessResult("1", "ok")}, false},
		{"partial failure", []Result{NewSuccessResult("1", "ok"), NewErrorResult("2", errors.New("boom"))}, false},
		{"all failed", []Result{NewErrorResult("1", errors.New("boom")), NewErrorResult("2", errors.New("boom"))}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ToolResult(tt.results)
			assert.Equal(t, tt.isError, res.IsError)
			require.Len(t, res.Content, 1)

			text, ok := mcp.AsTextContent(res.Content[0])
			require.True(t, ok)
			var br BatchResult
			require.NoError(t, json.Unmarshal([]byte(text.Text), &br))
			assert.Equal(t, len(tt.results), br.Total)
		})
	}
}
