package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasirlabs/semidx/internal/search"
	"github.com/kvasirlabs/semidx/internal/store"
)

func TestNewRootCmd_CommandTree(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"index", "search", "similar", "stats", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestRunIndex_UnknownTarget(t *testing.T) {
	err := runIndex(&cobra.Command{}, []string{"widgets"}, indexOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown index target")
}

func sampleResults() []search.Result {
	return []search.Result{
		{
			Rank:       1,
			Similarity: 0.91,
			Record: &store.EmbeddingRecord{
				ContentType:    store.ContentTypeCode,
				ContentID:      "auth/token.go",
				ChunkIndex:     2,
				ContentPreview: "func ValidateToken(raw string) error {\nmore",
			},
		},
		{
			Rank:       2,
			Similarity: 0.72,
			Record: &store.EmbeddingRecord{
				ContentType: store.ContentTypeTask,
				ContentID:   "#7",
			},
		},
	}
}

func TestWriteResults_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, sampleResults(), "text"))

	out := buf.String()
	assert.Contains(t, out, "[0.910] code auth/token.go (chunk 2)")
	assert.Contains(t, out, "func ValidateToken(raw string) error {")
	assert.NotContains(t, out, "more", "preview is trimmed to its first line")
	assert.Contains(t, out, "[0.720] task #7")
}

func TestWriteResults_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, nil, "text"))
	assert.Contains(t, buf.String(), "No results.")
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, sampleResults(), "json"))

	var decoded []jsonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 1, decoded[0].Rank)
	assert.Equal(t, "code", decoded[0].ContentType)
	assert.Equal(t, "auth/token.go", decoded[0].ContentID)
}

func TestWriteResults_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeResults(&buf, nil, "yaml"))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one\ntwo"))
	assert.Equal(t, "single", firstLine("single"))
}
