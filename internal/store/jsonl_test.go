package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cabinet/pkg/types"
)

func TestJSONLOneRecordPerLine(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, FormatJSONL)
	require.NoError(t, err)

	err = s.Save(context.Background(), types.TasksResource, []json.RawMessage{
		json.RawMessage("{\n  \"id\": 1,\n  \"title\": \"Plan\",\n  \"limit\": \"mon\"\n}"),
		raw(t, types.Task{ID: 2, Title: "Ship", Limit: "fri"}),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "tasks.jsonl"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"id":1,"title":"Plan","limit":"mon"}`, lines[0])
	assert.Equal(t, `{"id":2,"title":"Ship","limit":"fri"}`, lines[1])
}

func TestJSONLSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"id":1,"name":"Pen","price":"100"}
not json at all

{"id":2,"name":"Ink"
{"id":3,"name":"Pad","price":"250"}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.jsonl"), []byte(content), 0o644))

	s, err := NewFileStore(dir, FormatJSONL)
	require.NoError(t, err)

	got, err := s.Load(context.Background(), types.ItemsResource)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"id":1,"name":"Pen","price":"100"}`, string(got[0]))
	assert.JSONEq(t, `{"id":3,"name":"Pad","price":"250"}`, string(got[1]))
}

func TestJSONLEmptyCollectionIsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, FormatJSONL)
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), types.BooksResource, nil))

	info, err := os.Stat(filepath.Join(dir, "books.jsonl"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestJSONLRejectsInvalidRecord(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, FormatJSONL)
	require.NoError(t, err)

	err = s.Save(context.Background(), types.BooksResource, []json.RawMessage{json.RawMessage("{broken")})
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "books.jsonl"))
	assert.True(t, os.IsNotExist(statErr), "failed save must not create the file")
}
