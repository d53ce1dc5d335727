package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cabinet/pkg/types"
)

func TestSQLiteCreatesDatabaseFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := OpenSQLite(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, SQLiteFileName))
	assert.NoError(t, err)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	records := []json.RawMessage{
		raw(t, types.Item{ID: 1, Name: "Pen", Price: "100"}),
		raw(t, types.Item{ID: 2, Name: "Ink", Price: "300"}),
	}

	s, err := OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, types.ItemsResource, records))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(dir)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Load(ctx, types.ItemsResource)
	require.NoError(t, err)
	assert.Equal(t, compactAll(t, records), compactAll(t, got))
}

func TestSQLiteRejectsInvalidRecord(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	good := []json.RawMessage{raw(t, types.Book{ID: 1, Title: "Dune"})}
	require.NoError(t, s.Save(ctx, types.BooksResource, good))

	err = s.Save(ctx, types.BooksResource, []json.RawMessage{json.RawMessage("{broken")})
	assert.Error(t, err)

	got, err := s.Load(ctx, types.BooksResource)
	require.NoError(t, err)
	assert.Equal(t, compactAll(t, good), compactAll(t, got), "failed save must roll back")
}
