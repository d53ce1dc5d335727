package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cabinet/pkg/types"
)

func TestRedisStoreKeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "")
	defer s.Close()

	assert.Equal(t, "cabinet:books", s.Key(types.BooksResource))

	err := s.Save(context.Background(), types.BooksResource, []json.RawMessage{
		raw(t, types.Book{ID: 1, Title: "Dune", Author: "Herbert"}),
	})
	require.NoError(t, err)

	val, err := mr.Get("cabinet:books")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"Dune","author":"Herbert"}]`, val)
}

func TestRedisStoreEmptyCollection(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "test")
	defer s.Close()

	require.NoError(t, s.Save(context.Background(), types.TasksResource, nil))

	val, err := mr.Get("test:tasks")
	require.NoError(t, err)
	assert.Equal(t, "[]", val)
}

func TestRedisStoreLoadInvalid(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("cabinet:items", "garbage"))

	s := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "")
	defer s.Close()

	_, err := s.Load(context.Background(), types.ItemsResource)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s := NewRedisStore(&redis.Options{Addr: addr, MaxRetries: -1}, "")
	defer s.Close()

	assert.Error(t, s.Ping(context.Background()))
	assert.Error(t, s.Save(context.Background(), types.BooksResource, nil))
}
