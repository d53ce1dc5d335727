package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cabinet/internal/store"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

// memStore is an in-memory store.Store that can be told to fail.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]json.RawMessage
	saves   int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]json.RawMessage)}
}

func (m *memStore) Load(_ context.Context, name string) ([]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	recs, ok := m.data[name]
	if !ok {
		return nil, store.ErrNoData
	}
	return recs, nil
}

func (m *memStore) Save(_ context.Context, name string, records []json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[name] = records
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) stored(t *testing.T, name string) []types.Book {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Book
	for _, raw := range m.data[name] {
		var b types.Book
		require.NoError(t, json.Unmarshal(raw, &b))
		out = append(out, b)
	}
	return out
}

// countingRecorder captures Recorder calls.
type countingRecorder struct {
	mu        sync.Mutex
	mutations map[string]int
	failures  int
	size      int
}

func (c *countingRecorder) Mutation(_, op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mutations == nil {
		c.mutations = make(map[string]int)
	}
	c.mutations[op]++
}

func (c *countingRecorder) PersistFailure(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

func (c *countingRecorder) SetRecords(_ string, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = n
}

func book(title, author string) func(int) types.Book {
	return func(id int) types.Book {
		return types.Book{ID: id, Title: title, Author: author}
	}
}

func ids(books []types.Book) []int {
	out := make([]int, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	repo := New[types.Book](ctx, types.BooksResource, s)

	first := repo.Add(ctx, book("Dune", "Herbert"))
	second := repo.Add(ctx, book("Emma", "Austen"))
	third := repo.Add(ctx, book("Ubik", "Dick"))

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 3, third.ID)

	got := repo.List()
	assert.Equal(t, []types.Book{
		{ID: 1, Title: "Dune", Author: "Herbert"},
		{ID: 2, Title: "Emma", Author: "Austen"},
		{ID: 3, Title: "Ubik", Author: "Dick"},
	}, got)
	assert.Equal(t, got, s.stored(t, types.BooksResource))
	assert.Equal(t, 3, s.saves)
}

func TestAddAfterDeletingLastReusesID(t *testing.T) {
	ctx := context.Background()
	repo := New[types.Book](ctx, types.BooksResource, newMemStore())

	repo.Add(ctx, book("A", ""))
	repo.Add(ctx, book("B", ""))
	repo.Delete(ctx, 2)
	again := repo.Add(ctx, book("C", ""))

	assert.Equal(t, 2, again.ID)
	assert.Equal(t, []int{1, 2}, ids(repo.List()))
}

func TestLastStrategyFollowsLastElementNotMaximum(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.data[types.BooksResource] = []json.RawMessage{
		json.RawMessage(`{"id":7,"title":"high"}`),
		json.RawMessage(`{"id":3,"title":"low"}`),
	}
	repo := New[types.Book](ctx, types.BooksResource, s)

	added := repo.Add(ctx, book("next", ""))
	assert.Equal(t, 4, added.ID)
}

func TestMaxStrategyNeverReusesIDs(t *testing.T) {
	ctx := context.Background()
	repo := New[types.Book](ctx, types.BooksResource, newMemStore(),
		WithIDStrategy(types.IDStrategyMax))

	repo.Add(ctx, book("A", ""))
	repo.Add(ctx, book("B", ""))
	repo.Delete(ctx, 2)
	again := repo.Add(ctx, book("C", ""))
	assert.Equal(t, 3, again.ID)

	repo.Delete(ctx, 1)
	repo.Delete(ctx, 3)
	assert.Zero(t, repo.Len())
	assert.Equal(t, 4, repo.Add(ctx, book("D", "")).ID)
}

func TestMaxStrategySeedsFromLoadedData(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.data[types.BooksResource] = []json.RawMessage{
		json.RawMessage(`{"id":7,"title":"high"}`),
		json.RawMessage(`{"id":3,"title":"low"}`),
	}
	repo := New[types.Book](ctx, types.BooksResource, s, WithIDStrategy(types.IDStrategyMax))

	assert.Equal(t, 8, repo.Add(ctx, book("next", "")).ID)
}

func TestAddOnEmptyAssignsOne(t *testing.T) {
	ctx := context.Background()
	for _, strategy := range []string{types.IDStrategyLast, types.IDStrategyMax} {
		t.Run(strategy, func(t *testing.T) {
			repo := New[types.Task](ctx, types.TasksResource, newMemStore(), WithIDStrategy(strategy))
			got := repo.Add(ctx, func(id int) types.Task {
				return types.Task{ID: id, Title: "Plan", Limit: "today"}
			})
			assert.Equal(t, types.Task{ID: 1, Title: "Plan", Limit: "today"}, got)
		})
	}
}

func TestDeleteRemovesAllMatches(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.data[types.BooksResource] = []json.RawMessage{
		json.RawMessage(`{"id":1,"title":"a"}`),
		json.RawMessage(`{"id":2,"title":"b"}`),
		json.RawMessage(`{"id":1,"title":"c"}`),
		json.RawMessage(`{"id":3,"title":"d"}`),
	}
	repo := New[types.Book](ctx, types.BooksResource, s)

	repo.Delete(ctx, 1)

	got := repo.List()
	assert.Equal(t, []int{2, 3}, ids(got))
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, got, s.stored(t, types.BooksResource))
}

func TestDeleteMissingIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	repo := New[types.Book](ctx, types.BooksResource, s)
	repo.Add(ctx, book("Dune", "Herbert"))

	repo.Delete(ctx, 42)

	assert.Equal(t, []types.Book{{ID: 1, Title: "Dune", Author: "Herbert"}}, repo.List())
	assert.Equal(t, repo.List(), s.stored(t, types.BooksResource))
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	s.data[types.BooksResource] = []json.RawMessage{
		json.RawMessage(`{"id":1,"title":"first"}`),
		json.RawMessage(`{"id":2,"title":"second"}`),
		json.RawMessage(`{"id":2,"title":"duplicate"}`),
	}
	repo := New[types.Book](ctx, types.BooksResource, s)

	got, ok := repo.Find(2)
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)

	got, ok = repo.Find(9)
	assert.False(t, ok)
	assert.Equal(t, types.Book{}, got)
}

func TestListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := New[types.Book](ctx, types.BooksResource, newMemStore())
	repo.Add(ctx, book("Dune", "Herbert"))

	got := repo.List()
	got[0].Title = "changed"

	stored, _ := repo.Find(1)
	assert.Equal(t, "Dune", stored.Title)
}

func TestNewWithMissingDataStartsEmpty(t *testing.T) {
	var logs bytes.Buffer
	repo := New[types.Item](context.Background(), types.ItemsResource, newMemStore(),
		WithLogger(log.New(&logs, "", 0)))

	assert.Zero(t, repo.Len())
	assert.Contains(t, logs.String(), "items: no stored data")
}

func TestNewWithLoadErrorStartsEmpty(t *testing.T) {
	var logs bytes.Buffer
	s := newMemStore()
	s.loadErr = errors.New("disk on fire")

	repo := New[types.Item](context.Background(), types.ItemsResource, s,
		WithLogger(log.New(&logs, "", 0)))

	assert.Zero(t, repo.Len())
	assert.Contains(t, logs.String(), "items: load failed")
	assert.Contains(t, logs.String(), "disk on fire")
}

func TestNewWithUndecodableRecordStartsEmpty(t *testing.T) {
	var logs bytes.Buffer
	s := newMemStore()
	s.data[types.BooksResource] = []json.RawMessage{
		json.RawMessage(`{"id":1,"title":"ok"}`),
		json.RawMessage(`{"id":"two","title":"bad"}`),
	}

	repo := New[types.Book](context.Background(), types.BooksResource, s,
		WithLogger(log.New(&logs, "", 0)))

	assert.Zero(t, repo.Len())
	assert.Contains(t, logs.String(), "decoding record 1")
}

func TestNewWithInvalidFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books.json"), []byte("{{{"), 0o644))

	fs, err := store.NewFileStore(dir, store.FormatJSON)
	require.NoError(t, err)

	repo := New[types.Book](context.Background(), types.BooksResource, fs)
	assert.Zero(t, repo.Len())
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	rec := &countingRecorder{}
	s := newMemStore()
	s.saveErr = errors.New("read-only filesystem")

	repo := New[types.Book](ctx, types.BooksResource, s,
		WithLogger(log.New(&logs, "", 0)), WithRecorder(rec))

	added := repo.Add(ctx, book("Dune", "Herbert"))

	assert.Equal(t, 1, added.ID)
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, 1, rec.failures)
	assert.Contains(t, logs.String(), "books: save failed: read-only filesystem")
}

func TestRecorderTracksMutations(t *testing.T) {
	ctx := context.Background()
	rec := &countingRecorder{}
	repo := New[types.Book](ctx, types.BooksResource, newMemStore(), WithRecorder(rec))

	repo.Add(ctx, book("A", ""))
	repo.Add(ctx, book("B", ""))
	repo.Delete(ctx, 1)

	assert.Equal(t, 2, rec.mutations[OpAdd])
	assert.Equal(t, 1, rec.mutations[OpDelete])
	assert.Equal(t, 1, rec.size)
	assert.Zero(t, rec.failures)
}

func TestConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	repo := New[types.Book](ctx, types.BooksResource, s)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			repo.Add(ctx, book("concurrent", ""))
		}()
	}
	wg.Wait()

	got := repo.List()
	require.Len(t, got, n)
	for i, b := range got {
		assert.Equal(t, i+1, b.ID)
	}
	assert.Len(t, s.stored(t, types.BooksResource), n)
}

func TestCancelledContextStillPersists(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir, store.FormatJSON)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := New[types.Book](context.Background(), types.BooksResource, fs)
	repo.Add(ctx, book("Dune", "Herbert"))

	reloaded := New[types.Book](context.Background(), types.BooksResource, fs)
	assert.Equal(t, repo.List(), reloaded.List())
}

func TestReloadFromFileStore(t *testing.T) {
	ctx := context.Background()
	for _, format := range []store.Format{store.FormatJSON, store.FormatJSONL} {
		t.Run(string(format), func(t *testing.T) {
			fs, err := store.NewFileStore(t.TempDir(), format)
			require.NoError(t, err)

			repo := New[types.Item](ctx, types.ItemsResource, fs)
			repo.Add(ctx, func(id int) types.Item { return types.Item{ID: id, Name: "Pen", Price: "100"} })
			repo.Add(ctx, func(id int) types.Item { return types.Item{ID: id, Name: "Ink", Price: ""} })
			repo.Delete(ctx, 1)

			reloaded := New[types.Item](ctx, types.ItemsResource, fs)
			assert.Equal(t, []types.Item{{ID: 2, Name: "Ink", Price: ""}}, reloaded.List())
		})
	}
}
