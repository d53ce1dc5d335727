// Package store persists whole collections of records. A collection is read
// and written as a unit; there are no partial updates.
//
// Records cross the Store boundary as raw JSON so that a single interface
// serves every record type. Callers marshal and unmarshal their own structs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/cabinet/pkg/types"
)

// ErrNoData is returned by Load when the named collection has never been
// saved.
var ErrNoData = errors.New("no stored data")

// Store reads and writes named collections.
type Store interface {
	// Load returns every record of the named collection in stored order.
	// Returns ErrNoData (possibly wrapped) if the collection does not exist.
	Load(ctx context.Context, name string) ([]json.RawMessage, error)

	// Save replaces the named collection with records. An empty or nil
	// slice stores an empty collection.
	Save(ctx context.Context, name string, records []json.RawMessage) error

	// Close releases backend resources.
	Close() error
}

// Open creates the Store selected by cfg.Backend.
func Open(cfg types.Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}

	switch cfg.Backend {
	case types.BackendJSON:
		return NewFileStore(dataDir, FormatJSON)
	case types.BackendJSONL:
		return NewFileStore(dataDir, FormatJSONL)
	case types.BackendSQLite:
		return OpenSQLite(dataDir)
	case types.BackendRedis:
		return NewRedisStore(&redis.Options{Addr: cfg.RedisAddr}, DefaultRedisPrefix), nil
	default:
		return nil, fmt.Errorf("open store %q: %w", cfg.Backend, types.ErrBackendUnknown)
	}
}

// encodeArray marshals records as a JSON array, writing [] for an empty
// collection.
func encodeArray(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.Marshal(records)
}

// decodeArray parses a JSON array into its elements. A literal null is an
// empty collection.
func decodeArray(data []byte) ([]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
