package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Format selects the on-disk layout of a FileStore.
type Format string

const (
	// FormatJSON stores each collection as one pretty-printed JSON array
	// in <name>.json.
	FormatJSON Format = "json"

	// FormatJSONL stores each collection as JSON Lines in <name>.jsonl, one
	// compact record per line.
	FormatJSONL Format = "jsonl"
)

// FileStore keeps one file per collection inside a directory.
type FileStore struct {
	dir    string
	format Format
}

// NewFileStore returns a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string, format Format) (*FileStore, error) {
	switch format {
	case FormatJSON, FormatJSONL:
	default:
		return nil, fmt.Errorf("unknown file format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &FileStore{dir: dir, format: format}, nil
}

// Path returns the file that backs the named collection.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name+"."+string(s.format))
}

// Load reads the collection file. A missing file returns ErrNoData. In JSON
// format an unparsable file is an error; in JSONL format malformed lines are
// skipped.
func (s *FileStore) Load(_ context.Context, name string) ([]json.RawMessage, error) {
	path := s.Path(name)
	if s.format == FormatJSONL {
		records, err := readJSONL(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoData)
		}
		return records, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	records, err := decodeArray(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// Save atomically replaces the collection file.
func (s *FileStore) Save(_ context.Context, name string, records []json.RawMessage) error {
	path := s.Path(name)
	if s.format == FormatJSONL {
		return writeJSONL(path, records)
	}

	compact, err := encodeArray(records)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return fmt.Errorf("indenting %s: %w", name, err)
	}
	buf.WriteByte('\n')
	return writeFileAtomic(path, buf.Bytes())
}

// Close is a no-op; files are closed after each operation.
func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes data using the temp-file, fsync, rename pattern so
// a crash never leaves a truncated collection file behind.
func writeFileAtomic(path string, data []byte) error {
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// writeAtomic creates a temp file next to path, lets fill write to it, then
// syncs and renames it into place. The temp file is removed on any failure.
func writeAtomic(path string, fill func(*os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
