package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped. The returned error wraps
// os.ErrNotExist when the file is missing.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records := []json.RawMessage{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file, one compact record
// per line. An empty collection produces an empty file.
func writeJSONL(path string, records []json.RawMessage) error {
	return writeAtomic(path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		var line bytes.Buffer
		for _, rec := range records {
			line.Reset()
			if err := json.Compact(&line, rec); err != nil {
				return fmt.Errorf("compacting record: %w", err)
			}
			line.WriteByte('\n')
			if _, err := w.Write(line.Bytes()); err != nil {
				return fmt.Errorf("writing record: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flushing buffer: %w", err)
		}
		return nil
	})
}
