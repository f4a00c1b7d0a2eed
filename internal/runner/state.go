package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SummaryStore persists a RunSummary as JSON, for CI tooling that wants
// machine-readable results.
type SummaryStore struct {
	path string
}

// NewSummaryStore creates a store writing to path.
func NewSummaryStore(path string) *SummaryStore {
	return &SummaryStore{path: path}
}

// Read loads a previously written summary. A missing file yields nil.
func (s *SummaryStore) Read() (*RunSummary, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening summary file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sum RunSummary
	if err := json.NewDecoder(f).Decode(&sum); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}
	return &sum, nil
}

// Write saves the summary.
func (s *SummaryStore) Write(sum RunSummary) (err error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
