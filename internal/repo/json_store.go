package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/models"
)

// ========================
// JSON FILE STORE
// ========================

// JSONStore keeps the inventory as a JSON array in a single file. Older files
// may use legacy keys or numeric ids; both are normalized on load.
type JSONStore struct {
	Path string
}

func NewJSONStore(path string) *JSONStore {
	return &JSONStore{Path: path}
}

// Load reads the file. A missing file is an empty inventory.
func (s *JSONStore) Load(ctx context.Context) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &inventory.StorageError{Op: "load", Err: err}
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Record{}, nil
		}
		return nil, &inventory.StorageError{Op: "load", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Record{}, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &inventory.StorageError{Op: "load", Err: fmt.Errorf("%s: %w", s.Path, err)}
	}

	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		records = append(records, inventory.Normalize(inventory.RawFromJSON(item)))
	}
	return records, nil
}

// Save replaces the file contents. It writes a sibling temp file and renames
// it over the target so readers never see a partial file.
func (s *JSONStore) Save(ctx context.Context, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return &inventory.StorageError{Op: "save", Err: err}
	}
	if records == nil {
		records = []models.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &inventory.StorageError{Op: "save", Err: err}
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &inventory.StorageError{Op: "save", Err: err}
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return &inventory.StorageError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return &inventory.StorageError{Op: "save", Err: err}
	}
	return nil
}
