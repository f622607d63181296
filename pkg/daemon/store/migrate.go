package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// legacyFile is the JSON favorites file written before favorites moved to Badger.
type legacyFile struct {
	Items []struct {
		RootID string `json:"rootId"`
		Path   string `json:"path"`
	} `json:"items"`
}

// ImportLegacy adds the favorites of a legacy JSON favorites file. A missing
// file imports nothing. Entries already present are kept. It returns the
// number of favorites added.
func (s *Store) ImportLegacy(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var legacy legacyFile
	if err := json.Unmarshal(data, &legacy); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	now := time.Now()
	added := 0
	for i, item := range legacy.Items {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		if item.RootID == "" {
			continue
		}
		// Preserve file order through distinct timestamps.
		ok, err := s.Add(Favorite{
			RootID:  item.RootID,
			Path:    item.Path,
			AddedAt: now.Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// Migrate brings the store up to CurrentSchemaVersion. When legacyPath is set,
// favorites from that JSON file are imported and the file is renamed with a
// .migrated suffix. It returns the number of favorites imported.
func (s *Store) Migrate(ctx context.Context, legacyPath string) (int, error) {
	imported := 0
	if legacyPath != "" {
		n, err := s.ImportLegacy(ctx, legacyPath)
		if err != nil {
			return n, err
		}
		imported = n
		if n > 0 {
			if err := os.Rename(legacyPath, legacyPath+".migrated"); err != nil {
				return n, err
			}
		}
	}

	if schema := s.GetSchema(); schema != nil && schema.Version >= CurrentSchemaVersion {
		return imported, nil
	}
	return imported, s.SetSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()})
}
