// Package store provides Badger DB-backed storage for favorite folders.
package store

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types
const (
	prefixFavorite = "f:" // f:<rootId>:<path>
	prefixMeta     = "m:" // Metadata (schema)
)

// ErrNotFound is returned when a favorite does not exist.
var ErrNotFound = errors.New("favorite not found")

// Favorite is a directory bookmarked by a client.
type Favorite struct {
	RootID  string    `json:"rootId"`
	Path    string    `json:"path"`
	AddedAt time.Time `json:"addedAt"`
}

// Key returns the identity of the favorite, "<rootId>:<path>".
func (f Favorite) Key() string {
	return f.RootID + ":" + f.Path
}

func favoriteKey(rootID, path string) []byte {
	return []byte(prefixFavorite + rootID + ":" + path)
}

// Store is the favorites storage backed by Badger DB.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if s.GetSchema() == nil && !s.hasAnyFavorites() {
		if err := s.SetSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()}); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores f unless a favorite with the same key exists. It reports whether
// the favorite was added.
func (s *Store) Add(f Favorite) (bool, error) {
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now()
	}
	data, err := json.Marshal(f)
	if err != nil {
		return false, err
	}

	added := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := favoriteKey(f.RootID, f.Path)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		added = true
		return txn.Set(key, data)
	})
	return added, err
}

// Get returns the favorite stored under rootID and path.
func (s *Store) Get(rootID, path string) (*Favorite, error) {
	var fav *Favorite
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(favoriteKey(rootID, path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			fav = &Favorite{}
			return json.Unmarshal(val, fav)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return fav, err
}

// Has reports whether a favorite exists for rootID and path.
func (s *Store) Has(rootID, path string) bool {
	_, err := s.Get(rootID, path)
	return err == nil
}

// Remove deletes a favorite. Removing a missing favorite is not an error.
func (s *Store) Remove(rootID, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(favoriteKey(rootID, path))
	})
}

// List returns all favorites in the order they were added.
func (s *Store) List() ([]Favorite, error) {
	var favs []Favorite

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixFavorite)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var f Favorite
				if err := json.Unmarshal(val, &f); err != nil {
					return nil //nolint:nilerr // skip malformed entries
				}
				favs = append(favs, f)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(favs, func(i, j int) bool {
		if !favs[i].AddedAt.Equal(favs[j].AddedAt) {
			return favs[i].AddedAt.Before(favs[j].AddedAt)
		}
		return favs[i].Key() < favs[j].Key()
	})
	return favs, nil
}

// RemoveUnder deletes the favorite at path and every favorite below it in the
// same root. An empty path removes every favorite of the root. It returns the
// removed favorites.
func (s *Store) RemoveUnder(rootID, path string) ([]Favorite, error) {
	var removed []Favorite

	err := s.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(prefixFavorite + rootID + ":")
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			favPath := strings.TrimPrefix(string(item.Key()), string(prefix))
			if !IsPathUnder(favPath, path) {
				continue
			}
			var f Favorite
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			}); err != nil {
				f = Favorite{RootID: rootID, Path: favPath}
			}
			removed = append(removed, f)
			keys = append(keys, item.KeyCopy(nil))
		}

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	return removed, err
}

// Count returns the number of stored favorites.
func (s *Store) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixFavorite)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// IsPathUnder reports whether the slash-separated relative path is parent or
// lies below it. The empty parent is the root and contains everything.
func IsPathUnder(path, parent string) bool {
	if parent == "" || path == parent {
		return true
	}
	return strings.HasPrefix(path, parent+"/")
}
