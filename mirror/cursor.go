// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mirror

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/gohiero/cbor"
	"github.com/dgraph-io/badger/v3"
)

// CursorStore saves subscription positions so that a subscription can resume after a restart
type CursorStore interface {
	// Load returns the saved cursor for key. The second return value is false if there is none
	Load(key string) (Cursor, bool, error)
	Save(key string, cursor Cursor) error
}

// MemoryCursorStore keeps cursors in memory
type MemoryCursorStore struct {
	mutex   sync.Mutex
	cursors map[string]Cursor
}

func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{
		cursors: make(map[string]Cursor),
	}
}

func (s *MemoryCursorStore) Load(key string) (Cursor, bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	cursor, ok := s.cursors[key]
	return cursor, ok, nil
}

func (s *MemoryCursorStore) Save(key string, cursor Cursor) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cursors[key] = cursor
	return nil
}

const badgerKeyPrefix = "mirror/cursor/"

// BadgerCursorStore keeps cursors in a badger database
type BadgerCursorStore struct {
	db     *badger.DB
	ownsDb bool
}

// NewBadgerCursorStore opens (or creates) a badger database at path. An empty path keeps the
// database in memory
func NewBadgerCursorStore(path string) (*BadgerCursorStore, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor database: %w", err)
	}
	return &BadgerCursorStore{db: db, ownsDb: true}, nil
}

// NewBadgerCursorStoreFromDB uses an already open database. Close does not close it
func NewBadgerCursorStoreFromDB(db *badger.DB) *BadgerCursorStore {
	return &BadgerCursorStore{db: db}
}

func (s *BadgerCursorStore) Load(key string) (Cursor, bool, error) {
	var cursor Cursor
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			_, err := cbor.Decode(val, &cursor)
			return err
		})
	})
	if err != nil {
		return Cursor{}, false, fmt.Errorf("failed to load cursor %q: %w", key, err)
	}
	return cursor, found, nil
}

func (s *BadgerCursorStore) Save(key string, cursor Cursor) error {
	data, err := cbor.Encode(&cursor)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save cursor %q: %w", key, err)
	}
	return nil
}

func (s *BadgerCursorStore) Close() error {
	if !s.ownsDb {
		return nil
	}
	return s.db.Close()
}
