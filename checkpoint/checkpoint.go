// Copyright 2025 Openshelf Labs
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


// Package checkpoint persists per-shard resume cursors in a local BadgerDB.
//
// A cursor records how far a shard's input range has been committed to the
// store (byte offset of the next unread line plus running counts). Cursors
// survive process restarts, so a retried or relaunched shard re-streams
// from its last committed batch boundary instead of from the shard start -
// without re-embedding work the store already holds. Cursors are scoped to
// a run key derived from the input file's identity, so a different input
// never resumes from a stale cursor.
package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/openshelf/reviewloader/core"
)

// Cursor is a shard's resume position.
type Cursor struct {
	ShardID   int
	Offset    int64 // byte offset of the next unread line
	Processed int64 // records committed so far
	Skipped   int64 // records skipped so far
	UpdatedAt time.Time
}

// Store persists cursors in BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens (or creates) a cursor store at the given directory.
func Open(filePath string) (*Store, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", filePath)
	}

	opts := badger.DefaultOptions(filePath)
	return open(opts)
}

// OpenInMemory opens a cursor store that lives only for this process.
// Useful for tests and runs that don't need restart resume.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	logger := slog.Default().With("component", "checkpoint")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a cursor for (runKey, cursor.ShardID), stamping UpdatedAt.
func (s *Store) Save(ctx context.Context, runKey string, cursor *Cursor) error {
	cursor.UpdatedAt = time.Now().UTC()
	value := marshalCursor(cursor)
	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makeCursorKey(runKey, cursor.ShardID), value)
	})
}

// Load retrieves the cursor for (runKey, shardID).
// Returns nil, nil if no cursor exists.
func (s *Store) Load(ctx context.Context, runKey string, shardID int) (*Cursor, error) {
	var cursor *Cursor
	err := s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCursorKey(runKey, shardID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			cursor, unmarshalErr = unmarshalCursor(val)
			return unmarshalErr
		})
	})
	return cursor, err
}

// ClearRun removes every cursor recorded under the run key.
// Called after a fully successful run so nothing resumes from it.
func (s *Store) ClearRun(ctx context.Context, runKey string) error {
	prefix := makeRunPrefix(runKey)
	return s.db.Update(func(tx *badger.Txn) error {
		it := tx.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunKey derives the cursor scope for an input file from its path and size.
// A changed or replaced input produces a different key.
func RunKey(path string, size int64) string {
	fp := core.FingerprintOf(path, strconv.FormatInt(size, 10))
	return strconv.FormatUint(uint64(fp), 16)
}
