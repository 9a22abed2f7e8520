// Package cache provides a small persistent key/value cache backed by bbolt.
// It is used to remember per-paper lookup results (citation counts, resolved
// full text urls) across runs so that repeated searches do not re-query the
// upstream apis.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

type DataCache[T any] struct {
	db     *bbolt.DB
	bucket []byte
	logger *slog.Logger
}

// NewCache opens (or creates) the bbolt file at path and ensures the named
// bucket exists. Multiple caches may share one file as long as their bucket
// names differ.
func NewCache[T any](bucket, path string) (DataCache[T], error) {
	logger := slog.With("bucket", bucket)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 20 * time.Second})
	if err != nil {
		logger.Error("error opening cache db", "path", path, "error", err)
		return DataCache[T]{}, fmt.Errorf("error creating cache: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		logger.Error("error creating cache bucket", "error", err)
		return DataCache[T]{}, fmt.Errorf("error creating cache: %w", err)
	}

	logger.Info("cache initialized", "path", path)

	return DataCache[T]{db: db, bucket: []byte(bucket), logger: logger}, nil
}

func (cache *DataCache[T]) Close() error {
	return cache.db.Close()
}

// Lookup returns the cached entry for key, or nil on a miss. Storage errors
// are logged and reported as misses.
func (cache *DataCache[T]) Lookup(key string) *T {
	var entry *T
	err := cache.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(cache.bucket)

		data := bucket.Get([]byte(key))
		if data != nil {
			entry = new(T)
			if err := json.Unmarshal(data, entry); err != nil {
				return fmt.Errorf("error parsing cache data: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		cache.logger.Error("cache access failed", "key", key, "error", err)
		return nil // No error since the cache isn't critical
	}

	if entry != nil {
		cache.logger.Debug("found cached entry", "key", key)
	}

	return entry
}

// Update stores the entry under key. Failures are logged and swallowed; a
// missed write only costs a repeat lookup later.
func (cache *DataCache[T]) Update(key string, entry T) {
	data, err := json.Marshal(entry)
	if err != nil {
		cache.logger.Error("error updating cache: error serializing data", "key", key, "error", err)
		return
	}

	if err := cache.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cache.bucket).Put([]byte(key), data)
	}); err != nil {
		cache.logger.Error("cache update failed", "key", key, "error", err)
		return
	}

	cache.logger.Debug("updated cache", "key", key)
}
