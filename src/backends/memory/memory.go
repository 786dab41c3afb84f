// Package memory holds the in-process backend used by tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spf13/cast"

	"github.com/toolwire-protocol/go-toolwire/src/backends"
)

// Store implements both backend contracts in memory. Safe for concurrent
// use.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	tables  map[string][]map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		buckets: make(map[string]map[string][]byte),
		tables:  make(map[string][]map[string]any),
	}
}

// CreateBucket makes a bucket available. Creating it twice is a no-op.
func (s *Store) CreateBucket(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		s.buckets[name] = make(map[string][]byte)
	}
}

// CreateTable makes a table available. Creating it twice is a no-op.
func (s *Store) CreateTable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		s.tables[name] = nil
	}
}

func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, &backends.BucketNotFoundError{Bucket: bucket}
	}
	body, ok := objects[key]
	if !ok {
		return nil, &backends.ObjectNotFoundError{Bucket: bucket, Key: key}
	}
	out := make([]byte, len(body))
	copy(out, body)
	return out, nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return &backends.BucketNotFoundError{Bucket: bucket}
	}
	stored := make([]byte, len(body))
	copy(stored, body)
	objects[key] = stored
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) GetItem(ctx context.Context, table, keyName, keyValue string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.tables[table]
	if !ok {
		return nil, &backends.TableNotFoundError{Table: table}
	}
	// Latest write wins when the same key value was stored twice.
	for i := len(items) - 1; i >= 0; i-- {
		if cast.ToString(items[i][keyName]) == keyValue {
			return cloneItem(items[i]), nil
		}
	}
	return nil, nil
}

func (s *Store) PutItem(ctx context.Context, table string, item map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; !ok {
		return &backends.TableNotFoundError{Table: table}
	}
	s.tables[table] = append(s.tables[table], cloneItem(item))
	return nil
}

func cloneItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
