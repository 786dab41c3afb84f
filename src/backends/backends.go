// Package backends declares the external collaborators that storage tool
// handlers run against. The protocol core never touches these directly; the
// dispatcher sees only handlers.
package backends

import (
	"context"
	"fmt"
)

// ObjectStore is a bucketed blob store.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, body []byte) error
}

// KVTable is a collection of named tables holding attribute-map items keyed
// by a caller-chosen attribute. GetItem returns (nil, nil) when the table
// exists but holds no matching item.
type KVTable interface {
	ListTables(ctx context.Context) ([]string, error)
	GetItem(ctx context.Context, table, keyName, keyValue string) (map[string]any, error)
	PutItem(ctx context.Context, table string, item map[string]any) error
}

// BucketNotFoundError reports an operation against a missing bucket.
type BucketNotFoundError struct {
	Bucket string
}

func (e *BucketNotFoundError) Error() string {
	return fmt.Sprintf("bucket %q does not exist", e.Bucket)
}

// ObjectNotFoundError reports a read of a missing object key.
type ObjectNotFoundError struct {
	Bucket string
	Key    string
}

func (e *ObjectNotFoundError) Error() string {
	return fmt.Sprintf("object %q does not exist in bucket %q", e.Key, e.Bucket)
}

// TableNotFoundError reports an operation against a missing table.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q does not exist", e.Table)
}
