// Package storagetools registers the storage tool set: list/get/put on an
// object store and list/query/put on a key-value table. Handlers format
// human-readable text and let backend failures surface as error results.
package storagetools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/toolwire-protocol/go-toolwire/src/backends"
	"github.com/toolwire-protocol/go-toolwire/src/json"
	"github.com/toolwire-protocol/go-toolwire/src/registry"
	"github.com/toolwire-protocol/go-toolwire/src/schema"
	"github.com/toolwire-protocol/go-toolwire/src/tools"
)

type getObjectArgs struct {
	Bucket string `json:"bucket" jsonschema:"required,description=The name of the bucket"`
	Key    string `json:"key" jsonschema:"required,description=The key (path) of the object in the bucket"`
}

type putObjectArgs struct {
	Bucket  string `json:"bucket" jsonschema:"required,description=The name of the bucket"`
	Key     string `json:"key" jsonschema:"required,description=The key (path) where the object will be stored"`
	Content string `json:"content" jsonschema:"required,description=The content to upload"`
}

type queryTableArgs struct {
	TableName string `json:"table_name" jsonschema:"required,description=The name of the table"`
	Key       string `json:"key" jsonschema:"required,description=The partition key name"`
	Value     string `json:"value" jsonschema:"required,description=The partition key value to query"`
}

type putItemArgs struct {
	TableName string `json:"table_name" jsonschema:"required,description=The name of the table"`
	ItemJSON  string `json:"item_json" jsonschema:"required,description=JSON string representing the item to put"`
}

// RegisterObjectStore adds the object-store tools to reg.
func RegisterObjectStore(reg *registry.Registry, store backends.ObjectStore) error {
	toolSet := []tools.Tool{
		{
			Name:        "list_buckets",
			Description: "List all buckets in the object store.",
			Inputs:      tools.ObjectSchema(),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				buckets, err := store.ListBuckets(ctx)
				if err != nil {
					return "", fmt.Errorf("error listing buckets: %w", err)
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Buckets (%d total):", len(buckets))
				for _, name := range buckets {
					fmt.Fprintf(&b, "\n  - %s", name)
				}
				return b.String(), nil
			},
		},
		{
			Name:        "get_object",
			Description: "Get an object from a bucket.\n\nReturns the content of the object as a string.",
			Inputs:      schema.MustFor[getObjectArgs](),
			Handler: func(ctx context.Context, raw map[string]any) (string, error) {
				var args getObjectArgs
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				body, err := store.GetObject(ctx, args.Bucket, args.Key)
				if err != nil {
					return "", fmt.Errorf("error getting object: %w", err)
				}
				return string(body), nil
			},
		},
		{
			Name:        "put_object",
			Description: "Upload content to a bucket.",
			Inputs:      schema.MustFor[putObjectArgs](),
			Handler: func(ctx context.Context, raw map[string]any) (string, error) {
				var args putObjectArgs
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				if err := store.PutObject(ctx, args.Bucket, args.Key, []byte(args.Content)); err != nil {
					return "", fmt.Errorf("error uploading object: %w", err)
				}
				return fmt.Sprintf("Successfully uploaded object to %s/%s", args.Bucket, args.Key), nil
			},
		},
	}
	return registerAll(reg, toolSet)
}

// RegisterKVTable adds the key-value table tools to reg.
func RegisterKVTable(reg *registry.Registry, table backends.KVTable) error {
	toolSet := []tools.Tool{
		{
			Name:        "list_tables",
			Description: "List all key-value tables.",
			Inputs:      tools.ObjectSchema(),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				names, err := table.ListTables(ctx)
				if err != nil {
					return "", fmt.Errorf("error listing tables: %w", err)
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Tables (%d total):", len(names))
				for _, name := range names {
					fmt.Fprintf(&b, "\n  - %s", name)
				}
				return b.String(), nil
			},
		},
		{
			Name:        "query_table",
			Description: "Query a table by partition key.\n\nReturns the item found, or a message when no item matches.",
			Inputs:      schema.MustFor[queryTableArgs](),
			Handler: func(ctx context.Context, raw map[string]any) (string, error) {
				var args queryTableArgs
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				item, err := table.GetItem(ctx, args.TableName, args.Key, args.Value)
				if err != nil {
					return "", fmt.Errorf("error querying table: %w", err)
				}
				if item == nil {
					return fmt.Sprintf("No item found with %s=%s", args.Key, args.Value), nil
				}
				encoded, err := json.Marshal(item)
				if err != nil {
					return "", fmt.Errorf("error encoding item: %w", err)
				}
				return fmt.Sprintf("Found item: %s", encoded), nil
			},
		},
		{
			Name:        "put_item",
			Description: "Put an item into a table.",
			Inputs:      schema.MustFor[putItemArgs](),
			Handler: func(ctx context.Context, raw map[string]any) (string, error) {
				var args putItemArgs
				if err := decodeArgs(raw, &args); err != nil {
					return "", err
				}
				var item map[string]any
				if err := json.Unmarshal([]byte(args.ItemJSON), &item); err != nil {
					return "", fmt.Errorf("error parsing item: %w", err)
				}
				if err := table.PutItem(ctx, args.TableName, item); err != nil {
					return "", fmt.Errorf("error putting item: %w", err)
				}
				return fmt.Sprintf("Successfully put item into %s", args.TableName), nil
			},
		},
	}
	return registerAll(reg, toolSet)
}

// RegisterAll wires both backend tool sets.
func RegisterAll(reg *registry.Registry, store backends.ObjectStore, table backends.KVTable) error {
	if err := RegisterObjectStore(reg, store); err != nil {
		return err
	}
	return RegisterKVTable(reg, table)
}

func registerAll(reg *registry.Registry, toolSet []tools.Tool) error {
	for _, t := range toolSet {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// decodeArgs maps validated wire arguments onto a typed struct. The schema
// has already vetted presence and types; this is shape plumbing only.
func decodeArgs(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "json",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("error decoding arguments: %w", err)
	}
	return nil
}
