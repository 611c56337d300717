// Package docstore provides a collection-oriented document store backed by
// BoltDB (bbolt). Each collection is a bucket holding JSON documents keyed by
// id. Writes support merge semantics, dotted field paths and sentinel values
// (server timestamps, field deletion, numeric increment, array union).
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"vigil/internal/tracing"

	"github.com/segmentio/ksuid"
	bolt "go.etcd.io/bbolt"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Collection names form the externally-defined schema shared with the rest of
// the platform. Buckets for these are created at Open; writes to other
// collections create their bucket on demand.
const (
	CollectionUsers              = "users"
	CollectionUserReputation     = "user_reputation"
	CollectionAdminActions       = "admin_actions"
	CollectionAdminNotes         = "admin_notes"
	CollectionSuspiciousAccounts = "suspicious_accounts"
	CollectionReports            = "report"
)

// Store wraps a BoltDB database as a document store.
type Store struct {
	db *bolt.DB
}

// Options configures the document store.
type Options struct {
	// Path to the database file. Parent directories will be created if needed.
	Path string

	// Timeout for obtaining a file lock on the database.
	// If zero, a default of 5 seconds is used.
	Timeout time.Duration

	// FileMode for creating the database file.
	// If zero, 0600 is used.
	FileMode os.FileMode
}

// Open creates or opens the document store at the specified path and creates
// buckets for the known collections.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = "vigil.db"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0600
	}

	dir := filepath.Dir(opts.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bolt.Open(opts.Path, opts.FileMode, &bolt.Options{
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		collections := []string{
			CollectionUsers,
			CollectionUserReputation,
			CollectionAdminActions,
			CollectionAdminNotes,
			CollectionSuspiciousAccounts,
			CollectionReports,
		}
		for _, collection := range collections {
			if _, err := tx.CreateBucketIfNotExists([]byte(collection)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", collection, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get retrieves a document by id. Returns ErrNotFound if the document or its
// collection does not exist.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	_, span := tracing.DocstoreSpan(ctx, "get", collection, id)
	defer span.End()

	var doc Document
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return ErrNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &doc)
	})
	tracing.EndWithError(span, err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Set writes fields to a document. With merge true the fields are merged into
// the existing document (dotted keys address nested fields); with merge false
// the document is replaced. Sentinel values are resolved inside the write
// transaction.
func (s *Store) Set(ctx context.Context, collection, id string, fields Document, merge bool) error {
	_, span := tracing.DocstoreSpan(ctx, "set", collection, id)
	defer span.End()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", collection, err)
		}

		doc := make(map[string]any)
		if merge {
			if data := bucket.Get([]byte(id)); data != nil {
				if err := json.Unmarshal(data, &doc); err != nil {
					return fmt.Errorf("failed to unmarshal document %s/%s: %w", collection, id, err)
				}
			}
		}

		applyFields(doc, fields, time.Now().UTC())

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		return bucket.Put([]byte(id), data)
	})
	tracing.EndWithError(span, err)
	return err
}

// Add creates a document with a generated id and returns the id.
func (s *Store) Add(ctx context.Context, collection string, fields Document) (string, error) {
	id := ksuid.New().String()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	_, span := tracing.DocstoreSpan(ctx, "count", collection, "")
	defer span.End()

	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	tracing.EndWithError(span, err)
	return count, err
}
