package docstore

import (
	"context"
	"encoding/json"
	"sort"

	"vigil/internal/tracing"

	bolt "go.etcd.io/bbolt"
)

// Result is a matched document together with its id.
type Result struct {
	ID   string
	Data Document
}

// Query is a bounded-scan query over one collection. There are no secondary
// indexes: the scan visits documents in key order, applies the filters, then
// sorts and truncates. ScanCap bounds how many documents are examined.
type Query struct {
	store      *Store
	collection string
	filters    []filter
	orderBy    string
	descending bool
	limit      int
	scanCap    int
}

type filter struct {
	field string
	value any
}

// Query starts a query against a collection.
func (s *Store) Query(collection string) *Query {
	return &Query{store: s, collection: collection}
}

// Where adds an equality filter on a (possibly dotted) field.
func (q *Query) Where(field string, value any) *Query {
	q.filters = append(q.filters, filter{field: field, value: value})
	return q
}

// OrderByDesc sorts results by a field, newest/largest first.
func (q *Query) OrderByDesc(field string) *Query {
	q.orderBy = field
	q.descending = true
	return q
}

// Limit caps the number of returned results.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// ScanCap bounds the number of documents examined by the scan. Zero means
// unbounded.
func (q *Query) ScanCap(n int) *Query {
	q.scanCap = n
	return q
}

// Documents runs the query and returns matching documents.
func (q *Query) Documents(ctx context.Context) ([]Result, error) {
	_, span := tracing.DocstoreSpan(ctx, "query", q.collection, "")
	defer span.End()

	var results []Result
	err := q.store.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(q.collection))
		if bucket == nil {
			return nil
		}

		scanned := 0
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if q.scanCap > 0 && scanned >= q.scanCap {
				break
			}
			scanned++

			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				continue // skip malformed entries
			}
			if !q.matches(doc) {
				continue
			}
			results = append(results, Result{ID: string(k), Data: doc})
		}
		return nil
	})
	tracing.EndWithError(span, err)
	if err != nil {
		return nil, err
	}

	if q.orderBy != "" {
		sort.SliceStable(results, func(i, j int) bool {
			a, _ := getPath(results[i].Data, q.orderBy)
			b, _ := getPath(results[j].Data, q.orderBy)
			if q.descending {
				return lessValue(b, a)
			}
			return lessValue(a, b)
		})
	}

	if q.limit > 0 && len(results) > q.limit {
		results = results[:q.limit]
	}
	return results, nil
}

// Count runs the query and returns the number of matches.
func (q *Query) Count(ctx context.Context) (int, error) {
	results, err := q.Documents(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

func (q *Query) matches(doc Document) bool {
	for _, f := range q.filters {
		value, ok := getPath(doc, f.field)
		if !ok || !valueEqual(value, f.value) {
			return false
		}
	}
	return true
}

// lessValue orders JSON values: numbers numerically, everything else by
// string form. Timestamps stored as RFC 3339 strings sort correctly this way.
func lessValue(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat(a) < toFloat(b)
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}
