package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is an untyped record as held by the remote store.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// Filter restricts List to documents whose Field equals Value.
type Filter struct {
	Field string
	Value interface{}
}

// Where builds an equality filter.
func Where(field string, value interface{}) Filter {
	return Filter{Field: field, Value: value}
}

// Collection is the record-store boundary. Implementations own transport,
// auth and persistence; callers own decoding.
type Collection interface {
	// Name returns the collection name, used in diagnostics.
	Name() string
	// List returns every document matching all filters. No filters lists the whole collection.
	List(ctx context.Context, filters ...Filter) ([]Document, error)
	// Get returns one document or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)
	// Create inserts a document and returns its id. An empty id is generated.
	Create(ctx context.Context, id string, fields map[string]interface{}) (string, error)
	// Update merges fields into an existing document, or returns ErrNotFound.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// Delete removes a document. Deleting a missing document returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// TransportError wraps a failure to reach or use the remote store.
type TransportError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *TransportError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func transportErr(op, collection, id string, err error) error {
	return &TransportError{Op: op, Collection: collection, ID: id, Err: err}
}
