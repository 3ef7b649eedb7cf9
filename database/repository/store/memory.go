package store

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryCollection is an in-process Collection, used for local development
// and as the record store in tests.
type MemoryCollection struct {
	name string
	mu   sync.RWMutex
	docs map[string]map[string]interface{}
}

// NewMemoryCollection creates an empty in-memory collection.
func NewMemoryCollection(name string) *MemoryCollection {
	return &MemoryCollection{name: name, docs: make(map[string]map[string]interface{})}
}

func (c *MemoryCollection) Name() string { return c.name }

func (c *MemoryCollection) List(ctx context.Context, filters ...Filter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, transportErr("list", c.name, "", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		fields := c.docs[id]
		if !matches(fields, filters) {
			continue
		}
		out = append(out, Document{ID: id, Fields: dropNil(fields)})
	}
	return out, nil
}

func (c *MemoryCollection) Get(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, transportErr("get", c.name, id, err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	fields, ok := c.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: dropNil(fields)}, nil
}

func (c *MemoryCollection) Create(ctx context.Context, id string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transportErr("create", c.name, id, err)
	}
	if id == "" {
		id = uuid.New().String()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = dropNil(fields)
	return id, nil
}

func (c *MemoryCollection) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return transportErr("update", c.name, id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if v == nil {
			delete(existing, k)
			continue
		}
		existing[k] = v
	}
	return nil
}

func (c *MemoryCollection) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return transportErr("delete", c.name, id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	return nil
}

// Len returns the number of stored documents.
func (c *MemoryCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func matches(fields map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || !reflect.DeepEqual(v, f.Value) {
			return false
		}
	}
	return true
}
