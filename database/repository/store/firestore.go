package store

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreCollection implements Collection on a Cloud Firestore collection.
type FirestoreCollection struct {
	client *firestore.Client
	name   string
}

// NewFirestoreCollection wraps the named collection of client.
func NewFirestoreCollection(client *firestore.Client, name string) *FirestoreCollection {
	return &FirestoreCollection{client: client, name: name}
}

func (c *FirestoreCollection) Name() string { return c.name }

func (c *FirestoreCollection) List(ctx context.Context, filters ...Filter) ([]Document, error) {
	q := c.client.Collection(c.name).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, transportErr("list", c.name, "", err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return docs, nil
}

func (c *FirestoreCollection) Get(ctx context.Context, id string) (Document, error) {
	snap, err := c.client.Collection(c.name).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, transportErr("get", c.name, id, err)
	}
	return Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (c *FirestoreCollection) Create(ctx context.Context, id string, fields map[string]interface{}) (string, error) {
	coll := c.client.Collection(c.name)
	ref := coll.NewDoc()
	if id != "" {
		ref = coll.Doc(id)
	}
	if _, err := ref.Create(ctx, dropNil(fields)); err != nil {
		return "", transportErr("create", c.name, ref.ID, err)
	}
	return ref.ID, nil
}

func (c *FirestoreCollection) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		v := fields[k]
		if v == nil {
			v = firestore.Delete
		}
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{k}, Value: v})
	}
	if _, err := c.client.Collection(c.name).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return transportErr("update", c.name, id, err)
	}
	return nil
}

func (c *FirestoreCollection) Delete(ctx context.Context, id string) error {
	if _, err := c.client.Collection(c.name).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return transportErr("delete", c.name, id, err)
	}
	return nil
}

func dropNil(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
