package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoCollection implements Collection on a MongoDB collection. Documents
// are keyed by a string "_id".
type MongoCollection struct {
	coll *mongo.Collection
}

// NewMongoCollection wraps the named collection of db.
func NewMongoCollection(db *mongo.Database, name string) *MongoCollection {
	return &MongoCollection{coll: db.Collection(name)}
}

func (c *MongoCollection) Name() string { return c.coll.Name() }

func (c *MongoCollection) List(ctx context.Context, filters ...Filter) ([]Document, error) {
	filter := bson.M{}
	for _, f := range filters {
		filter[f.Field] = f.Value
	}
	cursor, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, transportErr("list", c.Name(), "", err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, transportErr("list", c.Name(), "", err)
	}
	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, documentFromBSON(m))
	}
	return docs, nil
}

func (c *MongoCollection) Get(ctx context.Context, id string) (Document, error) {
	var raw bson.M
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Document{}, ErrNotFound
		}
		return Document{}, transportErr("get", c.Name(), id, err)
	}
	return documentFromBSON(raw), nil
}

func (c *MongoCollection) Create(ctx context.Context, id string, fields map[string]interface{}) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	doc := bson.M{"_id": id}
	for k, v := range fields {
		if v != nil {
			doc[k] = v
		}
	}
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return "", transportErr("create", c.Name(), id, err)
	}
	return id, nil
}

func (c *MongoCollection) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{}
	unset := bson.M{}
	for k, v := range fields {
		if v == nil {
			unset[k] = ""
			continue
		}
		set[k] = v
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		_, err := c.Get(ctx, id)
		return err
	}

	result, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return transportErr("update", c.Name(), id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoCollection) Delete(ctx context.Context, id string) error {
	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return transportErr("delete", c.Name(), id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func documentFromBSON(m bson.M) Document {
	var id string
	switch v := m["_id"].(type) {
	case string:
		id = v
	case primitive.ObjectID:
		id = v.Hex()
	}
	fields := make(map[string]interface{}, len(m))
	for k, v := range m {
		if k == "_id" {
			continue
		}
		fields[k] = normalizeBSON(v)
	}
	return Document{ID: id, Fields: fields}
}

// normalizeBSON converts driver-specific value types into the plain Go types
// the decoders expect.
func normalizeBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = normalizeBSON(inner)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = normalizeBSON(inner)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	default:
		return v
	}
}
