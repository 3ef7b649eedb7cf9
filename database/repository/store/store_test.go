package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryCollection_CRUD(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection("reviews")

	id, err := c.Create(ctx, "", map[string]interface{}{"merchantId": "m1", "rating": int64(4)})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = c.Create(ctx, "r2", map[string]interface{}{"merchantId": "m2", "rating": int64(5)})
	require.NoError(t, err)

	docs, err := c.List(ctx, Where("merchantId", "m1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, c.Update(ctx, "r2", map[string]interface{}{"rating": int64(3), "merchantId": nil}))
	doc, err := c.Get(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, int64(3), doc.Fields["rating"])
	_, present := doc.Fields["merchantId"]
	assert.False(t, present)

	assert.ErrorIs(t, c.Update(ctx, "missing", map[string]interface{}{"a": 1}), ErrNotFound)
	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Delete(ctx, "r2"))
	assert.ErrorIs(t, c.Delete(ctx, "r2"), ErrNotFound)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCollection_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection("merchants")
	_, err := c.Create(ctx, "m1", map[string]interface{}{"name": "Bar"})
	require.NoError(t, err)

	doc, err := c.Get(ctx, "m1")
	require.NoError(t, err)
	doc.Fields["name"] = "Changed"

	again, err := c.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Bar", again.Fields["name"])
}

func TestMemoryCollection_CancelledContextIsTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryCollection("merchants").List(ctx)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDocumentFromBSON_NormalizesDriverTypes(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	raw := bson.M{
		"_id":            "m1",
		"name":           "Guarita Bar",
		"carouselImages": bson.A{"gs://b/a.jpg", "gs://b/b.jpg"},
		"createdAt":      primitive.NewDateTimeFromTime(when),
		"likesCount":     int32(380),
		"openingHours":   bson.M{"monday": bson.D{{Key: "open", Value: "18:00"}}},
	}

	doc := documentFromBSON(raw)
	assert.Equal(t, "m1", doc.ID)
	_, hasID := doc.Fields["_id"]
	assert.False(t, hasID)
	assert.Equal(t, []interface{}{"gs://b/a.jpg", "gs://b/b.jpg"}, doc.Fields["carouselImages"])
	assert.Equal(t, when, doc.Fields["createdAt"])
	assert.Equal(t, int64(380), doc.Fields["likesCount"])
	assert.Equal(t, map[string]interface{}{"monday": map[string]interface{}{"open": "18:00"}}, doc.Fields["openingHours"])
}
