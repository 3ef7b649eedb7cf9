package review

import (
	"context"
	"testing"
	"time"

	"venuedir/database/repository/store"
	"venuedir/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	alice = models.Session{UserID: "alice", UserName: "Alice", UserAvatar: "https://cdn/alice.png"}
	bob   = models.Session{UserID: "bob", UserName: "Bob"}
)

// newTestGateway returns a gateway whose clock advances one minute per call.
func newTestGateway(t *testing.T, session models.Session) (*Gateway, *store.MemoryCollection, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	coll := store.NewMemoryCollection("reviews")
	g, err := NewGateway(coll, session, time.Second, zap.New(core))
	require.NoError(t, err)

	clock := time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)
	g.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return g, coll, logs
}

func strPtr(s string) *string { return &s }

func TestAdd_FillsAuthorFromSession(t *testing.T) {
	g, coll, _ := newTestGateway(t, alice)
	ctx := context.Background()

	r, err := g.Add(ctx, models.Review{MerchantID: "m1", UserID: "mallory", Rating: 5, Comment: strPtr("Ótimo chope")})
	require.NoError(t, err)
	assert.Equal(t, "alice", r.UserID)
	assert.Equal(t, "Alice", r.UserName)
	assert.NotEmpty(t, r.ID)

	doc, err := coll.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.Fields["userId"])
	assert.Equal(t, "https://cdn/alice.png", doc.Fields["userAvatarUrl"])
	assert.Equal(t, "Ótimo chope", doc.Fields["comment"])
}

func TestAdd_Validation(t *testing.T) {
	g, _, _ := newTestGateway(t, alice)
	ctx := context.Background()

	_, err := g.Add(ctx, models.Review{MerchantID: "m1", Rating: 0})
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = g.Add(ctx, models.Review{MerchantID: "m1", Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = g.Add(ctx, models.Review{Rating: 3})
	assert.ErrorIs(t, err, ErrMissingMerchant)

	system := g.WithSession(models.Session{})
	_, err = system.Add(ctx, models.Review{MerchantID: "m1", Rating: 3})
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestUpdate_ReplacesAndBumpsUpdatedAt(t *testing.T) {
	g, coll, _ := newTestGateway(t, alice)
	ctx := context.Background()

	added, err := g.Add(ctx, models.Review{MerchantID: "m1", Rating: 2, Comment: strPtr("Fila longa")})
	require.NoError(t, err)

	updated, err := g.Update(ctx, models.Review{ID: added.ID, MerchantID: "other", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)
	assert.Nil(t, updated.Comment)
	assert.Equal(t, "m1", updated.MerchantID, "merchant is immutable")
	assert.Equal(t, added.CreatedAt, updated.CreatedAt)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.After(*added.UpdatedAt))

	doc, err := coll.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.NotContains(t, doc.Fields, "comment")

	_, err = g.Update(ctx, models.Review{ID: "missing", Rating: 3})
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestOwnership(t *testing.T) {
	g, _, _ := newTestGateway(t, alice)
	ctx := context.Background()

	added, err := g.Add(ctx, models.Review{MerchantID: "m1", Rating: 5})
	require.NoError(t, err)

	asBob := g.WithSession(bob)
	_, err = asBob.Update(ctx, models.Review{ID: added.ID, Rating: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = asBob.Delete(ctx, added.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	system := g.WithSession(models.Session{})
	deleted, err := system.Delete(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "m1", deleted.MerchantID)
}

func TestDelete_MissingIsNoop(t *testing.T) {
	g, _, _ := newTestGateway(t, alice)
	deleted, err := g.Delete(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, deleted)
}

func TestList_NewestFirstAndByUser(t *testing.T) {
	g, _, _ := newTestGateway(t, alice)
	ctx := context.Background()

	first, err := g.Add(ctx, models.Review{MerchantID: "m1", Rating: 5})
	require.NoError(t, err)
	second, err := g.WithSession(bob).Add(ctx, models.Review{MerchantID: "m1", Rating: 3})
	require.NoError(t, err)
	_, err = g.Add(ctx, models.Review{MerchantID: "m2", Rating: 4})
	require.NoError(t, err)

	list, err := g.List(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	mine, err := g.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, "alice", r.UserID)
	}
}

func TestFindOne(t *testing.T) {
	g, coll, logs := newTestGateway(t, alice)
	ctx := context.Background()

	none, err := g.FindOne(ctx, "alice", "m1")
	require.NoError(t, err)
	assert.Nil(t, none)

	added, err := g.Add(ctx, models.Review{MerchantID: "m1", Rating: 4})
	require.NoError(t, err)

	found, err := g.FindOne(ctx, "alice", "m1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, added.ID, found.ID)

	// A duplicate written by another client outside the gateway.
	_, err = coll.Create(ctx, "dup", map[string]interface{}{
		"merchantId": "m1", "userId": "alice", "rating": int64(2),
		"createdAt": time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	found, err = g.FindOne(ctx, "alice", "m1")
	require.NoError(t, err)
	assert.Equal(t, "dup", found.ID)
	assert.Equal(t, 1, logs.FilterMessage("Duplicate reviews for user and merchant").Len())
}

func TestList_SkipsUndecodableRecords(t *testing.T) {
	g, coll, logs := newTestGateway(t, alice)
	ctx := context.Background()

	_, err := coll.Create(ctx, "ok", map[string]interface{}{"merchantId": "m1", "userId": "u", "rating": int64(5)})
	require.NoError(t, err)
	_, err = coll.Create(ctx, "bad-rating", map[string]interface{}{"merchantId": "m1", "userId": "u", "rating": int64(9)})
	require.NoError(t, err)
	_, err = coll.Create(ctx, "no-user", map[string]interface{}{"merchantId": "m1", "rating": int64(3)})
	require.NoError(t, err)

	list, err := g.List(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ok", list[0].ID)
	assert.Equal(t, 2, logs.FilterMessage("Skipping undecodable review").Len())
}
