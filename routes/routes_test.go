package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"venuedir/config"
	"venuedir/database/repository/store"
	"venuedir/handlers"
	"venuedir/models"
	"venuedir/services/aggregation"
	"venuedir/services/directory"
	"venuedir/services/favorites"
	"venuedir/services/media"
	"venuedir/services/review"
	"venuedir/services/search"
	"venuedir/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router    *gin.Engine
	merchants *store.MemoryCollection
	favorites *favorites.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.AppConfig.JWTSecret = "test-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	logger := zap.NewNop()
	mc := store.NewMemoryCollection("merchants")
	ctx := context.Background()
	for id, fields := range map[string]map[string]interface{}{
		"m1": {"name": "Boteco do João", "categories": []interface{}{"Boteco"}, "latitude": -23.55, "longitude": -46.63},
		"m2": {"name": "Izakaya Kenzo", "categories": []interface{}{"Izakaya"}, "latitude": -23.56, "longitude": -46.64},
		"m3": {"name": "Bar do Zé", "categories": []interface{}{"Drink bar"}, "latitude": -23.57, "longitude": -46.65},
	} {
		_, err := mc.Create(ctx, id, fields)
		require.NoError(t, err)
	}

	dir, err := directory.NewGateway(mc, nil, time.Second, logger)
	require.NoError(t, err)
	reviews, err := review.NewGateway(store.NewMemoryCollection("reviews"), models.Session{}, time.Second, logger)
	require.NoError(t, err)
	engine := aggregation.NewEngine(reviews, dir, logger)
	svc, err := aggregation.NewService(func(s models.Session) aggregation.ReviewGateway { return reviews.WithSession(s) }, engine, dir, nil, logger)
	require.NoError(t, err)

	favs := favorites.NewMemoryStore()
	registry := search.NewRegistry(func(s models.Session) *search.Controller {
		return search.NewController(dir, s, search.Config{Debounce: 10 * time.Millisecond}, logger, search.WithFavorites(favs))
	}, logger)

	hb := handlers.NewHandlerBundle(
		handlers.NewMerchantHandler(dir, nil),
		handlers.NewReviewHandler(reviews, svc),
		handlers.NewFavoritesHandler(favs, dir),
		handlers.NewSearchHandler(registry),
		handlers.NewMediaHandler(media.NewNormalizer(logger)),
	)
	r := gin.New()
	RegisterRoutes(r, hb)
	return &testServer{router: r, merchants: mc, favorites: favs}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := utils.GenerateToken(utils.SessionClaims{UserID: userID, UserName: "User " + userID}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestMerchantRoutes_SearchAndGet(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/merchants?q=BAR", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Merchants []models.Merchant `json:"merchants"`
		Count     int               `json:"count"`
	}
	decode(t, w, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "m3", list.Merchants[0].ID)

	w = s.do(t, http.MethodGet, "/api/merchants/near?lat=-23.5&lng=-46.6", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Equal(t, 3, list.Count)

	w = s.do(t, http.MethodGet, "/api/merchants/near?lat=abc&lng=1", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/merchants/m2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var m models.Merchant
	decode(t, w, &m)
	assert.Equal(t, "Izakaya Kenzo", m.Name)

	w = s.do(t, http.MethodGet, "/api/merchants/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMerchantRoutes_WritesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/merchants", "", map[string]string{"name": "Novo"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok := token(t, "u1")
	w = s.do(t, http.MethodPost, "/api/merchants", tok, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/merchants", tok, map[string]string{"name": "Novo Bar"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Merchant
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)

	w = s.do(t, http.MethodPatch, "/api/merchants/"+created.ID, tok, map[string]string{"description": "Chopp gelado"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated models.Merchant
	decode(t, w, &updated)
	assert.Equal(t, "Chopp gelado", updated.Description)
	assert.Equal(t, "Novo Bar", updated.Name)

	w = s.do(t, http.MethodDelete, "/api/merchants/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, "/api/merchants/"+created.ID, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type mutationBody struct {
	Review         models.Review    `json:"review"`
	Aggregate      models.Aggregate `json:"aggregate"`
	AggregateStale bool             `json:"aggregateStale"`
}

func TestReviewRoutes_SubmitUpdateDelete(t *testing.T) {
	s := newTestServer(t)
	ana, bia := token(t, "ana"), token(t, "bia")

	w := s.do(t, http.MethodPost, "/api/merchants/m1/reviews", ana, map[string]interface{}{"rating": 5, "comment": "Ótimo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res mutationBody
	decode(t, w, &res)
	assert.False(t, res.AggregateStale)
	assert.Equal(t, models.Aggregate{AverageRating: 5, ReviewCount: 1}, res.Aggregate)
	assert.Equal(t, "User ana", res.Review.UserName)

	w = s.do(t, http.MethodPost, "/api/merchants/m1/reviews", bia, map[string]interface{}{"rating": 2})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Equal(t, models.Aggregate{AverageRating: 3.5, ReviewCount: 2}, res.Aggregate)
	biaReview := res.Review.ID

	// Submitting again replaces the caller's review.
	w = s.do(t, http.MethodPost, "/api/merchants/m1/reviews", ana, map[string]interface{}{"rating": 4})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Equal(t, models.Aggregate{AverageRating: 3, ReviewCount: 2}, res.Aggregate)

	w = s.do(t, http.MethodPost, "/api/merchants/m1/reviews", ana, map[string]interface{}{"rating": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/merchants/ghost/reviews", ana, map[string]interface{}{"rating": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/reviews/"+biaReview, ana, map[string]interface{}{"rating": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/api/reviews/"+biaReview, bia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Equal(t, models.Aggregate{AverageRating: 4, ReviewCount: 1}, res.Aggregate)
	w = s.do(t, http.MethodDelete, "/api/reviews/"+biaReview, bia, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/merchants/m1/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)

	w = s.do(t, http.MethodGet, "/api/users/me/reviews", bia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Equal(t, 0, list.Count)

	w = s.do(t, http.MethodGet, "/api/merchants/m1", "", nil)
	var m models.Merchant
	decode(t, w, &m)
	assert.Equal(t, 4.0, m.AverageRating)
	assert.Equal(t, 1, m.ReviewCount)
}

func TestReviewRoutes_RefreshAggregate(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, "ana")
	require.NoError(t, s.merchants.Update(context.Background(), "m2", map[string]interface{}{"averageRating": 9.9, "reviewCount": 7}))

	w := s.do(t, http.MethodPost, "/api/merchants/m2/aggregate", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var agg models.Aggregate
	decode(t, w, &agg)
	assert.Equal(t, models.Aggregate{}, agg)
}

func TestFavoriteRoutes(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, "ana")

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, "/api/users/me/favorites/m2", tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/users/me/favorites/ghost", tok, nil).Code)
	// A favorite whose merchant disappeared is dropped from the listing.
	require.NoError(t, s.favorites.Add(context.Background(), "ana", "gone"))

	w := s.do(t, http.MethodGet, "/api/users/me/favorites", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Merchants []models.Merchant `json:"merchants"`
	}
	decode(t, w, &list)
	require.Len(t, list.Merchants, 1)
	assert.Equal(t, "m2", list.Merchants[0].ID)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/users/me/favorites/m2", tok, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/users/me/favorites", "", nil).Code)
}

type openBody struct {
	ID    string       `json:"id"`
	Token string       `json:"token"`
	State search.State `json:"state"`
}

func TestSearchRoutes_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, "ana")
	require.NoError(t, s.favorites.Add(context.Background(), "ana", "m1"))

	w := s.do(t, http.MethodPost, "/api/search/sessions", tok, map[string]string{"scope": "favorites"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var opened openBody
	decode(t, w, &opened)
	require.NotEmpty(t, opened.ID)
	assert.Empty(t, opened.Token)
	require.Len(t, opened.State.Results, 1)
	assert.Equal(t, "m1", opened.State.Results[0].ID)

	path := "/api/search/sessions/" + opened.ID
	// Sessions are owned by their creator.
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, "", nil).Code)

	w = s.do(t, http.MethodPut, path+"/scope", tok, map[string]string{"scope": "izakayas"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		var st search.State
		w := s.do(t, http.MethodGet, path, tok, nil)
		decode(t, w, &st)
		return st.Scope == search.ScopeIzakayas && len(st.Results) == 1 && st.Results[0].ID == "m2"
	}, time.Second, 10*time.Millisecond)

	w = s.do(t, http.MethodPut, path+"/scope", tok, map[string]string{"scope": "pubs"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, path+"/scope", tok, map[string]string{"scope": "all"})
	require.Equal(t, http.StatusAccepted, w.Code)
	w = s.do(t, http.MethodPut, path+"/query", tok, map[string]string{"query": "zé"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool {
		var st search.State
		w := s.do(t, http.MethodGet, path, tok, nil)
		decode(t, w, &st)
		return st.Query == "zé" && !st.Loading && len(st.Results) == 1 && st.Results[0].ID == "m3"
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, path+"/more", tok, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, tok, nil).Code)
}

func (s *testServer) doAnon(t *testing.T, method, path, secret string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(handlers.SearchSecretHeader, secret)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestSearchRoutes_AnonymousSessionsBoundToToken(t *testing.T) {
	s := newTestServer(t)

	var first, second openBody
	w := s.doAnon(t, http.MethodPost, "/api/search/sessions", "", map[string]string{"query": "bar"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &first)
	require.NotEmpty(t, first.Token)
	w = s.doAnon(t, http.MethodPost, "/api/search/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &second)

	path := "/api/search/sessions/" + first.ID
	assert.Equal(t, http.StatusOK, s.doAnon(t, http.MethodGet, path, first.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.doAnon(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.doAnon(t, http.MethodGet, path, second.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.doAnon(t, http.MethodPut, path+"/query", second.Token, map[string]string{"query": "x"}).Code)
	assert.Equal(t, http.StatusNotFound, s.doAnon(t, http.MethodDelete, path, second.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, token(t, "ana"), nil).Code)

	assert.Equal(t, http.StatusNoContent, s.doAnon(t, http.MethodDelete, path, first.Token, nil).Code)
	assert.Equal(t, http.StatusOK, s.doAnon(t, http.MethodGet, "/api/search/sessions/"+second.ID, second.Token, nil).Code)
}

func TestMediaRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)
	path := "/api/media/signed-url?ref=gs://molho.appspot.com/a.jpg"
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotImplemented, s.do(t, http.MethodGet, path, token(t, "ana"), nil).Code)
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)
	utils.RunHealthChecks(context.Background(), map[string]utils.HealthCheck{
		"store": func(context.Context) error { return nil },
	}, zap.NewNop())

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":true`)
}
