package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"venuedir/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	queries []string
	data    []models.Merchant
	block   map[string]chan struct{}
	started chan string
	err     error
}

func (f *fakeFetcher) SearchMerchants(ctx context.Context, query string) ([]models.Merchant, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.block[query]
	started := f.started
	err := f.err
	f.mu.Unlock()

	if started != nil {
		started <- query
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	var out []models.Merchant
	for _, m := range f.data {
		if strings.Contains(strings.ToLower(m.Name), strings.ToLower(query)) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeFetcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func merchants(n int, prefix string) []models.Merchant {
	out := make([]models.Merchant, n)
	for i := range out {
		out[i] = models.Merchant{ID: fmt.Sprintf("%s%02d", prefix, i), Name: fmt.Sprintf("%s %d", prefix, i)}
	}
	return out
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, c.Idle, 2*time.Second, 5*time.Millisecond)
}

func TestController_WindowAndLoadMore(t *testing.T) {
	f := &fakeFetcher{data: append(merchants(23, "Bar"), merchants(3, "Izakaya")...)}
	c := NewController(f, models.Session{}, Config{Debounce: 10 * time.Millisecond}, nil)
	defer c.Close()

	c.SetQuery("bar")
	waitIdle(t, c)

	st := c.State()
	assert.Len(t, st.Results, 10)
	assert.Equal(t, 23, st.Total)
	assert.True(t, st.HasMore)

	c.LoadMore()
	st = c.State()
	assert.Len(t, st.Results, 23)
	assert.False(t, st.HasMore)
	assert.True(t, st.ShowingAll)

	c.SetQuery("izakaya")
	assert.False(t, c.State().ShowingAll)
	waitIdle(t, c)
	st = c.State()
	assert.LessOrEqual(t, len(st.Results), 10)
	assert.Len(t, st.Results, 3)
	assert.False(t, st.HasMore)
}

func TestController_DebounceCoalescesKeystrokes(t *testing.T) {
	f := &fakeFetcher{data: merchants(5, "Boteco")}
	c := NewController(f, models.Session{}, Config{Debounce: 300 * time.Millisecond}, nil)
	defer c.Close()

	c.SetQuery("bot")
	time.Sleep(50 * time.Millisecond)
	c.SetQuery("boteco")
	assert.True(t, c.State().Loading)

	waitIdle(t, c)
	assert.Equal(t, []string{"boteco"}, f.calls())
	assert.Equal(t, "boteco", c.State().Query)
}

func TestController_SupersededResultIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	f := &fakeFetcher{
		data:    append(merchants(2, "Bar"), merchants(2, "Barril")...),
		block:   map[string]chan struct{}{"bar": slow},
		started: make(chan string, 4),
	}
	c := NewController(f, models.Session{}, Config{Debounce: 5 * time.Millisecond}, nil)
	defer c.Close()

	c.SetQuery("bar")
	require.Equal(t, "bar", <-f.started)

	c.SetQuery("barril")
	require.Equal(t, "barril", <-f.started)
	require.Eventually(t, func() bool { return c.State().Total == 2 }, time.Second, 5*time.Millisecond)

	close(slow)
	waitIdle(t, c)

	st := c.State()
	require.Len(t, st.Results, 2)
	for _, m := range st.Results {
		assert.Contains(t, m.Name, "Barril")
	}
}

func TestController_ScopeChangeFetchesImmediately(t *testing.T) {
	data := []models.Merchant{
		{ID: "1", Name: "Bar do Zé", Categories: []string{"Boteco brasileiro"}},
		{ID: "2", Name: "Izakaya Tokyo", Categories: []string{"Izakayas"}},
		{ID: "3", Name: "Drinkeria", Categories: []string{"Bares de drink"}},
	}
	f := &fakeFetcher{data: data}
	c := NewController(f, models.Session{}, Config{Debounce: time.Hour}, nil)
	defer c.Close()

	c.SetScope(ScopeIzakayas)
	waitIdle(t, c)
	st := c.State()
	require.Len(t, st.Results, 1)
	assert.Equal(t, "2", st.Results[0].ID)

	c.SetScope(ScopeDrinkBars)
	waitIdle(t, c)
	assert.Equal(t, "3", c.State().Results[0].ID)
	assert.Equal(t, []string{"", ""}, f.calls())
}

type staticFavorites map[string][]string

func (s staticFavorites) Favorites(_ context.Context, userID string) ([]string, error) {
	return s[userID], nil
}

func TestController_FavoritesScope(t *testing.T) {
	f := &fakeFetcher{data: merchants(4, "Bar")}
	favs := staticFavorites{"u1": {"Bar01", "Bar03"}}

	c := NewController(f, models.Session{UserID: "u1"}, Config{}, nil, WithFavorites(favs))
	defer c.Close()
	c.SetScope(ScopeFavorites)
	waitIdle(t, c)
	assert.Equal(t, 2, c.State().Total)

	anon := NewController(f, models.Session{}, Config{}, nil, WithFavorites(favs))
	defer anon.Close()
	anon.SetScope(ScopeFavorites)
	waitIdle(t, anon)
	assert.Equal(t, 0, anon.State().Total)
}

type stubResolver struct{ called int }

func (r *stubResolver) ResolveCoordinates(_ context.Context, records []models.Merchant) []models.Merchant {
	r.called++
	for i := range records {
		records[i].Coordinate = models.Coordinate{Latitude: 1, Longitude: 1}
	}
	return records
}

func TestController_RefreshUsesResolver(t *testing.T) {
	f := &fakeFetcher{data: merchants(3, "Bar")}
	r := &stubResolver{}
	c := NewController(f, models.Session{}, Config{}, nil, WithResolver(r))
	defer c.Close()

	st := c.Refresh(context.Background())
	assert.Equal(t, 1, r.called)
	require.Len(t, st.Results, 3)
	assert.True(t, st.Results[0].HasValidCoordinate())
	assert.False(t, st.Loading)
}

func TestController_FetchErrorKeepsPreviousResults(t *testing.T) {
	f := &fakeFetcher{data: merchants(3, "Bar")}
	c := NewController(f, models.Session{}, Config{}, nil)
	defer c.Close()

	c.Refresh(context.Background())
	f.mu.Lock()
	f.err = errors.New("store unreachable")
	f.mu.Unlock()

	st := c.Refresh(context.Background())
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, "store unreachable", st.Error)
}

func TestController_CloseStopsPendingFetch(t *testing.T) {
	f := &fakeFetcher{}
	c := NewController(f, models.Session{}, Config{Debounce: 20 * time.Millisecond}, nil)
	c.SetQuery("bar")
	c.Close()
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, f.calls())
	assert.True(t, c.Idle())
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("IZAKAYAS")
	require.NoError(t, err)
	assert.Equal(t, ScopeIzakayas, s)

	s, err = ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, s)

	_, err = ParseScope("sushi")
	assert.Error(t, err)
}
