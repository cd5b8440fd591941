package search_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/techtrends/pkg/adapters/search"
	"github.com/aretw0/techtrends/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder_Size(t *testing.T) {
	s := search.New("")
	for _, count := range []int{0, 1, 3, 5, 10} {
		results, err := s.Search(context.Background(), "robotics", count)
		require.NoError(t, err)
		assert.Len(t, results, min(count, search.PlaceholderSize), "count=%d", count)
	}
}

func TestPlaceholder_Deterministic(t *testing.T) {
	a := search.PlaceholderResults("energy", 5)
	b := search.PlaceholderResults("energy", 5)
	assert.Equal(t, a, b)
	assert.Equal(t, "https://example.com/research/1", a[0].URL)
	assert.Equal(t, "https://example.com/strategy/5", a[4].URL)
	assert.Contains(t, a[0].Title, "energy")
}

func TestBrave_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "ai news", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"A","url":"https://a","description":"da"},
			{"title":"B","url":"https://b","description":"db"},
			{"title":"C","url":"https://c","description":"dc"}]}}`))
	}))
	defer srv.Close()

	s := search.New("key", search.WithEndpoint(srv.URL))
	results, err := s.Search(context.Background(), "ai news", 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.SearchResult{
		{Title: "A", URL: "https://a", Description: "da"},
		{Title: "B", URL: "https://b", Description: "db"},
	}, results)
}

func TestBrave_DegradesToPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := search.New("bad", search.WithEndpoint(srv.URL))
	results, err := s.Search(context.Background(), "biotech", 3)
	require.NoError(t, err)
	assert.Equal(t, search.PlaceholderResults("biotech", 3), results)

	strict := search.New("bad", search.WithEndpoint(srv.URL), search.WithStrict(true))
	_, err = strict.Search(context.Background(), "biotech", 3)
	assert.ErrorContains(t, err, "401")
}

type countingSearcher struct {
	calls []time.Time
}

func (c *countingSearcher) Search(_ context.Context, query string, count int) ([]domain.SearchResult, error) {
	c.calls = append(c.calls, time.Now())
	return nil, nil
}

func TestThrottle_SpacesCalls(t *testing.T) {
	inner := &countingSearcher{}
	interval := 50 * time.Millisecond
	s := search.Throttle(inner, interval)

	for i := 0; i < 3; i++ {
		_, err := s.Search(context.Background(), "q", 1)
		require.NoError(t, err)
	}

	require.Len(t, inner.calls, 3)
	for i := 1; i < len(inner.calls); i++ {
		gap := inner.calls[i].Sub(inner.calls[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond)
	}
}

func TestThrottle_HonorsContext(t *testing.T) {
	s := search.Throttle(&countingSearcher{}, time.Hour)
	_, err := s.Search(context.Background(), "q", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Search(ctx, "q", 1)
	assert.Error(t, err)
}
