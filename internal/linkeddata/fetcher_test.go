package linkeddata

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

type fakeIngester struct {
	mu      sync.Mutex
	tuples  []*model.Pattern
	ttls    []int64
	ingested chan struct{}
}

func newFakeIngester(expected int) *fakeIngester {
	return &fakeIngester{ingested: make(chan struct{}, expected)}
}

func (f *fakeIngester) AddStatement(ttl int64, tuple *model.Pattern) bool {
	f.mu.Lock()
	f.tuples = append(f.tuples, tuple)
	f.ttls = append(f.ttls, ttl)
	f.mu.Unlock()
	select {
	case f.ingested <- struct{}{}:
	default:
	}
	return true
}

func (f *fakeIngester) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tuples)
}

func (f *fakeIngester) waitFor(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if f.count() >= n {
			return
		}
		select {
		case <-f.ingested:
		case <-deadline:
			t.Fatalf("timed out waiting for %d ingested triples, got %d", n, f.count())
		}
	}
}

type fakeCache struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{seen: make(map[string]bool)}
}

func (c *fakeCache) Seen(uri string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[uri]
}

func (c *fakeCache) Record(uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[uri] = true
	return nil
}

func TestFetcher_NotifyDereferencesConstantIRIsAndIngests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<http://ex/alice> <http://ex/knows> <http://ex/bob> .`)
	}))
	defer srv.Close()

	ingester := newFakeIngester(1)
	cache := newFakeCache()
	f := New(ingester, cache, WithWorkers(1), WithLogger(zap.NewNop()))
	f.Start()
	defer f.Shutdown()

	pattern := model.NewPattern(
		model.NewConstant(rdf.NewNamedNode(srv.URL)),
		model.NewVariable("p"),
		model.NewVariable("o"),
	)
	f.Notify(pattern)

	ingester.waitFor(t, 1, 2*time.Second)
	require.Equal(t, 1, ingester.count())
	assert.True(t, cache.Seen(srv.URL), "expected the URI to be recorded after a successful fetch")
}

func TestFetcher_NotifySkipsVariableTerms(t *testing.T) {
	ingester := newFakeIngester(0)
	cache := newFakeCache()
	f := New(ingester, cache, WithWorkers(1))
	f.Start()
	defer f.Shutdown()

	pattern := model.NewPattern(
		model.NewVariable("s"),
		model.NewVariable("p"),
		model.NewVariable("o"),
	)
	f.Notify(pattern)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, ingester.count(), "expected no fetch for an all-variable pattern")
}

func TestFetcher_NotifySkipsAlreadyCachedURI(t *testing.T) {
	fetchCount := 0
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fetchCount++
		mu.Unlock()
		fmt.Fprint(w, `<http://ex/a> <http://ex/b> <http://ex/c> .`)
	}))
	defer srv.Close()

	ingester := newFakeIngester(1)
	cache := newFakeCache()
	require.NoError(t, cache.Record(srv.URL))

	f := New(ingester, cache, WithWorkers(1))
	f.Start()
	defer f.Shutdown()

	pattern := model.NewPattern(
		model.NewConstant(rdf.NewNamedNode(srv.URL)),
		model.NewVariable("p"),
		model.NewVariable("o"),
	)
	f.Notify(pattern)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, fetchCount, "expected a cached URI not to be fetched again")
}

func TestFetcher_FetchFailureIsLoggedNotPropagated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ingester := newFakeIngester(0)
	cache := newFakeCache()
	f := New(ingester, cache, WithWorkers(1))
	f.Start()
	defer f.Shutdown()

	pattern := model.NewPattern(
		model.NewConstant(rdf.NewNamedNode(srv.URL)),
		model.NewVariable("p"),
		model.NewVariable("o"),
	)
	f.Notify(pattern)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, ingester.count(), "expected a failed fetch to ingest nothing")
	assert.False(t, cache.Seen(srv.URL), "expected a failed fetch not to be cached as seen")
}

func TestFetcher_ShutdownStopsWorkers(t *testing.T) {
	ingester := newFakeIngester(0)
	cache := newFakeCache()
	f := New(ingester, cache, WithWorkers(2))
	f.Start()
	f.Shutdown()
}
