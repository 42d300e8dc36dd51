// Package linkeddata implements the optional "fetch on reference" collaborator
// of spec.md §6: whenever a pattern gains its first subscriber, any constant
// IRI appearing in that pattern is dereferenced over HTTP, the response is
// parsed as N-Triples, and the resulting ground triples are re-ingested as
// ordinary statements. A Badger-backed cache keeps a hot pattern from
// refetching the same URI on every new partial solution.
package linkeddata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/internal/ntriples"
	"github.com/sesamestream/sesamestream/pkg/metrics"
	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// Ingester is the one *index.Index capability the Fetcher needs. Declaring
// it as an interface (rather than importing pkg/index) keeps
// internal/linkeddata a leaf package the index wires up, not one it
// depends on.
type Ingester interface {
	AddStatement(ttl int64, tuple *model.Pattern) bool
}

// defaultAcceptHeader requests N-Triples first; many Linked Data servers
// content-negotiate and fall back to Turtle or RDF/XML, which this reader
// does not understand, but an N-Triples-first Accept header gets the best
// chance of a document internal/ntriples can parse.
const defaultAcceptHeader = "application/n-triples, text/turtle;q=0.5"

// Fetcher is the worker-pool dereference engine. It subscribes to an
// Index's OnPatternFirstSeen hook via Notify and re-ingests whatever it
// finds through ingester.
type Fetcher struct {
	ingester   Ingester
	cache      DedupeCache
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics

	workers      int
	statementTTL int64
	fetchTimeout time.Duration

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Fetcher at construction time.
type Option func(*Fetcher)

// WithWorkers overrides the worker pool size. The default, runtime.NumCPU()
// + 1, matches spec.md §5's suggested sizing for an I/O-bound pool (most
// workers are blocked waiting on the network, not burning CPU).
func WithWorkers(n int) Option {
	return func(f *Fetcher) { f.workers = n }
}

// WithHTTPClient overrides the default http.Client, e.g. to inject a
// transport with different timeouts in tests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = client }
}

// WithLogger attaches a zap logger; the default is zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithMetrics attaches a Metrics instance; without one, fetch counts are
// skipped.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithStatementTTL sets the TTL (seconds) given to triples re-ingested from
// a fetched document; 0 means infinite, the default. Documents fetched over
// the network are assumed durable once learned, the same as any other
// ingested statement, unless the caller wants fetched facts to expire
// faster than locally-asserted ones.
func WithStatementTTL(seconds int64) Option {
	return func(f *Fetcher) { f.statementTTL = seconds }
}

// WithFetchTimeout bounds how long a single dereference may take; the
// default is 10 seconds.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.fetchTimeout = d }
}

// New builds a Fetcher. Call Start to begin its worker pool; until then,
// Notify only enqueues jobs, it does not fetch anything.
func New(ingester Ingester, cache DedupeCache, opts ...Option) *Fetcher {
	f := &Fetcher{
		ingester:     ingester,
		cache:        cache,
		httpClient:   &http.Client{},
		logger:       zap.NewNop(),
		workers:      runtime.NumCPU() + 1,
		fetchTimeout: 10 * time.Second,
		jobs:         make(chan string, 256),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.ctx, f.cancel = context.WithCancel(context.Background())
	return f
}

// Start launches the worker pool.
func (f *Fetcher) Start() {
	for i := 0; i < f.workers; i++ {
		f.wg.Add(1)
		go f.worker()
	}
}

// Shutdown stops accepting new work and waits for in-flight fetches to
// finish or be cancelled (spec.md §5: shutDown "drops any in-flight
// fetches cleanly").
func (f *Fetcher) Shutdown() {
	f.cancel()
	f.wg.Wait()
}

// Notify is the OnPatternFirstSeen hook: wire it up with
// `idx.OnPatternFirstSeen = fetcher.Notify`. It extracts every constant IRI
// in p and enqueues a fetch for each one not already cached, dropping (with
// a log line) rather than blocking if the job queue is full.
func (f *Fetcher) Notify(p *model.Pattern) {
	for _, t := range p.Terms {
		if t.IsVariable() {
			continue
		}
		nn, ok := t.Constant.(*rdf.NamedNode)
		if !ok {
			continue
		}
		f.enqueue(nn.IRI)
	}
}

func (f *Fetcher) enqueue(uri string) {
	if f.cache != nil && f.cache.Seen(uri) {
		if f.metrics != nil {
			f.metrics.RecordFetch("skipped_cached")
		}
		return
	}
	select {
	case f.jobs <- uri:
	default:
		f.logger.Warn("linked data fetch queue full, dropping", zap.String("uri", uri))
	}
}

func (f *Fetcher) worker() {
	defer f.wg.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		case uri := <-f.jobs:
			f.fetch(uri)
		}
	}
}

func (f *Fetcher) fetch(uri string) {
	if f.cache != nil && f.cache.Seen(uri) {
		if f.metrics != nil {
			f.metrics.RecordFetch("skipped_cached")
		}
		return
	}

	ctx, cancel := context.WithTimeout(f.ctx, f.fetchTimeout)
	defer cancel()

	triples, err := f.dereference(ctx, uri)
	if err != nil {
		if f.metrics != nil {
			f.metrics.RecordFetch("failed")
		}
		f.logger.Warn("linked data fetch failed",
			zap.String("uri", uri),
			zap.Error(&query.FetcherError{URI: uri, Cause: err}))
		return
	}

	if f.cache != nil {
		if err := f.cache.Record(uri); err != nil {
			f.logger.Warn("linked data cache write failed", zap.String("uri", uri), zap.Error(err))
		}
	}

	for _, t := range triples {
		f.ingester.AddStatement(f.statementTTL, model.TupleFromTriple(t))
	}
	if f.metrics != nil {
		f.metrics.RecordFetch("succeeded")
	}
	f.logger.Debug("linked data fetch succeeded",
		zap.String("uri", uri), zap.Int("triples", len(triples)))
}

func (f *Fetcher) dereference(ctx context.Context, uri string) ([]*rdf.Triple, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", defaultAcceptHeader)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dereference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dereference: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	triples, err := ntriples.NewParser(string(body)).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse response body: %w", err)
	}
	return triples, nil
}
