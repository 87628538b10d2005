package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SKDesing/aura-osint/go-preintel/internal/store"
)

// #region fakes
type countingModel struct {
	inner   Model
	calls   atomic.Int64
	gate    chan struct{} // when non-nil, Embed waits for it to close
	active  atomic.Int64
	peak    atomic.Int64
	closed  atomic.Bool
	produce func(text string) []float32
}

func (m *countingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.produce != nil {
		return m.produce(text), nil
	}
	return m.inner.Embed(ctx, text)
}

func (m *countingModel) Dimension() int {
	if m.inner == nil {
		return 0
	}
	return m.inner.Dimension()
}

func (m *countingModel) Close() error {
	m.closed.Store(true)
	return nil
}

func newCounting() *countingModel {
	return &countingModel{inner: NewHashingModel(64)}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Dimension = 64
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newProvider(t *testing.T, m Model, persist *store.Store) *Provider {
	t.Helper()
	p, err := NewProvider(testConfig(), func(context.Context) (Model, error) { return m, nil }, persist, nil)
	require.NoError(t, err)
	return p
}

func memStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// #endregion fakes

// #region embed-tests
func TestEmbedTwiceSingleModelCall(t *testing.T) {
	m := newCounting()
	p := newProvider(t, m, nil)
	ctx := context.Background()

	first, err := p.Embed(ctx, "the same text")
	require.NoError(t, err)
	second, err := p.Embed(ctx, "the same text")
	require.NoError(t, err)

	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	require.Equal(t, len(first.Vector), len(second.Vector))
	for i := range first.Vector {
		assert.Equal(t, math.Float32bits(first.Vector[i]), math.Float32bits(second.Vector[i]))
	}
	assert.EqualValues(t, 1, m.calls.Load())
	assert.EqualValues(t, 1, p.ModelCalls())
}

func TestEmbedResultIsACopy(t *testing.T) {
	p := newProvider(t, newCounting(), nil)
	ctx := context.Background()

	r1, err := p.Embed(ctx, "copy me")
	require.NoError(t, err)
	r1.Vector[0] = 42

	r2, err := p.Embed(ctx, "copy me")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), r2.Vector[0])
}

func TestConcurrentMissesShareComputation(t *testing.T) {
	m := newCounting()
	m.gate = make(chan struct{})
	p := newProvider(t, m, nil)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Embed(context.Background(), "hot key")
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return m.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(m.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, m.calls.Load())
}

func TestDistinctTextsDistinctKeys(t *testing.T) {
	m := newCounting()
	p := newProvider(t, m, nil)
	ctx := context.Background()

	_, err := p.Embed(ctx, "text a")
	require.NoError(t, err)
	_, err = p.Embed(ctx, "text b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.calls.Load())
}

func TestInvalidVectorRejected(t *testing.T) {
	m := &countingModel{produce: func(string) []float32 { return []float32{1, float32(math.NaN())} }}
	p := newProvider(t, m, nil)

	_, err := p.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidVector)
}

// #endregion embed-tests

// #region init-tests
func TestLazyInitOnce(t *testing.T) {
	var loads atomic.Int64
	m := newCounting()
	loader := func(context.Context) (Model, error) {
		loads.Add(1)
		time.Sleep(20 * time.Millisecond)
		return m, nil
	}
	p, err := NewProvider(testConfig(), loader, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Dimension(), "model must not load before first use")
	assert.EqualValues(t, 0, loads.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Embed(context.Background(), fmt.Sprintf("text %d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, loads.Load())
	assert.Equal(t, 64, p.Dimension())
}

func TestFailedInitRetried(t *testing.T) {
	var loads atomic.Int64
	loader := func(context.Context) (Model, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("model not ready")
		}
		return NewHashingModel(64), nil
	}
	p, err := NewProvider(testConfig(), loader, nil, nil)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "x")
	require.Error(t, err)
	_, err = p.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.EqualValues(t, 2, loads.Load())
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(testConfig(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg := testConfig()
	cfg.MaxInFlight = 0
	_, err = NewProvider(cfg, func(context.Context) (Model, error) { return nil, nil }, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// #endregion init-tests

// #region persistence-tests
func TestPersistentTierSurvivesProvider(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()

	m1 := newCounting()
	p1 := newProvider(t, m1, s)
	want, err := p1.Embed(ctx, "durable")
	require.NoError(t, err)

	m2 := newCounting()
	p2 := newProvider(t, m2, s)
	got, err := p2.Embed(ctx, "durable")
	require.NoError(t, err)

	assert.True(t, got.CacheHit)
	assert.Equal(t, want.Vector, got.Vector)
	assert.EqualValues(t, 0, m2.calls.Load())
}

func TestCorruptEntryRecomputedAndOverwritten(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()
	p := newProvider(t, newCounting(), s)

	key := CacheKey(p.ModelID(), "damaged")
	_, err := s.DB().Exec(
		`INSERT INTO embedding_cache (cache_key, model_id, dim, vector, created_at) VALUES (?, ?, 64, ?, 'x')`,
		key, p.ModelID(), []byte{1, 2, 3},
	)
	require.NoError(t, err)

	res, err := p.Embed(ctx, "damaged")
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.EqualValues(t, 1, p.ModelCalls())

	entry, ok, err := s.GetEmbedding(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.Vector, entry.Vector)
}

func TestForeignModelEntryIgnored(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()
	p := newProvider(t, newCounting(), s)

	key := CacheKey(p.ModelID(), "shared")
	require.NoError(t, s.PutEmbedding(ctx, store.EmbeddingEntry{CacheKey: key, ModelID: "other", Vector: []float32{1}}))

	res, err := p.Embed(ctx, "shared")
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Len(t, res.Vector, 64)
}

func TestWrongWidthEntryRecomputedBeforeModelLoads(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()
	p := newProvider(t, newCounting(), s)
	require.Equal(t, 0, p.Dimension())

	key := CacheKey(p.ModelID(), "x")
	require.NoError(t, s.PutEmbedding(ctx, store.EmbeddingEntry{CacheKey: key, ModelID: p.ModelID(), Vector: []float32{1, 0, 0}}))

	res, err := p.Embed(ctx, "x")
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Len(t, res.Vector, 64)
	assert.EqualValues(t, 1, p.ModelCalls())

	res, err = p.Embed(ctx, "x")
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Len(t, res.Vector, 64)

	entry, ok, err := s.GetEmbedding(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 64, entry.Dim)
}

func TestClearBothTiers(t *testing.T) {
	s := memStore(t)
	ctx := context.Background()
	m := newCounting()
	p := newProvider(t, m, s)

	_, err := p.Embed(ctx, "one")
	require.NoError(t, err)
	_, err = p.Embed(ctx, "two")
	require.NoError(t, err)

	n, err := p.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = p.Embed(ctx, "one")
	require.NoError(t, err)
	assert.EqualValues(t, 3, m.calls.Load())
}

// #endregion persistence-tests

// #region cancellation-tests
func TestAbandonedCallerStillPopulatesCache(t *testing.T) {
	s := memStore(t)
	m := newCounting()
	m.gate = make(chan struct{})
	p := newProvider(t, m, s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Embed(ctx, "slow")
		done <- err
	}()

	require.Eventually(t, func() bool { return m.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("abandoned caller was not released")
	}

	close(m.gate)
	// The persistent write happens after the in-memory insert.
	require.Eventually(t, func() bool {
		n, err := s.CountEmbeddings(context.Background())
		return err == nil && n == 1
	}, time.Second, time.Millisecond)
	assert.True(t, p.mem.Contains(CacheKey(p.ModelID(), "slow")))

	res, err := p.Embed(context.Background(), "slow")
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.EqualValues(t, 1, m.calls.Load())
}

// #endregion cancellation-tests

// #region batch-tests
func TestEmbedBatchOrderAndBound(t *testing.T) {
	m := newCounting()
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.MaxInFlight = 2
	m.produce = func(text string) []float32 {
		time.Sleep(5 * time.Millisecond)
		v, _ := NewHashingModel(64).Embed(context.Background(), text)
		return v
	}
	p, err := NewProvider(cfg, func(context.Context) (Model, error) { return m, nil }, nil, nil)
	require.NoError(t, err)

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("document number %d", i)
	}
	got, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, got, len(texts))

	ref := NewHashingModel(64)
	for i, text := range texts {
		want, _ := ref.Embed(context.Background(), text)
		assert.Equal(t, want, got[i].Vector, "item %d out of order", i)
	}
	assert.LessOrEqual(t, m.peak.Load(), int64(2))
}

func TestEmbedBatchError(t *testing.T) {
	loader := func(context.Context) (Model, error) { return nil, errors.New("offline") }
	p, err := NewProvider(testConfig(), loader, nil, nil)
	require.NoError(t, err)

	_, err = p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}

// #endregion batch-tests

// #region health-tests
func TestHealthCheckBypassesCache(t *testing.T) {
	m := newCounting()
	p := newProvider(t, m, nil)

	h1 := p.HealthCheck(context.Background())
	h2 := p.HealthCheck(context.Background())
	assert.True(t, h1.OK)
	assert.True(t, h2.OK)
	assert.Equal(t, 64, h1.Dimension)
	assert.Empty(t, h1.Error)
	assert.EqualValues(t, 2, m.calls.Load())
}

func TestHealthCheckFailure(t *testing.T) {
	loader := func(context.Context) (Model, error) { return nil, errors.New("no weights") }
	p, err := NewProvider(testConfig(), loader, nil, nil)
	require.NoError(t, err)

	h := p.HealthCheck(context.Background())
	assert.False(t, h.OK)
	assert.Contains(t, h.Error, "no weights")
	assert.Equal(t, 0, h.Dimension)
}

// #endregion health-tests

func TestCloseReleasesModel(t *testing.T) {
	m := newCounting()
	p := newProvider(t, m, nil)
	_, err := p.Embed(context.Background(), "x")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.True(t, m.closed.Load())
	assert.Equal(t, 0, p.Dimension())
}

func TestCloseWaitsForInFlightCall(t *testing.T) {
	m := newCounting()
	m.gate = make(chan struct{})
	var sawClosed atomic.Bool
	hashing := NewHashingModel(64)
	m.produce = func(text string) []float32 {
		sawClosed.Store(m.closed.Load())
		vec, _ := hashing.Embed(context.Background(), text)
		return vec
	}
	p := newProvider(t, m, nil)

	embedded := make(chan error, 1)
	go func() {
		_, err := p.Embed(context.Background(), "slow")
		embedded <- err
	}()
	require.Eventually(t, func() bool { return m.active.Load() == 1 }, time.Second, time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- p.Close() }()
	assert.Never(t, func() bool { return len(closed) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(m.gate)
	require.NoError(t, <-embedded)
	require.NoError(t, <-closed)
	assert.False(t, sawClosed.Load(), "model closed under a running call")
	assert.True(t, m.closed.Load())
}

func TestCacheKey(t *testing.T) {
	assert.NotEqual(t, CacheKey("ab", "c"), CacheKey("a", "bc"))
	assert.NotEqual(t, CacheKey("m", "hello"), CacheKey("m", "hellp"))
	assert.NotEqual(t, CacheKey("m1", "hello"), CacheKey("m2", "hello"))
	assert.Equal(t, CacheKey("m", "hello"), CacheKey("m", "hello"))
	assert.Len(t, CacheKey("m", ""), 64)
}
