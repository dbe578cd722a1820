package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/source"
)

// --- mocks ---

type stubSource struct {
	signal  string
	reading domain.Reading
	delay   time.Duration
}

func (s *stubSource) Signal() string { return s.signal }

func (s *stubSource) Fetch(_ context.Context) domain.Reading {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.reading
}

type stubScorer struct {
	score int
}

func (s *stubScorer) Score(_, _, _ float64) int { return s.score }

type mockStore struct {
	saved  chan domain.RiskRecord
	nextID int64

	mu  sync.Mutex
	err error
}

func newMockStore() *mockStore {
	return &mockStore{saved: make(chan domain.RiskRecord, 8), nextID: 7}
}

func (m *mockStore) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockStore) Save(_ context.Context, rec domain.RiskRecord) (int64, error) {
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	m.saved <- rec
	return m.nextID, nil
}

type mockBroadcaster struct {
	published chan domain.RiskRecord
	err       error
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{published: make(chan domain.RiskRecord, 8)}
}

func (m *mockBroadcaster) Publish(_ context.Context, rec domain.RiskRecord) error {
	if m.err != nil {
		return m.err
	}
	m.published <- rec
	return nil
}

type mockGate struct {
	alerted chan domain.RiskRecord
}

func newMockGate() *mockGate {
	return &mockGate{alerted: make(chan domain.RiskRecord, 8)}
}

func (m *mockGate) MaybeAlert(_ context.Context, rec *domain.RiskRecord) {
	m.alerted <- *rec
}

// --- helpers ---

var testLoc = domain.Coordinates{Lat: -6.2088, Lng: 106.8456}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultSources() (source.Client, source.Client, source.Client) {
	return &stubSource{signal: "rainfall", reading: domain.Reading{Value: 45, Source: "open-meteo"}},
		&stubSource{signal: "water_level", reading: domain.Reading{Value: 4.2, Source: "river-gauge"}},
		&stubSource{signal: "soil_moisture", reading: domain.Reading{Value: 0.7, Source: domain.FallbackSource}}
}

func newTestRunner(clock clockwork.Clock, store RecordStore, b Broadcaster, gate Alerter) *Runner {
	rain, level, soil := defaultSources()
	return New(Deps{
		Rainfall:     rain,
		WaterLevel:   level,
		SoilMoisture: soil,
		Scorer:       &stubScorer{score: 78},
		Store:        store,
		Broadcaster:  b,
		Gate:         gate,
		Location:     testLoc,
		Interval:     10 * time.Minute,
		FetchTimeout: 5 * time.Second,
		Clock:        clock,
		Logger:       discardLogger(),
		Metrics:      observability.NewMetricsForTesting(),
	})
}

func recvRecord(t *testing.T, ch chan domain.RiskRecord) domain.RiskRecord {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
		return domain.RiskRecord{}
	}
}

func assertNoRecord(t *testing.T, ch chan domain.RiskRecord) {
	t.Helper()
	select {
	case rec := <-ch:
		t.Fatalf("unexpected record: %+v", rec)
	case <-time.After(150 * time.Millisecond):
	}
}

// --- tests ---

func TestRunner_ScheduledTickRunsCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMockStore()
	b := newMockBroadcaster()
	gate := newMockGate()
	r := newTestRunner(clock, store, b, gate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	clock.BlockUntil(1)
	clock.Advance(10 * time.Minute)

	saved := recvRecord(t, store.saved)
	assert.Equal(t, testLoc, saved.Location)
	assert.Equal(t, 45.0, saved.Rainfall)
	assert.Equal(t, 4.2, saved.WaterLevel)
	assert.Equal(t, 0.7, saved.SoilMoisture)
	assert.Equal(t, "open-meteo", saved.DataSource.Rainfall)
	assert.Equal(t, "river-gauge", saved.DataSource.WaterLevel)
	assert.Equal(t, domain.FallbackSource, saved.DataSource.SoilMoisture)
	assert.Equal(t, 78, saved.Prediction)
	assert.Equal(t, domain.RiskHigh, saved.RiskLevel)
	assert.False(t, saved.SentAlert)

	published := recvRecord(t, b.published)
	assert.Equal(t, int64(7), published.ID, "broadcast carries the storage-assigned id")

	alerted := recvRecord(t, gate.alerted)
	assert.Equal(t, int64(7), alerted.ID)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, r.Ready())
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRunner_TriggerNowRunsCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMockStore()
	b := newMockBroadcaster()
	gate := newMockGate()
	r := newTestRunner(clock, store, b, gate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.NoError(t, r.TriggerNow())

	_ = recvRecord(t, store.saved)
	_ = recvRecord(t, b.published)
	_ = recvRecord(t, gate.alerted)
}

func TestRunner_TriggerNowQueuesAtMostOne(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := newTestRunner(clock, newMockStore(), newMockBroadcaster(), newMockGate())

	// Run is not consuming, so the first trigger fills the queue slot and
	// the second must be rejected rather than stacked.
	require.NoError(t, r.TriggerNow())
	assert.ErrorIs(t, r.TriggerNow(), ErrCycleInFlight)
}

func TestRunner_NotReadyBeforeFirstCycle(t *testing.T) {
	r := newTestRunner(clockwork.NewFakeClock(), newMockStore(), newMockBroadcaster(), newMockGate())
	assert.False(t, r.Ready())
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestRunner_StoreFailureAbortsCycle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMockStore()
	store.setErr(errors.New("disk full"))
	b := newMockBroadcaster()
	gate := newMockGate()
	r := newTestRunner(clock, store, b, gate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.NoError(t, r.TriggerNow())

	assertNoRecord(t, b.published)
	assertNoRecord(t, gate.alerted)
	assert.False(t, r.Ready())

	// The next cycle proceeds independently of the failure.
	store.setErr(nil)
	require.NoError(t, r.TriggerNow())
	_ = recvRecord(t, store.saved)
	_ = recvRecord(t, b.published)
}

func TestRunner_BroadcastFailureSkipsAlert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMockStore()
	b := newMockBroadcaster()
	b.err = errors.New("brokers unreachable")
	gate := newMockGate()
	r := newTestRunner(clock, store, b, gate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	require.NoError(t, r.TriggerNow())

	_ = recvRecord(t, store.saved)
	assertNoRecord(t, gate.alerted)
}

func TestRunner_FetchesRunConcurrently(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMockStore()
	b := newMockBroadcaster()
	gate := newMockGate()

	slow := 80 * time.Millisecond
	r := New(Deps{
		Rainfall:     &stubSource{signal: "rainfall", reading: domain.Reading{Value: 1, Source: "open-meteo"}, delay: slow},
		WaterLevel:   &stubSource{signal: "water_level", reading: domain.Reading{Value: 2, Source: "river-gauge"}, delay: slow},
		SoilMoisture: &stubSource{signal: "soil_moisture", reading: domain.Reading{Value: 0.3, Source: "open-meteo"}, delay: slow},
		Scorer:       &stubScorer{score: 10},
		Store:        store,
		Broadcaster:  b,
		Gate:         gate,
		Location:     testLoc,
		Interval:     10 * time.Minute,
		FetchTimeout: 5 * time.Second,
		Clock:        clock,
		Logger:       discardLogger(),
		Metrics:      observability.NewMetricsForTesting(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	start := time.Now()
	require.NoError(t, r.TriggerNow())
	_ = recvRecord(t, store.saved)

	// Three 80ms fetches in sequence would take 240ms+; in parallel the
	// cycle finishes in roughly one fetch's worth.
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRunner_StopsOnContextCancel(t *testing.T) {
	r := newTestRunner(clockwork.NewFakeClock(), newMockStore(), newMockBroadcaster(), newMockGate())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
}
