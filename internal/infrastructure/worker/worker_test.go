package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/vendor-attendance/internal/application/service"
)

type mockRangeDetector struct {
	mu    sync.Mutex
	calls [][2]time.Time
	err   error
}

func (m *mockRangeDetector) DetectRange(ctx context.Context, from, to time.Time) (*service.DetectionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, [2]time.Time{from, to})
	return &service.DetectionSummary{Evaluated: 2}, m.err
}

func (m *mockRangeDetector) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type stubWorker struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (s *stubWorker) Start(ctx context.Context) error {
	s.started = s.startErr == nil
	return s.startErr
}

func (s *stubWorker) Stop() error {
	s.stopped = true
	return s.stopErr
}

func (s *stubWorker) Name() string { return s.name }

func TestDetectionWorker_Window(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	w := NewDetectionWorker(&mockRangeDetector{}, DetectionConfig{LookbackDays: 6, Location: ist}, zap.NewNop())
	// 20:00 UTC on the 4th is already the 5th in IST
	w.now = func() time.Time { return time.Date(2025, 3, 4, 20, 0, 0, 0, time.UTC) }

	from, to := w.Window()

	assert.Equal(t, time.Date(2025, 2, 26, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), to)
}

func TestDetectionWorker_RunOnce(t *testing.T) {
	detector := &mockRangeDetector{}
	w := NewDetectionWorker(detector, DetectionConfig{}, zap.NewNop())
	w.now = func() time.Time { return time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC) }

	w.RunOnce(context.Background())

	require.Equal(t, 1, detector.callCount())
	assert.Equal(t, detector.calls[0][0], detector.calls[0][1], "zero lookback covers yesterday only")
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), detector.calls[0][1])
}

func TestDetectionWorker_RunOnceSurvivesError(t *testing.T) {
	detector := &mockRangeDetector{err: errors.New("db locked")}
	w := NewDetectionWorker(detector, DetectionConfig{}, zap.NewNop())

	assert.NotPanics(t, func() { w.RunOnce(context.Background()) })
	assert.Equal(t, 1, detector.callCount())
}

func TestDetectionWorker_StartStop(t *testing.T) {
	detector := &mockRangeDetector{}
	w := NewDetectionWorker(detector, DetectionConfig{Interval: time.Hour}, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()), "second start is rejected")

	assert.Eventually(t, func() bool { return detector.callCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop(), "stop is idempotent")
	assert.Equal(t, "DetectionWorker", w.Name())
}

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	ok := &stubWorker{name: "ok"}
	broken := &stubWorker{name: "broken", startErr: errors.New("boom"), stopErr: errors.New("boom")}
	m.Register(ok)
	m.Register(broken)

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.Error(t, m.StartAll(context.Background()))

	err := m.StopAll()
	assert.Error(t, err)
	assert.True(t, ok.stopped)
	assert.False(t, m.IsRunning())
	assert.Equal(t, 2, m.WorkerCount())

	assert.NoError(t, m.StopAll())
}
