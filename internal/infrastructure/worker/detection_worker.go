package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/vendor-attendance/internal/application/service"
	"github.com/garyjia/vendor-attendance/internal/domain/entity"
)

// RangeDetector is the part of the mismatch service the worker drives
type RangeDetector interface {
	DetectRange(ctx context.Context, from, to time.Time) (*service.DetectionSummary, error)
}

// DetectionConfig controls the periodic detection run
type DetectionConfig struct {
	Interval time.Duration
	// LookbackDays is how many days before yesterday are re-checked each run
	LookbackDays int
	// RunTimeout bounds one run; zero means no limit
	RunTimeout time.Duration
	Location   *time.Location
}

// DetectionWorker re-runs mismatch detection over a trailing window of
// completed days. Today is excluded because its badge feed is still open.
type DetectionWorker struct {
	detector RangeDetector
	cfg      DetectionConfig
	now      func() time.Time
	logger   *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDetectionWorker creates a new detection worker
func NewDetectionWorker(detector RangeDetector, cfg DetectionConfig, logger *zap.Logger) *DetectionWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.LookbackDays < 0 {
		cfg.LookbackDays = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &DetectionWorker{
		detector: detector,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Start launches the detection loop; the first run happens immediately
func (w *DetectionWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("detection worker is already running")
	}

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("DetectionWorker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("lookback_days", w.cfg.LookbackDays))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish
func (w *DetectionWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("DetectionWorker stopped")
	return nil
}

// Name returns the worker name for identification
func (w *DetectionWorker) Name() string {
	return "DetectionWorker"
}

func (w *DetectionWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Window returns the dates a run covers: yesterday and LookbackDays before it
func (w *DetectionWorker) Window() (from, to time.Time) {
	today := entity.NormalizeDate(w.now().In(w.cfg.Location))
	to = today.AddDate(0, 0, -1)
	from = to.AddDate(0, 0, -w.cfg.LookbackDays)
	return from, to
}

// RunOnce performs one detection pass
func (w *DetectionWorker) RunOnce(ctx context.Context) {
	if w.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.RunTimeout)
		defer cancel()
	}

	from, to := w.Window()
	started := time.Now()
	summary, err := w.detector.DetectRange(ctx, from, to)

	fields := []zap.Field{
		zap.String("from", from.Format(entity.DateLayout)),
		zap.String("to", to.Format(entity.DateLayout)),
		zap.Duration("elapsed", time.Since(started)),
	}
	if summary != nil {
		fields = append(fields,
			zap.Int("evaluated", summary.Evaluated),
			zap.Int("created", summary.Created),
			zap.Int("updated", summary.Updated),
			zap.Int("failed", summary.Failed))
	}
	if err != nil {
		w.logger.Error("Detection run failed", append(fields, zap.Error(err))...)
		return
	}
	w.logger.Info("Detection run completed", fields...)
}
