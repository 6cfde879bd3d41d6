package services

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"nigrani/internal/models"
	"nigrani/internal/safemath"
	"nigrani/internal/telemetry"
)

// RecorderConfig bounds the sample buffer.
type RecorderConfig struct {
	MaxSamples    int
	Window        time.Duration // samples older than this are dropped on prune
	PruneInterval time.Duration
	SlowThreshold time.Duration // samples slower than this count as errors
	ErrorWindow   time.Duration
}

// DefaultRecorderConfig returns the default recorder bounds.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		MaxSamples:    1000,
		Window:        time.Hour,
		PruneInterval: 5 * time.Minute,
		SlowThreshold: 5 * time.Second,
		ErrorWindow:   5 * time.Minute,
	}
}

// SampleRecorder keeps a bounded, self-pruning buffer of request durations.
// All methods are safe for concurrent use.
type SampleRecorder struct {
	mu        sync.Mutex
	clock     clock.PassiveClock
	cfg       RecorderConfig
	samples   []models.Sample
	lastPrune time.Time
}

// NewSampleRecorder creates a recorder. A nil clock uses the wall clock.
func NewSampleRecorder(cfg RecorderConfig, clk clock.PassiveClock) *SampleRecorder {
	def := DefaultRecorderConfig()
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = def.MaxSamples
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = def.PruneInterval
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = def.SlowThreshold
	}
	if cfg.ErrorWindow <= 0 {
		cfg.ErrorWindow = def.ErrorWindow
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &SampleRecorder{
		clock:     clk,
		cfg:       cfg,
		samples:   make([]models.Sample, 0, cfg.MaxSamples+1),
		lastPrune: clk.Now(),
	}
}

// Record appends a successful sample taken now.
func (r *SampleRecorder) Record(d time.Duration) {
	r.RecordResult(d, false)
}

// RecordResult appends a sample taken now. It never blocks on I/O.
func (r *SampleRecorder) RecordResult(d time.Duration, failed bool) {
	if d < 0 {
		d = 0
	}
	now := r.clock.Now()

	r.mu.Lock()
	r.samples = append(r.samples, models.Sample{
		Timestamp:      now,
		DurationMillis: float64(d) / float64(time.Millisecond),
		IsError:        failed,
	})
	if len(r.samples) > r.cfg.MaxSamples || now.Sub(r.lastPrune) > r.cfg.PruneInterval {
		r.pruneLocked(now)
	}
	n := len(r.samples)
	r.mu.Unlock()

	telemetry.RecorderSamples.Set(float64(n))
	telemetry.RequestDurationSeconds.Observe(d.Seconds())
}

// pruneLocked drops samples outside the window, then keeps at most
// MaxSamples of the newest ones.
func (r *SampleRecorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.cfg.Window)
	first := len(r.samples)
	for i, s := range r.samples {
		if !s.Timestamp.Before(cutoff) {
			first = i
			break
		}
	}
	if over := len(r.samples) - first - r.cfg.MaxSamples; over > 0 {
		first += over
	}
	if first > 0 {
		kept := make([]models.Sample, len(r.samples)-first, r.cfg.MaxSamples+1)
		copy(kept, r.samples[first:])
		r.samples = kept
	}
	r.lastPrune = now
}

// AverageOfRecent returns the mean duration in milliseconds of the last n
// samples. ok is false when the buffer is empty.
func (r *SampleRecorder) AverageOfRecent(n int) (avg float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.samples) == 0 || n <= 0 {
		return 0, false
	}
	if n > len(r.samples) {
		n = len(r.samples)
	}
	var sum float64
	for _, s := range r.samples[len(r.samples)-n:] {
		sum += s.DurationMillis
	}
	return safemath.Div(sum, float64(n)), true
}

// ErrorStats returns the percentage (two decimals) and number of samples in
// the error window that were slow or flagged as failed.
func (r *SampleRecorder) ErrorStats() (ratePercent float64, count int64) {
	now := r.clock.Now()
	cutoff := now.Add(-r.cfg.ErrorWindow)
	slowMillis := float64(r.cfg.SlowThreshold) / float64(time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, s := range r.samples {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		total++
		if s.IsError || s.DurationMillis > slowMillis {
			count++
		}
	}
	return safemath.Round(safemath.Percent(float64(count), float64(total)), 2), count
}

// RequestsPerMinute returns how many samples were recorded in the last minute.
func (r *SampleRecorder) RequestsPerMinute() int {
	cutoff := r.clock.Now().Add(-time.Minute)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for i := len(r.samples) - 1; i >= 0; i-- {
		if r.samples[i].Timestamp.Before(cutoff) {
			break
		}
		n++
	}
	return n
}

// Len returns the number of buffered samples.
func (r *SampleRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples)
}

// Samples returns a copy of the buffer, oldest first.
func (r *SampleRecorder) Samples() []models.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Sample, len(r.samples))
	copy(out, r.samples)
	return out
}
