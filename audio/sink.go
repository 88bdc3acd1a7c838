package audio

import (
	"context"
	"io"
	"sync"
	"time"
)

// Device is a host audio output consuming an engine's ring.
type Device interface {
	// Buffered returns frames held by the device outside the ring.
	Buffered() int
	SetVolume(vol float64)
	Close() error
}

func clampVolume(vol float64) float64 {
	if vol < 0 {
		return 0
	}
	if vol > 2 {
		return 2
	}
	return vol
}

// NullSink consumes a reader at real-time pace and discards the audio.
// It stands in for a sound card in headless runs and tests.
type NullSink struct {
	src    io.Reader
	rate   int
	period time.Duration
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewNullSink starts draining src, one period worth of frames at a time.
func NewNullSink(src io.Reader, hostRate int, period time.Duration) *NullSink {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &NullSink{
		src:    src,
		rate:   hostRate,
		period: period,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *NullSink) run(ctx context.Context) {
	defer close(s.done)
	frames := int(int64(s.rate) * int64(s.period) / int64(time.Second))
	if frames < 1 {
		frames = 1
	}
	buf := make([]byte, frames*BytesPerFrame)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.src.Read(buf); err == io.EOF {
				return
			}
		}
	}
}

// Buffered is always zero; the sink holds nothing.
func (s *NullSink) Buffered() int { return 0 }

// SetVolume is a no-op.
func (s *NullSink) SetVolume(float64) {}

// Close stops draining and waits for the goroutine to exit.
func (s *NullSink) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}
