//go:build !headless

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process; every Player shares it.
var (
	otoCtx      *oto.Context
	otoCtxRate  int
	otoInitOnce sync.Once
	otoInitErr  error
)

func ensureOtoContext(rate int) (*oto.Context, error) {
	otoInitOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		}
		var ready chan struct{}
		otoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr != nil {
			return
		}
		otoCtxRate = rate
		<-ready
	})
	if otoInitErr == nil && otoCtxRate != rate {
		return nil, fmt.Errorf("audio context already running at %d Hz", otoCtxRate)
	}
	return otoCtx, otoInitErr
}

// Player pulls from a ring through oto's player. oto calls Read on its own
// goroutine, which makes it the ring's single consumer.
type Player struct {
	player *oto.Player
}

// NewPlayer starts playback of src at the host rate. The volume is applied
// before Play to avoid a pop when starting muted.
func NewPlayer(hostRate int, src io.Reader, volume float64) (*Player, error) {
	ctx, err := ensureOtoContext(hostRate)
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}

	p := ctx.NewPlayer(src)
	// The default mux buffer is half a second; keep it near 50ms so the
	// ring fill reflects real latency.
	p.SetBufferSize(DepthForLatency(hostRate, 50) * BytesPerFrame)
	p.SetVolume(clampVolume(volume))
	p.Play()

	return &Player{player: p}, nil
}

// Buffered returns the frames held inside oto's player.
func (p *Player) Buffered() int {
	return p.player.BufferedSize() / BytesPerFrame
}

// SetVolume sets the playback volume, clamped to [0, 2].
func (p *Player) SetVolume(vol float64) {
	p.player.SetVolume(clampVolume(vol))
}

// Close stops playback.
func (p *Player) Close() error {
	return p.player.Close()
}

// OpenDevice opens the oto host device for the engine's ring.
func OpenDevice(e *Engine, volume float64) (Device, error) {
	return NewPlayer(e.HostRate(), e.Reader(), volume)
}
