package driver

import (
	"testing"
	"time"
)

func TestPacerLagAndWait(t *testing.T) {
	clk := newFakeClock()
	p := newPacer(clk, time.Millisecond)

	// One second of emulation at a 1 kHz clock.
	p.Advance(1000, 1000)
	if lag := p.Lag(clk.Now()); lag != -time.Second {
		t.Fatalf("expected lag -1s, got %v", lag)
	}
	if slept := p.Wait(clk.Now()); slept != time.Second {
		t.Fatalf("expected to sleep 1s, got %v", slept)
	}
	if lag := p.Lag(clk.Now()); lag != 0 {
		t.Fatalf("expected lag 0 after sleeping, got %v", lag)
	}

	clk.Advance(250 * time.Millisecond)
	if lag := p.Lag(clk.Now()); lag != 250*time.Millisecond {
		t.Fatalf("expected lag 250ms, got %v", lag)
	}
	if slept := p.Wait(clk.Now()); slept != 0 {
		t.Fatalf("should not sleep when behind, slept %v", slept)
	}
}

func TestPacerBelowThreshold(t *testing.T) {
	clk := newFakeClock()
	p := newPacer(clk, 5*time.Millisecond)

	p.Advance(2, 1000) // 2ms ahead
	if slept := p.Wait(clk.Now()); slept != 0 {
		t.Fatalf("lead below threshold should not sleep, slept %v", slept)
	}
	// The lead carries over and is slept once it passes the threshold.
	p.Advance(4, 1000)
	if slept := p.Wait(clk.Now()); slept != 6*time.Millisecond {
		t.Fatalf("expected 6ms sleep, got %v", slept)
	}
}

func TestPacerSpeed(t *testing.T) {
	clk := newFakeClock()
	p := newPacer(clk, 0)

	p.SetSpeed(2)
	p.Advance(1000, 1000)
	if lag := p.Lag(clk.Now()); lag != -500*time.Millisecond {
		t.Fatalf("2x speed: expected lag -500ms, got %v", lag)
	}

	// Changing speed re-anchors.
	p.SetSpeed(0.5)
	if lag := p.Lag(clk.Now()); lag != 0 {
		t.Fatalf("expected lag 0 after speed change, got %v", lag)
	}
	p.Advance(1000, 1000)
	if lag := p.Lag(clk.Now()); lag != -2*time.Second {
		t.Fatalf("0.5x speed: expected lag -2s, got %v", lag)
	}

	p.SetSpeed(0)
	if p.Speed() != 0.5 {
		t.Fatalf("invalid speed should be ignored, got %v", p.Speed())
	}
}

func TestPacerAdvanceDurationAndResync(t *testing.T) {
	clk := newFakeClock()
	p := newPacer(clk, 0)
	p.SetSpeed(3)
	p.AdvanceDuration(20 * time.Millisecond)
	if lag := p.Lag(clk.Now()); lag != -20*time.Millisecond {
		t.Fatalf("expected lag -20ms, got %v", lag)
	}
	p.Resync()
	if lag := p.Lag(clk.Now()); lag != 0 {
		t.Fatalf("expected lag 0 after resync, got %v", lag)
	}
	p.Advance(10, 0)
	if lag := p.Lag(clk.Now()); lag != 0 {
		t.Fatalf("zero clock rate should not advance, got %v", lag)
	}
}

func TestWatchdog(t *testing.T) {
	w := newWatchdog(100 * time.Millisecond)
	now := time.Unix(100, 0)
	if w.Expired(now) {
		t.Fatal("idle watchdog should not expire")
	}
	w.Begin(now)
	if w.Expired(now.Add(50 * time.Millisecond)) {
		t.Fatal("should not expire before the deadline")
	}
	if !w.Expired(now.Add(150 * time.Millisecond)) {
		t.Fatal("should expire after the deadline")
	}
	w.End()
	if w.Expired(now.Add(time.Hour)) {
		t.Fatal("ended step should not expire")
	}
	if got := w.pollInterval(); got != 25*time.Millisecond {
		t.Fatalf("expected 25ms poll interval, got %v", got)
	}
	w.SetDeadline(0)
	w.Begin(now)
	if w.Expired(now.Add(time.Hour)) {
		t.Fatal("zero deadline disables the watchdog")
	}
}
