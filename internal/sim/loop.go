package sim

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// FramesPerSecond is the base tick rate of the simulation timeline.
const FramesPerSecond = 60

// Loop drives the session forward at a fixed frame rate. Speed scales
// the real-time interval between frames; 0 pauses.
type Loop struct {
	Session  *Session
	Interval time.Duration // Base frame interval (default 1/60 s).

	speed   atomic.Value // float64
	running atomic.Bool
}

// NewLoop creates a frame loop over the session at the default rate.
func NewLoop(s *Session) *Loop {
	l := &Loop{
		Session:  s,
		Interval: time.Second / FramesPerSecond,
	}
	l.speed.Store(1.0)
	return l
}

// Speed returns the current speed multiplier.
func (l *Loop) Speed() float64 {
	return l.speed.Load().(float64)
}

// SetSpeed changes the speed multiplier. 0 pauses; negatives clamp
// to 0.
func (l *Loop) SetSpeed(v float64) {
	if v < 0 {
		v = 0
	}
	l.speed.Store(v)
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run steps the session until Stop is called. Blocks.
func (l *Loop) Run() {
	l.running.Store(true)
	slog.Info("simulation loop started", "fps", FramesPerSecond)

	dt := l.Interval.Seconds()
	for l.running.Load() {
		speed := l.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		l.Session.Step(dt)

		// Sleep out the remainder of the frame, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(l.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation loop stopped", "tick", l.Session.Tick())
}

// Stop halts the loop after the current frame.
func (l *Loop) Stop() {
	l.running.Store(false)
}
