package sim

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

func TestFieldResetInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 200

	f := NewField()
	f.Reset(cfg, 7)

	if f.Len() != 200 {
		t.Fatalf("field holds %d particles, want 200", f.Len())
	}

	seen := make(map[int]bool)
	for _, v := range f.Views() {
		if v.ID < 1 || v.ID > 200 {
			t.Fatalf("id %d outside 1..200", v.ID)
		}
		if seen[v.ID] {
			t.Fatalf("duplicate id %d", v.ID)
		}
		seen[v.ID] = true

		for _, c := range []float64{v.Pos.X, v.Pos.Y, v.Pos.Z} {
			if math.Abs(c) > cfg.HalfExtent {
				t.Fatalf("particle %d spawned outside the box: %+v", v.ID, v.Pos)
			}
		}
		if v.Opacity != 1 || !v.Visible || v.Selected {
			t.Fatalf("particle %d not fresh: %+v", v.ID, v)
		}
	}
}

func TestFieldResetHasRotationalBias(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 500

	f := NewField()
	f.Reset(cfg, 3)

	// The whirlwind init gives nearly every particle a tangential
	// velocity about Y: position cross velocity should point the same
	// way along Y for the bulk of the field, unlike isotropic noise.
	aligned := 0
	for i := range f.particles {
		p := &f.particles[i]
		angular := Vec3{X: p.Pos.X, Z: p.Pos.Z}.Cross(Vec3{X: p.Vel.X, Z: p.Vel.Z})
		if angular.Y < 0 {
			aligned++
		}
	}
	if aligned < 450 {
		t.Fatalf("only %d/500 particles share the rotation sense", aligned)
	}
}

func TestFieldBoundsInvariant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 100
	cfg.HalfExtent = 20
	cfg.Radius = 1
	cfg.SpeedFactor = 0.5
	cfg.MinSpeed = 0.5
	cfg.JitterGain = 0.5
	cfg.Damping = 0.9

	f := NewField()
	f.Reset(cfg, 9)

	st := stepState{phase: PhaseSwirling, dt: 1.0 / FramesPerSecond}
	for step := 0; step < 500; step++ {
		f.Step(cfg, st)
		for _, v := range f.Views() {
			for _, c := range []float64{v.Pos.X, v.Pos.Y, v.Pos.Z} {
				if math.Abs(c) > cfg.HalfExtent {
					t.Fatalf("step %d: particle %d escaped: %+v", step, v.ID, v.Pos)
				}
			}
		}
	}
}

func TestResolveBoundsClampsAndFlips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HalfExtent = 20
	cfg.Radius = 1

	f := &Field{rng: rand.New(rand.NewSource(1))}
	base := HSLToRGB(cfg.Hue, cfg.Saturation, cfg.Lightness)
	p := &Particle{ID: 1, Pos: Vec3{X: 25, Y: -30, Z: 0}, Vel: Vec3{X: 2, Y: -3, Z: 1}, Color: base}

	f.resolveBounds(p, cfg)

	if p.Pos.X != 19 || p.Vel.X != -2 {
		t.Fatalf("positive X bound not resolved: pos %v vel %v", p.Pos, p.Vel)
	}
	if p.Pos.Y != -19 || p.Vel.Y != 3 {
		t.Fatalf("negative Y bound not resolved: pos %v vel %v", p.Pos, p.Vel)
	}
	if p.Vel.Z != 1 {
		t.Fatalf("untouched axis changed: vel %v", p.Vel)
	}
	if p.Color == base {
		t.Fatal("impact did not recolor")
	}
}

func TestResolveBoundsKeepsWinnerColor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HalfExtent = 20
	cfg.Radius = 1

	f := &Field{rng: rand.New(rand.NewSource(1)), drawDone: true}
	base := HSLToRGB(cfg.Hue, cfg.Saturation, cfg.Lightness)
	p := &Particle{ID: 1, Pos: Vec3{X: 25}, Vel: Vec3{X: 2}, Color: base, Selected: true}

	f.resolveBounds(p, cfg)

	if p.Pos.X != 19 || p.Vel.X != -2 {
		t.Fatalf("bounce not resolved: pos %v vel %v", p.Pos, p.Vel)
	}
	if p.Color != base {
		t.Fatal("selected particle recolored after the draw")
	}
}

func TestFieldMinSpeedFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 1
	cfg.PullGain = 0
	cfg.OrbitalGain = 0
	cfg.JitterGain = 0
	cfg.ExpandGain = 0
	cfg.MinSpeed = 0.01
	cfg.SpeedFactor = 0.1
	cfg.Damping = 0.9

	f := NewField()
	f.Reset(cfg, 5)
	f.particles[0].Vel = Vec3{}

	st := stepState{phase: PhaseSwirling, dt: 1.0 / FramesPerSecond}
	f.Step(cfg, st)

	if f.particles[0].Speed() == 0 {
		t.Fatal("floor did not re-inject energy into a stalled particle")
	}
}

func TestFieldFadeIsMonotonicAndTimeBased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 10
	cfg.FadeDuration = time.Second

	f := NewField()
	f.Reset(cfg, 2)
	f.MarkSelected([]int{1})

	prev := make(map[int]float64)
	for _, v := range f.Views() {
		prev[v.ID] = v.Opacity
	}

	for _, elapsed := range []float64{0.25, 0.5, 0.75, 0.9, 1.1, 2.0} {
		f.Step(cfg, stepState{phase: PhaseExploding, phaseElapsed: elapsed, dt: 1.0 / FramesPerSecond})

		for _, v := range f.Views() {
			if v.ID == 1 {
				if v.Opacity != 1 {
					t.Fatalf("winner faded at elapsed %.2f: %v", elapsed, v.Opacity)
				}
				continue
			}
			if v.Opacity > prev[v.ID] {
				t.Fatalf("opacity rose for %d at elapsed %.2f: %v -> %v", v.ID, elapsed, prev[v.ID], v.Opacity)
			}
			prev[v.ID] = v.Opacity

			if elapsed > 1 {
				if v.Opacity != 0 || v.Visible {
					t.Fatalf("particle %d not gone after the fade: %+v", v.ID, v)
				}
			}
		}
	}
}

func TestFieldLineUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 5
	cfg.LineUpSpacing = 10
	cfg.LineUpDuration = time.Second

	f := NewField()
	f.Reset(cfg, 4)
	f.MarkSelected([]int{3, 1, 5})
	f.BeginLineUp(cfg)

	// Midway: winners are between start and slot, frozen.
	f.Step(cfg, stepState{phase: PhaseLiningUp, phaseElapsed: 0.5, dt: 1.0 / FramesPerSecond})
	for _, id := range []int{3, 1, 5} {
		p := f.byID(id)
		if p.Vel != (Vec3{}) {
			t.Fatalf("winner %d still has velocity mid line-up", id)
		}
	}

	// Done: winners sit exactly on their slots, in draw order.
	f.Step(cfg, stepState{phase: PhaseLiningUp, phaseElapsed: 1.5, dt: 1.0 / FramesPerSecond})
	wantX := map[int]float64{3: -10, 1: 0, 5: 10}
	for id, x := range wantX {
		p := f.byID(id)
		if p.Pos.X != x || p.Pos.Y != 0 || p.Pos.Z != 0 {
			t.Fatalf("winner %d at %+v, want slot x=%v", id, p.Pos, x)
		}
	}

	for _, v := range f.Views() {
		if !v.Selected && v.Visible {
			t.Fatalf("loser %d visible during line-up", v.ID)
		}
	}
}

func TestFieldSelectedFrozenAfterSwirl(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Count = 2
	cfg.JitterGain = 0.5
	cfg.MinSpeed = 0

	f := NewField()
	f.Reset(cfg, 8)
	f.MarkSelected([]int{1})

	p := f.byID(1)
	p.Pos = Vec3{}
	p.Vel = Vec3{X: 0.5}

	f.Step(cfg, stepState{phase: PhaseExploding, phaseElapsed: 0.1, dt: 1.0 / FramesPerSecond})

	// No forces, no damping: the winner coasts in a straight line.
	if p.Vel != (Vec3{X: 0.5}) {
		t.Fatalf("winner's velocity changed while frozen: %+v", p.Vel)
	}
	if p.Pos != (Vec3{X: 0.5}) {
		t.Fatalf("winner did not integrate position: %+v", p.Pos)
	}
}
