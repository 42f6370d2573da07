package sim

import (
	"math"
	"math/rand"
)

// Field owns the mutable particle array for one simulation session.
// All mutation happens on the single tick timeline; collaborators see
// read-only View snapshots.
type Field struct {
	particles []Particle
	rng       *rand.Rand
	turb      *turbulence
	elapsed   float64 // Accumulated sim seconds, drives turbulence sampling.

	drawDone bool

	// Line-up choreography, captured when the phase begins.
	lineStarts []Vec3
	lineSlots  []Vec3
	lineOrder  []int
}

// NewField allocates an empty field. Reset populates it.
func NewField() *Field {
	return &Field{}
}

// Reset discards all particles and allocates cfg.Count fresh ones:
// uniform positions inside the box, a whirlwind-biased initial
// velocity, and the configured base color. Any previous selection and
// line-up state is cleared.
func (f *Field) Reset(cfg Config, seed int64) {
	f.rng = rand.New(rand.NewSource(seed))
	f.turb = newTurbulence(seed)
	f.elapsed = 0
	f.drawDone = false
	f.lineStarts = nil
	f.lineSlots = nil
	f.lineOrder = nil

	box := cfg.HalfExtent * 2
	color := HSLToRGB(cfg.Hue, cfg.Saturation, cfg.Lightness)

	f.particles = make([]Particle, cfg.Count)
	for i := range f.particles {
		pos := Vec3{
			X: (f.rng.Float64() - 0.5) * box,
			Y: (f.rng.Float64() - 0.5) * box,
			Z: (f.rng.Float64() - 0.5) * box,
		}

		// Tangential whirlwind velocity about the Y axis, from the
		// position's angle in the XZ plane, plus a vertical random
		// component. This gives the field a coherent initial rotation
		// instead of pure Brownian motion.
		angle := math.Atan2(pos.Z, pos.X)
		speed := (0.5 + f.rng.Float64()) * cfg.SpeedFactor * box / 100

		f.particles[i] = Particle{
			ID:  i + 1,
			Pos: pos,
			Vel: Vec3{
				X: -math.Sin(angle) * speed,
				Y: (f.rng.Float64() - 0.5) * speed,
				Z: math.Cos(angle) * speed,
			},
			Color:   color,
			Opacity: 1,
			Visible: true,
		}
	}
}

// stepState carries the phase context the field needs for one step.
type stepState struct {
	phase        Phase
	phaseElapsed float64 // Seconds since phase entry, wall-clock.
	dt           float64 // Sim seconds advanced this step.
}

// Step advances every particle by one tick: force terms, damping,
// minimum-speed floor, position integration, then box-wall collision.
// Selected particles stop reacting to ambient forces once the phase
// has left Swirling so the line-up can choreograph them.
func (f *Field) Step(cfg Config, st stepState) {
	f.elapsed += st.dt

	fade := 0.0
	if cfg.FadeDuration > 0 {
		fade = st.phaseElapsed / cfg.FadeDuration.Seconds()
	}

	for i := range f.particles {
		p := &f.particles[i]

		switch st.phase {
		case PhaseLiningUp, PhaseComplete:
			if p.Selected {
				f.lineUpStep(p, cfg, st)
			} else {
				p.Visible = false
				p.Opacity = 0
			}
			continue
		case PhaseExploding:
			if !p.Selected {
				// Time-based decay, monotone: never raise opacity.
				op := math.Max(0, 1-fade)
				if op < p.Opacity {
					p.Opacity = op
				}
				if p.Opacity <= 0 {
					p.Visible = false
				}
			}
		}

		frozen := p.Selected && st.phase != PhaseSwirling && st.phase != PhaseIdle && st.phase != PhaseCountdown
		if !frozen {
			p.Vel = p.Vel.Add(forceDelta(p, &cfg, f.rng, f.turb, f.elapsed))
			p.Vel = p.Vel.Scale(cfg.Damping)

			// The floor is what keeps the field from ever settling.
			if p.Speed() < cfg.MinSpeed {
				p.Vel = p.Vel.Add(Vec3{
					X: (f.rng.Float64() - 0.5) * cfg.SpeedFactor,
					Y: (f.rng.Float64() - 0.5) * cfg.SpeedFactor,
					Z: (f.rng.Float64() - 0.5) * cfg.SpeedFactor,
				})
			}
		}

		p.Pos = p.Pos.Add(p.Vel)
		f.resolveBounds(p, cfg)
	}
}

// resolveBounds clamps the particle inside the box, reflecting the
// velocity on each colliding axis. Multiple axes may collide in one
// step; the recolor happens at most once per step, and never for a
// selected particle after the draw.
func (f *Field) resolveBounds(p *Particle, cfg Config) {
	limit := cfg.HalfExtent - cfg.Radius
	hit := false

	clamp := func(c, v *float64) {
		if *c > limit {
			*c = limit
			*v = -*v
			hit = true
		} else if *c < -limit {
			*c = -limit
			*v = -*v
			hit = true
		}
	}
	clamp(&p.Pos.X, &p.Vel.X)
	clamp(&p.Pos.Y, &p.Vel.Y)
	clamp(&p.Pos.Z, &p.Vel.Z)

	if hit && !(p.Selected && f.drawDone) {
		p.Color = impactColor(f.rng)
	}
}

// MarkSelected flags the drawn particles in draw order and holds their
// colors stable from here on.
func (f *Field) MarkSelected(ids []int) {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range f.particles {
		f.particles[i].Selected = set[f.particles[i].ID]
	}
	f.drawDone = true
	f.lineOrder = append([]int(nil), ids...)
}

// BeginLineUp captures the selected particles' current positions and
// computes their target slots: evenly spaced along the X axis,
// centered at the origin, in draw order.
func (f *Field) BeginLineUp(cfg Config) {
	n := len(f.lineOrder)
	f.lineStarts = make([]Vec3, n)
	f.lineSlots = make([]Vec3, n)

	for i, id := range f.lineOrder {
		if p := f.byID(id); p != nil {
			f.lineStarts[i] = p.Pos
			p.Vel = Vec3{}
		}
		f.lineSlots[i] = Vec3{X: (float64(i) - float64(n-1)/2) * cfg.LineUpSpacing}
	}
}

func (f *Field) lineUpStep(p *Particle, cfg Config, st stepState) {
	idx := -1
	for i, id := range f.lineOrder {
		if id == p.ID {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(f.lineSlots) {
		return
	}

	t := 1.0
	if st.phase == PhaseLiningUp && cfg.LineUpDuration > 0 {
		t = math.Min(1, st.phaseElapsed/cfg.LineUpDuration.Seconds())
	}
	p.Pos = f.lineStarts[idx].Lerp(f.lineSlots[idx], t)
	p.Vel = Vec3{}
	p.Visible = true
	p.Opacity = 1
}

// Len returns the particle count.
func (f *Field) Len() int {
	return len(f.particles)
}

// IDs returns every particle id in storage order.
func (f *Field) IDs() []int {
	ids := make([]int, len(f.particles))
	for i := range f.particles {
		ids[i] = f.particles[i].ID
	}
	return ids
}

// Speeds returns id → current speed for every particle.
func (f *Field) Speeds() map[int]float64 {
	out := make(map[int]float64, len(f.particles))
	for i := range f.particles {
		out[f.particles[i].ID] = f.particles[i].Speed()
	}
	return out
}

// Views returns the read-only renderer snapshot for every particle.
func (f *Field) Views() []View {
	out := make([]View, len(f.particles))
	for i := range f.particles {
		out[i] = f.particles[i].view()
	}
	return out
}

func (f *Field) byID(id int) *Particle {
	// IDs are index+1 for a freshly reset field; fall back to a scan
	// in case that ever changes.
	if id >= 1 && id <= len(f.particles) && f.particles[id-1].ID == id {
		return &f.particles[id-1]
	}
	for i := range f.particles {
		if f.particles[i].ID == id {
			return &f.particles[i]
		}
	}
	return nil
}
