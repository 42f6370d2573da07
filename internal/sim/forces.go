package sim

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Vertical axis for the orbital term. The whirlwind rotates about Y.
var axisY = Vec3{Y: 1}

// turbulence is a smooth, seeded 3-component noise flow. Each axis
// samples its own 4D simplex field at (scaled position, time) so the
// flow drifts slowly instead of flickering.
type turbulence struct {
	nx, ny, nz opensimplex.Noise
}

func newTurbulence(seed int64) *turbulence {
	return &turbulence{
		nx: opensimplex.NewNormalized(seed),
		ny: opensimplex.NewNormalized(seed + 1),
		nz: opensimplex.NewNormalized(seed + 2),
	}
}

// Spatial frequency of the turbulence field relative to the box.
const turbScale = 0.02

func (tb *turbulence) at(pos Vec3, t float64) Vec3 {
	x, y, z := pos.X*turbScale, pos.Y*turbScale, pos.Z*turbScale
	// Normalized noise is in [0,1]; recenter to [-1,1].
	return Vec3{
		X: tb.nx.Eval4(x, y, z, t)*2 - 1,
		Y: tb.ny.Eval4(x, y, z, t)*2 - 1,
		Z: tb.nz.Eval4(x, y, z, t)*2 - 1,
	}
}

// forceDelta computes the summed velocity delta for one particle from
// the additive force terms. Every term is disabled by a zero gain, so
// the minimal whirlwind variant and the full variant share this code
// path. Damping and the minimum-speed floor are applied by the caller
// after summation.
func forceDelta(p *Particle, cfg *Config, rng floatSource, tb *turbulence, elapsed float64) Vec3 {
	var delta Vec3

	dist := p.Pos.Len()
	dir := p.Pos.Unit() // Zero vector at the exact center: both radial terms vanish.

	// Inward pull, proportional to distance from center.
	if cfg.PullGain != 0 {
		delta = delta.Add(dir.Scale(-dist * cfg.PullGain))
	}

	// Differential rotation: faster near the center, falling off to
	// zero at the boundary.
	if cfg.OrbitalGain != 0 && cfg.HalfExtent > 0 {
		falloff := math.Max(0, 1-dist/cfg.HalfExtent)
		delta = delta.Add(axisY.Cross(dir).Scale(dist * cfg.OrbitalGain * falloff))
	}

	// Per-axis uniform jitter keeps the rotation from locking into a
	// rigid solid-body spin.
	if cfg.JitterGain != 0 {
		delta = delta.Add(Vec3{
			X: (rng.Float64() - 0.5) * cfg.JitterGain,
			Y: (rng.Float64() - 0.5) * cfg.JitterGain,
			Z: (rng.Float64() - 0.5) * cfg.JitterGain,
		})
	}

	// Constant bulk drift.
	delta = delta.Add(cfg.Drift)

	// Slow outward dilation.
	if cfg.ExpandGain != 0 {
		delta = delta.Add(dir.Scale(cfg.ExpandGain))
	}

	// Smooth turbulence flow.
	if cfg.TurbulenceGain != 0 && tb != nil {
		delta = delta.Add(tb.at(p.Pos, elapsed*0.1).Scale(cfg.TurbulenceGain))
	}

	return delta
}
