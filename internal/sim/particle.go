// Package sim is the particle dynamics core: the field of particles,
// the force model that keeps them swirling, box-wall collision, and
// the phase state machine that turns a swirl into a finished draw.
// The renderer, control panel and oracle are external collaborators
// that only ever see read-only snapshots of this state.
package sim

// Particle is one mote in the field. Plain data, no rendering
// concerns. ID is assigned once at reset (index+1) and never reused
// within a session.
type Particle struct {
	ID       int
	Pos      Vec3
	Vel      Vec3
	Color    RGB
	Opacity  float64 // In [0,1]; monotone non-increasing once the explosion starts.
	Visible  bool
	Selected bool
}

// Speed returns the particle's current scalar speed.
func (p *Particle) Speed() float64 {
	return p.Vel.Len()
}

// View is the immutable per-particle snapshot handed to the renderer.
type View struct {
	ID       int     `json:"id"`
	Pos      Vec3    `json:"pos"`
	Color    RGB     `json:"color"`
	Opacity  float64 `json:"opacity"`
	Visible  bool    `json:"visible"`
	Selected bool    `json:"selected"`
}

func (p *Particle) view() View {
	return View{
		ID:       p.ID,
		Pos:      p.Pos,
		Color:    p.Color,
		Opacity:  p.Opacity,
		Visible:  p.Visible,
		Selected: p.Selected,
	}
}
