package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/cosmic-lottery/internal/draw"
	"github.com/talgya/cosmic-lottery/internal/entropy"
	"github.com/talgya/cosmic-lottery/internal/numerology"
)

// DrawResult is the immutable outcome of one completed draw. Ids are
// in draw order, not sorted. Discarded only by a reset.
type DrawResult struct {
	ID          string    `json:"id"`
	SelectedIDs []int     `json:"selected_ids"`
	Sum         int       `json:"sum"`
	Digit       int       `json:"digit"`
	Meaning     string    `json:"meaning"`
	Policy      string    `json:"policy"`
	Entropy     string    `json:"entropy"`
	DrawnAt     time.Time `json:"drawn_at"`
	Degraded    bool      `json:"degraded,omitempty"` // Fewer particles than requested.
}

// Event is a notable occurrence in the session, kept in a bounded log.
type Event struct {
	Tick        uint64    `json:"tick"`
	At          time.Time `json:"at"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // "phase", "countdown", "draw", "oracle", "config"
}

// Camera is the renderer-relevant viewpoint: orbit distance and angle
// about the vertical axis, plus an optional auto-spin rate.
type Camera struct {
	Zoom  float64 `json:"zoom"`
	Angle float64 `json:"angle"`
	Spin  float64 `json:"spin"` // Radians per second.
}

// Camera zoom bounds, matching the control-panel slider range.
const (
	MinZoom = 100
	MaxZoom = 500
)

// ErrStaleConfig is returned when an asynchronously produced config
// arrives after a newer reset. Last reset wins; the swap is dropped.
var ErrStaleConfig = errors.New("config generation is stale, dropped")

const maxEvents = 500

// Session owns the complete lottery state: particle field, phase
// machine, live config, camera, event log and the one DrawResult.
// All methods are safe for concurrent use; mutation is serialized so
// the simulation remains a single logical timeline.
type Session struct {
	mu      sync.Mutex
	clock   Clock
	field   *Field
	machine *Machine
	cfg     Config
	src     entropy.Source
	seed    int64

	tick       uint64
	generation uint64
	result     *DrawResult
	events     []Event
	camera     Camera

	// Result finalized during signal handling, handed to OnDraw by
	// Step outside the lock.
	pendingFinal *DrawResult

	// OnDraw is called once per finalized draw, after the session
	// reaches Complete. Set before the loop starts.
	OnDraw func(DrawResult)
}

// NewSession creates a session with a freshly reset field. cfg must
// already be validated.
func NewSession(cfg Config, clock Clock, src entropy.Source, seed int64) *Session {
	s := &Session{
		clock:   clock,
		field:   NewField(),
		machine: NewMachine(clock, cfg),
		cfg:     cfg,
		src:     src,
		seed:    seed,
		camera:  Camera{Zoom: 160, Spin: 0.1},
	}
	s.field.Reset(cfg, seed)
	return s
}

// reset discards field and result and returns the machine to Idle.
// Caller holds the lock.
func (s *Session) reset() {
	s.generation++
	s.result = nil
	s.field.Reset(s.cfg, s.seed+int64(s.generation))
	s.machine.Reset(s.cfg)
	s.addEvent("simulation reset", "phase")
}

// Start begins the swirl. A start while already running is a restart:
// the field resets first, then the swirl begins on the fresh field.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Phase() != PhaseIdle {
		s.reset()
	}
	s.machine.Start()
	s.addEvent("swirl started", "phase")
}

// Restart returns the session to Idle with a fresh field, aborting any
// pending timed transition. Legal in every phase.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// SelectNow forces an immediate draw, bypassing the countdown. From
// Idle it starts the swirl first so the phase sequence stays legal.
func (s *Session) SelectNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Phase() == PhaseIdle {
		s.machine.Start()
	}
	s.handleSignals(s.machine.TriggerDraw())
}

// ApplyConfig validates and atomically swaps in a new config, then
// performs a full reset. On validation failure the prior config stays
// active and nothing is touched.
func (s *Session) ApplyConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.reset()
	s.addEvent("new configuration applied", "config")
	return nil
}

// Generation returns the current reset generation, captured by callers
// that produce configs asynchronously.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// ApplyConfigIfGeneration applies cfg only if no reset has happened
// since gen was captured. Used by the oracle path so a slow suggestion
// can never clobber a newer session.
func (s *Session) ApplyConfigIfGeneration(gen uint64, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrStaleConfig
	}
	s.cfg = cfg
	s.reset()
	s.addEvent("oracle configuration applied", "oracle")
	return nil
}

// Step advances the session by one frame: due phase transitions first,
// then one field integration step. dt is the sim-seconds this frame
// represents.
func (s *Session) Step(dt float64) {
	s.mu.Lock()
	s.tick++

	s.handleSignals(s.machine.Update())

	s.field.Step(s.cfg, stepState{
		phase:        s.machine.Phase(),
		phaseElapsed: s.machine.PhaseElapsed().Seconds(),
		dt:           dt,
	})

	s.camera.Angle += s.camera.Spin * dt

	var completed *DrawResult
	if s.pendingFinal != nil {
		completed = s.pendingFinal
		s.pendingFinal = nil
	}
	cb := s.OnDraw
	s.mu.Unlock()

	if completed != nil && cb != nil {
		cb(*completed)
	}
}

func (s *Session) handleSignals(signals []Signal) {
	for _, sig := range signals {
		switch sig.Kind {
		case SignalCountdownTick:
			s.addEvent(fmt.Sprintf("countdown: %d", sig.Count), "countdown")
		case SignalGo:
			s.addEvent("GO", "countdown")
		case SignalDraw:
			s.performDraw()
		case SignalLineUp:
			s.field.BeginLineUp(s.cfg)
			s.addEvent("winners lining up", "phase")
		case SignalComplete:
			if s.result != nil {
				s.addEvent(fmt.Sprintf("draw complete: digit %d, %s", s.result.Digit, s.result.Meaning), "draw")
				r := *s.result
				s.pendingFinal = &r
			}
		}
	}
}

// performDraw runs the selection engine exactly once per explosion and
// builds the immutable DrawResult. Caller holds the lock.
func (s *Session) performDraw() {
	var (
		ids []int
		err error
	)
	switch s.cfg.Policy {
	case PolicyMaxSpeed:
		speeds := s.field.Speeds()
		cands := make([]draw.Candidate, 0, len(speeds))
		for id, sp := range speeds {
			cands = append(cands, draw.Candidate{ID: id, Speed: sp})
		}
		ids, err = draw.MaxSpeed(cands, s.cfg.SelectCount)
	default:
		ids, err = draw.UniformWithoutReplacement(s.src, s.field.IDs(), s.cfg.SelectCount)
	}

	degraded := false
	var insufficient *draw.InsufficientError
	if errors.As(err, &insufficient) {
		// Degrade to what we have; the draw proceeds.
		degraded = true
		slog.Warn("draw degraded", "wanted", insufficient.Want, "got", insufficient.Got)
		s.addEvent(fmt.Sprintf("only %d of %d particles available", insufficient.Got, insufficient.Want), "draw")
	}

	sum := 0
	for _, id := range ids {
		sum += id
	}
	digit := numerology.Reduce(sum)

	s.result = &DrawResult{
		ID:          uuid.NewString(),
		SelectedIDs: ids,
		Sum:         sum,
		Digit:       digit,
		Meaning:     numerology.Meaning(digit),
		Policy:      s.cfg.Policy,
		Entropy:     s.src.Name(),
		DrawnAt:     s.clock.Now(),
		Degraded:    degraded,
	}
	s.field.MarkSelected(ids)

	s.addEvent(fmt.Sprintf("drew %d particles, sum %d", len(ids), sum), "draw")
	slog.Info("draw performed",
		"ids", ids,
		"sum", sum,
		"digit", digit,
		"policy", s.cfg.Policy,
		"entropy", s.src.Name(),
	)
}

func (s *Session) addEvent(desc, category string) {
	s.events = append(s.events, Event{
		Tick:        s.tick,
		At:          s.clock.Now(),
		Description: desc,
		Category:    category,
	})
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Phase()
}

// Countdown returns the countdown counter, meaningful while counting.
func (s *Session) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Countdown()
}

// Config returns the live configuration value.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Result returns a copy of the current draw result, or nil before a
// draw has completed.
func (s *Session) Result() *DrawResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	r.SelectedIDs = append([]int(nil), s.result.SelectedIDs...)
	return &r
}

// Views returns the per-frame renderer snapshot of every particle.
func (s *Session) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field.Views()
}

// Events returns up to limit most recent events, oldest first.
func (s *Session) Events(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return append([]Event(nil), s.events[start:]...)
}

// CameraPose returns the current camera pose.
func (s *Session) CameraPose() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// SetCamera updates the camera pose. Zoom outside the slider range is
// rejected.
func (s *Session) SetCamera(cam Camera) error {
	if cam.Zoom < MinZoom || cam.Zoom > MaxZoom {
		return &InvalidConfigError{Field: "camera.zoom", Value: cam.Zoom, Min: MinZoom, Max: MaxZoom}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
	return nil
}

// Tick returns the number of frames stepped so far.
func (s *Session) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}
