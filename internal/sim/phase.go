package sim

import "time"

// Phase enumerates where the session is in the swirl → draw → reveal
// sequence.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseSwirling
	PhaseCountdown
	PhaseExploding
	PhaseLiningUp
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSwirling:
		return "swirling"
	case PhaseCountdown:
		return "countdown"
	case PhaseExploding:
		return "exploding"
	case PhaseLiningUp:
		return "lining_up"
	case PhaseComplete:
		return "complete"
	}
	return "unknown"
}

// SignalKind identifies a side effect the session must perform in
// response to a phase transition.
type SignalKind uint8

const (
	SignalCountdownTick SignalKind = iota // Counter decremented; Count holds the new value.
	SignalGo                              // Counter reached zero.
	SignalDraw                            // Entered Exploding; run the selection engine now.
	SignalLineUp                          // Entered LiningUp; capture choreography.
	SignalComplete                        // Entered Complete; finalize the result.
)

// Signal is emitted by Machine.Update for the session to act on.
type Signal struct {
	Kind  SignalKind
	Count int
}

// Machine is the authoritative phase controller. All timed behavior is
// keyed on wall-clock elapsed time since phase entry, polled once per
// tick, so it stays consistent under variable frame rate and is
// testable with a fake clock.
type Machine struct {
	clock Clock
	cfg   Config

	phase     Phase
	enteredAt time.Time

	countdown int
	goneAt    time.Time // When the counter hit zero; zero value until then.
}

// NewMachine creates an Idle machine driven by the given clock.
func NewMachine(clock Clock, cfg Config) *Machine {
	return &Machine{
		clock:     clock,
		cfg:       cfg,
		phase:     PhaseIdle,
		enteredAt: clock.Now(),
	}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// PhaseElapsed returns time since the current phase was entered.
func (m *Machine) PhaseElapsed() time.Duration {
	return m.clock.Now().Sub(m.enteredAt)
}

// Countdown returns the current counter value, meaningful while in
// the Countdown phase.
func (m *Machine) Countdown() int { return m.countdown }

func (m *Machine) transition(to Phase) {
	m.phase = to
	m.enteredAt = m.clock.Now()
}

// Reset returns the machine to Idle with a fresh config, aborting any
// pending timed transition. Legal in every phase.
func (m *Machine) Reset(cfg Config) {
	m.cfg = cfg
	m.countdown = 0
	m.goneAt = time.Time{}
	m.transition(PhaseIdle)
}

// Start moves Idle to Swirling. Starting from any other phase is a
// restart and must go through Reset first; Start reports whether it
// took effect.
func (m *Machine) Start() bool {
	if m.phase != PhaseIdle {
		return false
	}
	m.transition(PhaseSwirling)
	return true
}

// TriggerDraw forces an immediate transition to Exploding, bypassing
// the countdown. Only legal while swirling or counting down.
func (m *Machine) TriggerDraw() []Signal {
	if m.phase != PhaseSwirling && m.phase != PhaseCountdown {
		return nil
	}
	m.transition(PhaseExploding)
	return []Signal{{Kind: SignalDraw}}
}

// Update polls elapsed time and performs any due transitions,
// returning the signals the session must act on, in order.
func (m *Machine) Update() []Signal {
	var signals []Signal

	switch m.phase {
	case PhaseSwirling:
		if m.cfg.CountdownEnabled {
			m.countdown = m.cfg.CountdownFrom
			m.goneAt = time.Time{}
			m.transition(PhaseCountdown)
			signals = append(signals, Signal{Kind: SignalCountdownTick, Count: m.countdown})
		}
		// Without a countdown the swirl holds until an external
		// trigger forces the draw.

	case PhaseCountdown:
		now := m.clock.Now()
		if m.goneAt.IsZero() {
			// One decrement per elapsed second.
			remaining := m.cfg.CountdownFrom - int(now.Sub(m.enteredAt)/time.Second)
			if remaining < 0 {
				remaining = 0
			}
			for m.countdown > remaining {
				m.countdown--
				if m.countdown > 0 {
					signals = append(signals, Signal{Kind: SignalCountdownTick, Count: m.countdown})
				} else {
					signals = append(signals, Signal{Kind: SignalGo})
					m.goneAt = now
				}
			}
		}
		if !m.goneAt.IsZero() && now.Sub(m.goneAt) >= m.cfg.GoDelay {
			m.transition(PhaseExploding)
			signals = append(signals, Signal{Kind: SignalDraw})
		}

	case PhaseExploding:
		if m.PhaseElapsed() >= m.cfg.ExplosionDuration {
			if m.cfg.LineUpEnabled {
				m.transition(PhaseLiningUp)
				signals = append(signals, Signal{Kind: SignalLineUp})
			} else {
				m.transition(PhaseComplete)
				signals = append(signals, Signal{Kind: SignalComplete})
			}
		}

	case PhaseLiningUp:
		if m.PhaseElapsed() >= m.cfg.LineUpDuration {
			m.transition(PhaseComplete)
			signals = append(signals, Signal{Kind: SignalComplete})
		}
	}

	return signals
}
