package sim

import (
	"testing"
	"time"
)

// fakeClock drives timed transitions without sleeping.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func kinds(signals []Signal) []SignalKind {
	out := make([]SignalKind, len(signals))
	for i, s := range signals {
		out[i] = s.Kind
	}
	return out
}

func testTiming() Config {
	cfg := DefaultConfig()
	cfg.CountdownFrom = 3
	cfg.GoDelay = 200 * time.Millisecond
	cfg.ExplosionDuration = 300 * time.Millisecond
	cfg.FadeDuration = 200 * time.Millisecond
	cfg.LineUpDuration = 300 * time.Millisecond
	return cfg
}

func TestMachineStartsIdle(t *testing.T) {
	m := NewMachine(newFakeClock(), testTiming())
	if m.Phase() != PhaseIdle {
		t.Fatalf("initial phase = %v, want idle", m.Phase())
	}
	if sigs := m.Update(); len(sigs) != 0 {
		t.Fatalf("idle Update emitted %v", kinds(sigs))
	}
}

func TestMachineCountdownSequence(t *testing.T) {
	clock := newFakeClock()
	m := NewMachine(clock, testTiming())

	if !m.Start() {
		t.Fatal("Start from idle failed")
	}
	if m.Phase() != PhaseSwirling {
		t.Fatalf("phase after start = %v", m.Phase())
	}

	// Countdown begins on the first poll after the swirl starts.
	sigs := m.Update()
	if m.Phase() != PhaseCountdown {
		t.Fatalf("phase = %v, want countdown", m.Phase())
	}
	if len(sigs) != 1 || sigs[0].Kind != SignalCountdownTick || sigs[0].Count != 3 {
		t.Fatalf("unexpected signals %+v", sigs)
	}

	// One decrement per elapsed second.
	clock.Advance(time.Second)
	sigs = m.Update()
	if len(sigs) != 1 || sigs[0].Count != 2 {
		t.Fatalf("after 1s: %+v", sigs)
	}

	clock.Advance(time.Second)
	sigs = m.Update()
	if len(sigs) != 1 || sigs[0].Count != 1 {
		t.Fatalf("after 2s: %+v", sigs)
	}

	// Counter hits zero: GO, but the explosion waits for the go delay.
	clock.Advance(time.Second)
	sigs = m.Update()
	if len(sigs) != 1 || sigs[0].Kind != SignalGo {
		t.Fatalf("at zero: %+v", sigs)
	}
	if m.Phase() != PhaseCountdown {
		t.Fatalf("phase = %v, want countdown until go delay elapses", m.Phase())
	}

	clock.Advance(200 * time.Millisecond)
	sigs = m.Update()
	if m.Phase() != PhaseExploding {
		t.Fatalf("phase = %v, want exploding", m.Phase())
	}
	if len(sigs) != 1 || sigs[0].Kind != SignalDraw {
		t.Fatalf("explosion entry: %+v", sigs)
	}
}

func TestMachineCatchesUpMissedSeconds(t *testing.T) {
	clock := newFakeClock()
	m := NewMachine(clock, testTiming())
	m.Start()
	m.Update() // Into countdown at 3.

	// A single slow frame spanning the whole countdown emits every
	// intermediate tick, then GO.
	clock.Advance(5 * time.Second)
	sigs := m.Update()
	got := kinds(sigs)
	want := []SignalKind{SignalCountdownTick, SignalCountdownTick, SignalGo}
	if len(got) != len(want) {
		t.Fatalf("signals %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("signals %v, want %v", got, want)
		}
	}
}

func TestMachineNoCountdownVariant(t *testing.T) {
	cfg := testTiming()
	cfg.CountdownEnabled = false

	clock := newFakeClock()
	m := NewMachine(clock, cfg)
	m.Start()

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		if sigs := m.Update(); len(sigs) != 0 {
			t.Fatalf("swirl without countdown emitted %v", kinds(sigs))
		}
	}
	if m.Phase() != PhaseSwirling {
		t.Fatalf("phase = %v, want swirling to hold", m.Phase())
	}

	sigs := m.TriggerDraw()
	if m.Phase() != PhaseExploding {
		t.Fatalf("phase after TriggerDraw = %v", m.Phase())
	}
	if len(sigs) != 1 || sigs[0].Kind != SignalDraw {
		t.Fatalf("TriggerDraw signals %+v", sigs)
	}
}

func TestMachineExplosionToLineUpToComplete(t *testing.T) {
	cfg := testTiming()
	clock := newFakeClock()
	m := NewMachine(clock, cfg)
	m.Start()
	m.Update()
	m.TriggerDraw()

	clock.Advance(cfg.ExplosionDuration)
	sigs := m.Update()
	if m.Phase() != PhaseLiningUp || len(sigs) != 1 || sigs[0].Kind != SignalLineUp {
		t.Fatalf("phase %v signals %v", m.Phase(), kinds(sigs))
	}

	clock.Advance(cfg.LineUpDuration)
	sigs = m.Update()
	if m.Phase() != PhaseComplete || len(sigs) != 1 || sigs[0].Kind != SignalComplete {
		t.Fatalf("phase %v signals %v", m.Phase(), kinds(sigs))
	}

	// Complete is terminal until reset.
	clock.Advance(time.Hour)
	if sigs := m.Update(); len(sigs) != 0 {
		t.Fatalf("complete emitted %v", kinds(sigs))
	}
}

func TestMachineSkipsLineUpWhenDisabled(t *testing.T) {
	cfg := testTiming()
	cfg.LineUpEnabled = false

	clock := newFakeClock()
	m := NewMachine(clock, cfg)
	m.Start()
	m.Update()
	m.TriggerDraw()

	clock.Advance(cfg.ExplosionDuration)
	sigs := m.Update()
	if m.Phase() != PhaseComplete || len(sigs) != 1 || sigs[0].Kind != SignalComplete {
		t.Fatalf("phase %v signals %v", m.Phase(), kinds(sigs))
	}
}

func TestMachineResetFromEveryPhase(t *testing.T) {
	cfg := testTiming()

	setups := []struct {
		name  string
		setup func(c *fakeClock, m *Machine)
	}{
		{"Idle", func(c *fakeClock, m *Machine) {}},
		{"Swirling", func(c *fakeClock, m *Machine) { m.Start() }},
		{"Countdown", func(c *fakeClock, m *Machine) { m.Start(); m.Update() }},
		{"Exploding", func(c *fakeClock, m *Machine) { m.Start(); m.Update(); m.TriggerDraw() }},
		{"LiningUp", func(c *fakeClock, m *Machine) {
			m.Start()
			m.Update()
			m.TriggerDraw()
			c.Advance(cfg.ExplosionDuration)
			m.Update()
		}},
	}

	for _, tt := range setups {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			m := NewMachine(clock, cfg)
			tt.setup(clock, m)

			m.Reset(cfg)
			if m.Phase() != PhaseIdle {
				t.Fatalf("phase after reset = %v", m.Phase())
			}
			// No timed transition survives the reset.
			clock.Advance(time.Hour)
			if sigs := m.Update(); len(sigs) != 0 {
				t.Fatalf("reset machine emitted %v", kinds(sigs))
			}
		})
	}
}

func TestMachineTriggerDrawIllegalPhases(t *testing.T) {
	cfg := testTiming()
	clock := newFakeClock()
	m := NewMachine(clock, cfg)

	if sigs := m.TriggerDraw(); sigs != nil {
		t.Fatalf("TriggerDraw from idle emitted %v", kinds(sigs))
	}

	m.Start()
	m.Update()
	m.TriggerDraw()
	if sigs := m.TriggerDraw(); sigs != nil {
		t.Fatalf("second TriggerDraw emitted %v", kinds(sigs))
	}
}

func TestPhaseStrings(t *testing.T) {
	phases := map[Phase]string{
		PhaseIdle:      "idle",
		PhaseSwirling:  "swirling",
		PhaseCountdown: "countdown",
		PhaseExploding: "exploding",
		PhaseLiningUp:  "lining_up",
		PhaseComplete:  "complete",
		Phase(99):      "unknown",
	}
	for p, want := range phases {
		if p.String() != want {
			t.Errorf("Phase(%d).String() = %q, want %q", p, p.String(), want)
		}
	}
}
