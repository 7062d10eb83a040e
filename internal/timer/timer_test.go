package timer

import (
	"errors"
	"testing"
	"time"

	"promodo/internal/session"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

// memHistory doubles as History and Sink, like the store behind the
// recorder does in the application.
type memHistory struct {
	logs    []session.Log
	listErr error
}

func (h *memHistory) ListSessions() ([]session.Log, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	return append([]session.Log(nil), h.logs...), nil
}

func (h *memHistory) Record(l session.Log) {
	h.logs = append(h.logs, l)
}

func testConfig() session.Config {
	return session.Config{
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
	}
}

func newTestEngine(cfg session.Config) (*Engine, *fakeClock, *memHistory) {
	clock := &fakeClock{now: time.Date(2024, 6, 3, 9, 0, 0, 0, time.Local)}
	hist := &memHistory{}
	return New(cfg, clock, hist, hist), clock, hist
}

func TestNewEngineInitialState(t *testing.T) {
	e, _, _ := newTestEngine(testConfig())
	st := e.State()
	if st.Mode != session.Work || st.Running || st.TimeLeft != 25*time.Minute || st.Total != 25*time.Minute {
		t.Fatalf("initial state: %+v", st)
	}
	if st.Progress() != 0 {
		t.Fatalf("Progress=%v, want 0", st.Progress())
	}
}

func TestTickDecrementsByWholeSecondDelta(t *testing.T) {
	e, clock, _ := newTestEngine(testConfig())
	e.Start()

	// Sub-second ticks do nothing.
	if _, done := e.Tick(clock.Advance(400 * time.Millisecond)); done {
		t.Fatalf("unexpected completion")
	}
	if got := e.State().TimeLeft; got != 25*time.Minute {
		t.Fatalf("TimeLeft=%v after sub-second tick", got)
	}

	// A late tick catches up by the full delta.
	e.Tick(clock.Advance(7*time.Second + 100*time.Millisecond))
	if got := e.State().TimeLeft; got != 25*time.Minute-7*time.Second {
		t.Fatalf("TimeLeft=%v, want 24:53", got)
	}

	// The anchor moved by whole seconds, so the leftover 500ms is kept.
	e.Tick(clock.Advance(500 * time.Millisecond))
	if got := e.State().TimeLeft; got != 25*time.Minute-8*time.Second {
		t.Fatalf("TimeLeft=%v, want 24:52", got)
	}
}

func TestTickIgnoredWhilePaused(t *testing.T) {
	e, clock, _ := newTestEngine(testConfig())
	e.Start()
	e.Tick(clock.Advance(10 * time.Second))
	e.Pause()
	e.Tick(clock.Advance(time.Minute))
	if got := e.State().TimeLeft; got != 25*time.Minute-10*time.Second {
		t.Fatalf("TimeLeft=%v after paused tick", got)
	}

	// Resuming re-anchors; the paused minute is not counted.
	e.Start()
	e.Tick(clock.Advance(2 * time.Second))
	if got := e.State().TimeLeft; got != 25*time.Minute-12*time.Second {
		t.Fatalf("TimeLeft=%v after resume", got)
	}
}

func TestResetRestoresFullDuration(t *testing.T) {
	for _, minutes := range []int{1, 5, 25, 90} {
		cfg := testConfig()
		cfg.WorkMinutes = minutes
		e, clock, _ := newTestEngine(cfg)
		e.Start()
		e.Tick(clock.Advance(17 * time.Second))
		e.Tick(clock.Advance(3 * time.Second))
		e.Reset()
		st := e.State()
		if st.Running || st.TimeLeft != time.Duration(minutes)*time.Minute {
			t.Fatalf("minutes=%d: state after reset %+v", minutes, st)
		}
	}
}

func TestCompletionFiresOnceAndClamps(t *testing.T) {
	cfg := testConfig()
	cfg.WorkMinutes = 1
	e, clock, hist := newTestEngine(cfg)
	start := clock.Now()
	e.Start()

	c, done := e.Tick(clock.Advance(5 * time.Minute))
	if !done {
		t.Fatalf("expected completion")
	}
	if c.Mode != session.Work || c.Next != session.ShortBreak || c.Skipped {
		t.Fatalf("completion: %+v", c)
	}
	if !c.StartedAt.Equal(start) || !c.EndedAt.Equal(clock.Now()) {
		t.Fatalf("completion instants: %+v", c)
	}
	if len(hist.logs) != 1 {
		t.Fatalf("logged %d sessions, want 1", len(hist.logs))
	}
	l := hist.logs[0]
	if l.DurationMinutes != 1 || l.Mode != session.Work || !l.Completed || l.ID == "" {
		t.Fatalf("log: %+v", l)
	}

	// Not auto-started: further ticks do nothing.
	if _, done := e.Tick(clock.Advance(time.Hour)); done {
		t.Fatalf("completion fired twice")
	}
	st := e.State()
	if st.Mode != session.ShortBreak || st.Running || st.TimeLeft != 5*time.Minute {
		t.Fatalf("state after completion: %+v", st)
	}
}

func TestLongBreakEveryFourthWorkSession(t *testing.T) {
	e, clock, hist := newTestEngine(testConfig())

	want := []session.Mode{session.ShortBreak, session.ShortBreak, session.ShortBreak, session.LongBreak, session.ShortBreak}
	for i, next := range want {
		e.SwitchMode(session.Work)
		e.Start()
		c, done := e.Tick(clock.Advance(25 * time.Minute))
		if !done {
			t.Fatalf("session %d did not complete", i+1)
		}
		if c.Next != next {
			t.Fatalf("session %d: next=%s, want %s", i+1, c.Next, next)
		}
	}
	if len(hist.logs) != len(want) {
		t.Fatalf("logged %d, want %d", len(hist.logs), len(want))
	}
}

func TestWorkSessionsFromOtherDaysDoNotCount(t *testing.T) {
	e, clock, hist := newTestEngine(testConfig())
	yesterday := clock.Now().AddDate(0, 0, -1)
	for i := 0; i < 3; i++ {
		hist.logs = append(hist.logs, session.Log{Mode: session.Work, StartedAt: yesterday})
	}
	e.Start()
	c, _ := e.Tick(clock.Advance(25 * time.Minute))
	if c.Next != session.ShortBreak {
		t.Fatalf("next=%s, want shortBreak", c.Next)
	}
}

func TestCadenceCountsTheCompletionDay(t *testing.T) {
	e, clock, hist := newTestEngine(testConfig())
	clock.now = time.Date(2024, 6, 3, 23, 50, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		hist.logs = append(hist.logs, session.Log{Mode: session.Work, StartedAt: clock.now.Add(-time.Duration(i+1) * time.Hour)})
	}

	e.Start()
	c, done := e.Tick(clock.Advance(25 * time.Minute))
	if !done {
		t.Fatalf("session did not complete")
	}
	// Finished after midnight: the three earlier sessions belong to yesterday.
	if c.Next != session.ShortBreak {
		t.Fatalf("next=%s, want shortBreak", c.Next)
	}
}

func TestBreakCompletionAlwaysReturnsToWork(t *testing.T) {
	for _, mode := range []session.Mode{session.ShortBreak, session.LongBreak} {
		e, clock, hist := newTestEngine(testConfig())
		for i := 0; i < 3; i++ {
			hist.logs = append(hist.logs, session.Log{Mode: session.Work, StartedAt: clock.Now()})
		}
		e.SwitchMode(mode)
		e.Start()
		c, done := e.Tick(clock.Advance(time.Hour))
		if !done || c.Next != session.Work || c.Log != nil {
			t.Fatalf("%s completion: %+v", mode, c)
		}
		if len(hist.logs) != 3 {
			t.Fatalf("break completions must not be logged")
		}
	}
}

func TestAutoStart(t *testing.T) {
	cfg := testConfig()
	cfg.AutoStartBreaks = true
	cfg.AutoStartWork = false
	e, clock, _ := newTestEngine(cfg)

	e.Start()
	c, _ := e.Tick(clock.Advance(25 * time.Minute))
	if !c.AutoStarted || !e.Running() {
		t.Fatalf("break should auto-start: %+v", c)
	}

	// The break countdown is anchored at the completion instant.
	e.Tick(clock.Advance(time.Minute))
	if got := e.State().TimeLeft; got != 4*time.Minute {
		t.Fatalf("break TimeLeft=%v, want 4m", got)
	}

	c, _ = e.Tick(clock.Advance(4 * time.Minute))
	if c.Next != session.Work || c.AutoStarted || e.Running() {
		t.Fatalf("work should not auto-start: %+v", c)
	}
}

func TestSkipCompletesImmediately(t *testing.T) {
	e, clock, hist := newTestEngine(testConfig())
	e.Start()
	e.Tick(clock.Advance(3 * time.Minute))

	c := e.Skip()
	if !c.Skipped || c.Mode != session.Work || c.Next != session.ShortBreak {
		t.Fatalf("skip completion: %+v", c)
	}
	if len(hist.logs) != 1 {
		t.Fatalf("logged %d, want 1", len(hist.logs))
	}
	l := hist.logs[0]
	if !l.Completed || l.DurationMinutes != 25 {
		t.Fatalf("skipped log: %+v", l)
	}
	if st := e.State(); st.Mode != session.ShortBreak || st.Running {
		t.Fatalf("state after skip: %+v", st)
	}

	// Skipping while paused works too, and a skipped break goes back to work.
	c = e.Skip()
	if c.Mode != session.ShortBreak || c.Next != session.Work {
		t.Fatalf("skip break: %+v", c)
	}
	if len(hist.logs) != 1 {
		t.Fatalf("skipped break must not be logged")
	}
}

func TestStartRecordsNominalStartOnlyWhenFresh(t *testing.T) {
	e, clock, hist := newTestEngine(testConfig())
	first := clock.Advance(time.Minute)
	e.Start()
	e.Tick(clock.Advance(10 * time.Second))
	e.Pause()
	clock.Advance(time.Minute)
	e.Start()
	e.Skip()

	if !hist.logs[0].StartedAt.Equal(first) {
		t.Fatalf("StartedAt=%v, want %v", hist.logs[0].StartedAt, first)
	}
}

func TestSwitchModeStopsAndResets(t *testing.T) {
	e, clock, _ := newTestEngine(testConfig())
	e.Start()
	e.Tick(clock.Advance(30 * time.Second))
	e.SwitchMode(session.LongBreak)
	st := e.State()
	if st.Mode != session.LongBreak || st.Running || st.TimeLeft != 15*time.Minute {
		t.Fatalf("state after switch: %+v", st)
	}
}

func TestHistoryReadFailureCountsAsEmpty(t *testing.T) {
	e, clock, hist := newTestEngine(testConfig())
	hist.listErr = errors.New("disk gone")
	e.Start()
	c, done := e.Tick(clock.Advance(25 * time.Minute))
	if !done || c.Next != session.ShortBreak {
		t.Fatalf("completion with failing history: %+v", c)
	}
}

func TestSetConfigRefreshesIdleCountdown(t *testing.T) {
	e, clock, _ := newTestEngine(testConfig())
	cfg := testConfig()
	cfg.WorkMinutes = 50
	e.SetConfig(cfg)
	if got := e.State().TimeLeft; got != 50*time.Minute {
		t.Fatalf("idle TimeLeft=%v, want 50m", got)
	}

	e.Start()
	e.Tick(clock.Advance(time.Minute))
	cfg.WorkMinutes = 10
	e.SetConfig(cfg)
	if got := e.State().TimeLeft; got != 49*time.Minute {
		t.Fatalf("running TimeLeft=%v, want 49m", got)
	}
}

func TestToggle(t *testing.T) {
	e, _, _ := newTestEngine(testConfig())
	e.Toggle()
	if !e.Running() {
		t.Fatalf("Toggle should start")
	}
	e.Toggle()
	if e.Running() {
		t.Fatalf("Toggle should pause")
	}
}
