package timer

import (
	"log"
	"sync"
	"time"

	"promodo/internal/session"

	"github.com/google/uuid"
)

// sessionsPerLongBreak is the number of work sessions in a day after which
// the next break is a long one.
const sessionsPerLongBreak = 4

// Clock supplies wall-clock time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// History is the persisted session log the engine consults when choosing
// the next break.
type History interface {
	ListSessions() ([]session.Log, error)
}

// Sink receives finished work sessions. Record must not block the engine.
type Sink interface {
	Record(session.Log)
}

// State is a read-only view of the countdown.
type State struct {
	Mode     session.Mode
	TimeLeft time.Duration
	Total    time.Duration
	Running  bool
}

// Progress is the elapsed fraction of the current countdown in [0, 1].
func (s State) Progress() float64 {
	if s.Total <= 0 {
		return 0
	}
	p := 1 - float64(s.TimeLeft)/float64(s.Total)
	return min(max(p, 0), 1)
}

// Completion describes a countdown that reached zero or was skipped.
type Completion struct {
	Mode        session.Mode
	StartedAt   time.Time
	EndedAt     time.Time
	Skipped     bool
	Next        session.Mode
	AutoStarted bool
	Log         *session.Log
}

// Engine is the Pomodoro countdown. Remaining time is recomputed from
// wall-clock deltas so late or missing ticks never make it lag.
type Engine struct {
	mu       sync.Mutex
	cfg      session.Config
	clock    Clock
	history  History
	sink     Sink
	mode     session.Mode
	timeLeft int // seconds
	running  bool
	anchor   time.Time
	started  time.Time
}

func New(cfg session.Config, clock Clock, history History, sink Sink) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	e := &Engine{
		cfg:     cfg,
		clock:   clock,
		history: history,
		sink:    sink,
		mode:    session.Work,
	}
	e.timeLeft = e.totalLocked()
	e.started = clock.Now()
	return e
}

func (e *Engine) totalLocked() int {
	return e.cfg.Minutes(e.mode) * 60
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Mode:     e.mode,
		TimeLeft: time.Duration(e.timeLeft) * time.Second,
		Total:    time.Duration(e.totalLocked()) * time.Second,
		Running:  e.running,
	}
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) Config() session.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig swaps the configuration. An idle countdown is refreshed to the
// new length of its mode; a running one keeps its remaining time.
func (e *Engine) SetConfig(cfg session.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	if !e.running {
		e.timeLeft = e.totalLocked()
	}
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startLocked(e.clock.Now())
}

func (e *Engine) startLocked(now time.Time) {
	if e.running {
		return
	}
	e.running = true
	e.anchor = now
	if e.timeLeft == e.totalLocked() {
		e.started = now
	}
}

func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// Toggle starts a paused countdown or pauses a running one.
func (e *Engine) Toggle() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.running = false
		return
	}
	e.startLocked(e.clock.Now())
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.timeLeft = e.totalLocked()
}

func (e *Engine) SwitchMode(mode session.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.switchModeLocked(mode, e.clock.Now())
}

func (e *Engine) switchModeLocked(mode session.Mode, now time.Time) {
	e.running = false
	e.mode = mode
	e.timeLeft = e.totalLocked()
	e.started = now
}

// Tick advances a running countdown by the whole seconds elapsed since the
// last anchor. It reports a completion when the countdown reaches zero.
func (e *Engine) Tick(now time.Time) (Completion, bool) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return Completion{}, false
	}
	delta := int(now.Sub(e.anchor) / time.Second)
	if delta < 1 {
		e.mu.Unlock()
		return Completion{}, false
	}
	e.anchor = e.anchor.Add(time.Duration(delta) * time.Second)
	e.timeLeft -= delta
	if e.timeLeft > 0 {
		e.mu.Unlock()
		return Completion{}, false
	}
	e.timeLeft = 0
	c := e.completeLocked(now, false)
	e.mu.Unlock()

	e.emit(c)
	return c, true
}

// Skip ends the current countdown through the same path as a natural
// expiry.
func (e *Engine) Skip() Completion {
	e.mu.Lock()
	c := e.completeLocked(e.clock.Now(), true)
	e.mu.Unlock()

	e.emit(c)
	return c
}

func (e *Engine) completeLocked(now time.Time, skipped bool) Completion {
	e.running = false
	c := Completion{
		Mode:      e.mode,
		StartedAt: e.started,
		EndedAt:   now,
		Skipped:   skipped,
	}

	if e.mode == session.Work {
		c.Log = &session.Log{
			ID:              uuid.NewString(),
			StartedAt:       e.started,
			EndedAt:         now,
			DurationMinutes: e.cfg.WorkMinutes,
			Mode:            session.Work,
			Completed:       true,
			TaskIDs:         []string{},
		}
		today := e.workSessionsToday(now) + 1
		if today%sessionsPerLongBreak == 0 {
			c.Next = session.LongBreak
		} else {
			c.Next = session.ShortBreak
		}
	} else {
		c.Next = session.Work
	}

	e.switchModeLocked(c.Next, now)
	if e.cfg.AutoStart(c.Next) {
		e.startLocked(now)
		c.AutoStarted = true
	}
	return c
}

func (e *Engine) workSessionsToday(now time.Time) int {
	if e.history == nil {
		return 0
	}
	logs, err := e.history.ListSessions()
	if err != nil {
		log.Printf("timer: read history: %v", err)
		return 0
	}
	return session.WorkSessionsOn(logs, now)
}

func (e *Engine) emit(c Completion) {
	if c.Log != nil && e.sink != nil {
		e.sink.Record(*c.Log)
	}
}
