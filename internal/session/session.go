package session

import (
	"fmt"
	"time"
)

// Mode is the kind of countdown the timer currently represents.
type Mode string

const (
	Work       Mode = "work"
	ShortBreak Mode = "shortBreak"
	LongBreak  Mode = "longBreak"
)

// Modes lists every mode in display order.
var Modes = []Mode{Work, ShortBreak, LongBreak}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown timer mode %q", s)
}

func (m Mode) IsBreak() bool {
	return m == ShortBreak || m == LongBreak
}

func (m Mode) Label() string {
	switch m {
	case Work:
		return "Focus"
	case ShortBreak:
		return "Short Break"
	case LongBreak:
		return "Long Break"
	}
	return string(m)
}

// Log represents one finished session. Logs are never mutated after they
// are appended to the history.
type Log struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"startTime"`
	EndedAt         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Mode            Mode      `json:"mode"`
	Completed       bool      `json:"completed"`
	TaskIDs         []string  `json:"tasksCompletedIds"`
}

// SameDay reports whether a and b fall on the same calendar day in the
// location of b.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats the calendar day of t in its own location.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WorkSessionsOn counts work logs that started on the calendar day of day.
func WorkSessionsOn(logs []Log, day time.Time) int {
	n := 0
	for _, l := range logs {
		if l.Mode == Work && SameDay(l.StartedAt, day) {
			n++
		}
	}
	return n
}
