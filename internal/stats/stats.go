package stats

import (
	"time"

	"promodo/internal/session"
	"promodo/internal/task"
)

const maxFocusScore = 100

// FocusScore is half the logged work minutes, floored and capped at 100.
func FocusScore(logs []session.Log) int {
	return min(max(WorkMinutes(logs)/2, 0), maxFocusScore)
}

// WorkMinutes sums the nominal minutes of all work logs.
func WorkMinutes(logs []session.Log) int {
	total := 0
	for _, l := range logs {
		if l.Mode == session.Work {
			total += l.DurationMinutes
		}
	}
	return total
}

type Day struct {
	Date    time.Time
	Minutes int
}

type Summary struct {
	TotalFocusMinutes int
	WorkSessions      int
	CompletedTasks    int
	PendingTasks      int
	FocusScore        int
	Weekly            []Day
}

// Summarize aggregates the history and task board for the analytics
// screen. Weekly covers the seven calendar days ending on now, oldest first.
func Summarize(logs []session.Log, tasks []task.Task, now time.Time) Summary {
	s := Summary{
		TotalFocusMinutes: WorkMinutes(logs),
		FocusScore:        FocusScore(logs),
		Weekly:            make([]Day, 7),
	}
	for _, l := range logs {
		if l.Mode == session.Work {
			s.WorkSessions++
		}
	}
	for _, t := range tasks {
		if t.Completed {
			s.CompletedTasks++
		} else {
			s.PendingTasks++
		}
	}

	for i := range s.Weekly {
		day := now.AddDate(0, 0, i-6)
		s.Weekly[i].Date = day
		for _, l := range logs {
			if l.Mode == session.Work && session.SameDay(l.StartedAt, day) {
				s.Weekly[i].Minutes += l.DurationMinutes
			}
		}
	}
	return s
}

// Best returns the largest daily total in the week, for chart scaling.
func (s Summary) Best() int {
	best := 0
	for _, d := range s.Weekly {
		best = max(best, d.Minutes)
	}
	return best
}
