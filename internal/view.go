package internal

import (
	"fmt"
	"strings"
	"time"

	"promodo/internal/session"
	"promodo/internal/stats"
	"promodo/internal/task"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	taskItemSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	timerDisplayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("69")).
				Bold(true)

	timerRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 0)

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	inputInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	logTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("69"))
)

var modeColors = map[session.Mode]lipgloss.Color{
	session.Work:       lipgloss.Color("203"),
	session.ShortBreak: lipgloss.Color("78"),
	session.LongBreak:  lipgloss.Color("75"),
}

var priorityColors = map[task.Priority]lipgloss.Color{
	task.High:   lipgloss.Color("203"),
	task.Medium: lipgloss.Color("214"),
	task.Low:    lipgloss.Color("78"),
}

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Width(80).Render("Promodo"))
	sb.WriteString("\n\n")

	boxes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.timerView(),
		"  ",
		m.taskListView(),
	)
	sb.WriteString(boxes)
	sb.WriteString("\n")

	if m.Plan != "" || m.PlanLoading {
		sb.WriteString(m.planView())
		sb.WriteString("\n")
	}

	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Space: Start/Pause | r: Reset | s: Skip | 1/2/3: Mode | n: New | x: Done | t: Subtask | d: Delete | b: Breakdown | p: Plan"))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("l: History | a: Analytics | m: Music | c: Settings | i/u: Sign in/up | o: Sign out | y: Backup | q: Quit"))

	return sb.String()
}

func (m *Model) timerView() string {
	st := m.engine.State()

	var sb strings.Builder
	for _, mode := range session.Modes {
		label := " " + mode.Label() + " "
		if mode == st.Mode {
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color("235")).
				Background(modeColors[mode]).
				Bold(true).
				Render(label))
		} else {
			sb.WriteString(inactiveStyle.Render(label))
		}
	}
	sb.WriteString("\n\n")

	clock := formatDuration(st.TimeLeft)
	if st.Running {
		sb.WriteString(timerRunningStyle.Render(clock))
	} else {
		sb.WriteString(timerDisplayStyle.Render(clock))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.bar.ViewAs(st.Progress()))
	sb.WriteString("\n\n")

	status := "Paused"
	statusStyle := inactiveStyle
	if st.Running {
		status = "Running"
		statusStyle = runningStyle
	}
	sb.WriteString(statusStyle.Render(status))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Sessions today: %d\n", m.WorkSessionsToday()))
	sb.WriteString(fmt.Sprintf("Focus score: %d  Streak: %d day(s)\n", m.FocusScore(), m.Streak))

	if m.Player.Connected {
		sb.WriteString("\n")
		sb.WriteString(m.playerLine())
	}

	return boxStyle.Width(40).Height(15).Render(sb.String())
}

func (m *Model) playerLine() string {
	if m.Player.Track == "" {
		return inactiveStyle.Render("♪ nothing playing")
	}
	icon := "❚❚"
	if m.Player.Playing {
		icon = "▶"
	}
	line := fmt.Sprintf("%s %s", icon, m.Player.Track)
	if m.Player.Artist != "" {
		line += " · " + m.Player.Artist
	}
	return logTagStyle.Render(truncate(line, 38))
}

func (m *Model) taskListView() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Tasks (%d pending, %d done)\n\n", m.Board.Pending(), m.Board.Done()))

	if m.Board.Len() == 0 {
		sb.WriteString(inactiveStyle.Render("No tasks yet. Press 'n' to add one."))
		return boxStyle.Width(38).Height(15).Render(sb.String())
	}

	for i := 0; i < m.Board.Len(); i++ {
		t := m.Board.At(i)
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %s", check, truncate(t.Title, 24))
		if done, total := t.SubtaskProgress(); total > 0 {
			line += fmt.Sprintf(" %d/%d", done, total)
		}
		if m.Breakdown == t.ID {
			line += " …"
		}

		dot := lipgloss.NewStyle().Foreground(priorityColors[t.Priority]).Render("●")
		if i == m.SelectedIndex {
			sb.WriteString(dot + taskItemSelectedStyle.Render(line))
		} else if t.Completed {
			sb.WriteString(dot + taskItemStyle.Render(inactiveStyle.Render(line)))
		} else {
			sb.WriteString(dot + taskItemStyle.Render(line))
		}
		sb.WriteString("\n")

		if i == m.SelectedIndex {
			for _, st := range t.Subtasks {
				mark := "·"
				if st.Completed {
					mark = "✓"
				}
				sb.WriteString(inactiveStyle.Render(fmt.Sprintf("     %s %s", mark, truncate(st.Title, 28))))
				sb.WriteString("\n")
			}
		}
	}

	return boxStyle.Width(38).Height(15).Render(sb.String())
}

func (m *Model) planView() string {
	if m.PlanLoading {
		return inactiveStyle.Render("Thinking about your day…")
	}
	return boxStyle.Width(80).Render(logHeaderStyle.Render("Daily Plan") + "\n" + strings.TrimRight(m.Plan, "\n"))
}

func (m *Model) statusLine() string {
	switch {
	case m.Err != nil:
		return errorStyle.Render("Error: " + m.Err.Error())
	case m.Syncing:
		return inactiveStyle.Render("Syncing…")
	case m.Status != "":
		return runningStyle.Render(m.Status)
	case m.User != nil:
		return inactiveStyle.Render("Signed in as " + m.User.Email)
	}
	return ""
}

func (m *Model) formView() string {
	f := m.Form
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(48).Render(f.title))
	sb.WriteString("\n\n")

	for i, label := range f.labels {
		// Add a visible focus marker so it's obvious which field is active.
		marker := "  "
		style := inputInactiveStyle
		if i == f.focus {
			marker = "→ "
			style = inputStyle
		}
		sb.WriteString(style.Render(marker + label + ": "))
		sb.WriteString(f.inputs[i].View())
		sb.WriteString("\n\n")
	}

	if m.Err != nil {
		sb.WriteString(errorStyle.Render(m.Err.Error()))
		sb.WriteString("\n\n")
	}
	sb.WriteString(helpStyle.Render("Tab: Next field | Enter: Next/Save | Esc: Cancel"))

	return lipgloss.Place(
		80, 24,
		lipgloss.Center, lipgloss.Center,
		boxStyle.Width(56).Padding(0, 1).Render(sb.String()),
	)
}

func (m *Model) historyView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(80).Render("Session History"))
	sb.WriteString("\n\n")

	if len(m.History) == 0 {
		sb.WriteString(inactiveStyle.Render("No sessions yet. Finish a focus session to see it here."))
	} else {
		// newest first
		const pageSize = 15
		end := len(m.History) - m.LogViewScroll
		start := max(end-pageSize, 0)
		for i := end - 1; i >= start; i-- {
			sb.WriteString(m.formatLogEntry(m.History[i]))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(inactiveStyle.Render(fmt.Sprintf("%d sessions, %d focus minutes", len(m.History), stats.WorkMinutes(m.History))))
	}

	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("Up/Down: Scroll | Esc: Back"))
	return sb.String()
}

func (m *Model) formatLogEntry(l session.Log) string {
	timeStr := logTimeStyle.Render(l.StartedAt.Local().Format("Jan 02 15:04"))
	dur := formatDuration(time.Duration(l.DurationMinutes) * time.Minute)
	tag := logTagStyle.Render("[" + l.Mode.Label() + "]")
	state := ""
	if !l.Completed {
		state = " " + inactiveStyle.Render("(incomplete)")
	}
	return fmt.Sprintf("  %s  %s %s%s", timeStr, dur, tag, state)
}

func (m *Model) musicView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(80).Render("Music"))
	sb.WriteString("\n\n")

	if m.Player.Connected {
		sb.WriteString(m.playerLine())
		sb.WriteString("\n")
		if m.Player.Duration > 0 {
			sb.WriteString(inactiveStyle.Render(fmt.Sprintf("%s / %s  Volume %d%%",
				formatDuration(m.Player.Progress), formatDuration(m.Player.Duration), m.Player.Volume)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	cfg := m.engine.Config()
	switch {
	case m.PlaylistsLoading:
		sb.WriteString(inactiveStyle.Render("Loading your playlists…"))
		sb.WriteString("\n")
	case len(m.Playlists) == 0:
		sb.WriteString(inactiveStyle.Render("No playlists found."))
		sb.WriteString("\n")
	default:
		for i, pl := range m.Playlists {
			tag := ""
			switch pl.URI {
			case cfg.SpotifyWorkPlaylist:
				tag = " " + logTagStyle.Render("[Focus]")
			case cfg.SpotifyBreakPlaylist:
				tag = " " + logTagStyle.Render("[Break]")
			}
			line := fmt.Sprintf("%s (%d tracks)", truncate(pl.Name, 50), pl.Tracks)
			if i == m.PlaylistIndex {
				sb.WriteString(taskItemSelectedStyle.Render(line))
			} else {
				sb.WriteString(taskItemStyle.Render(line))
			}
			sb.WriteString(tag)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("w: Use for focus | b: Use for breaks | Space: Play/Pause | </>: Prev/Next | -/+: Volume | [/]: Seek | r: Refresh | Esc: Back"))
	return sb.String()
}

func (m *Model) statsView() string {
	s := stats.Summarize(m.History, m.Board.Snapshot(), time.Now())

	var sb strings.Builder
	sb.WriteString(titleStyle.Width(80).Render("Analytics"))
	sb.WriteString("\n\n")

	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		statCard("Focus minutes", s.TotalFocusMinutes),
		" ",
		statCard("Sessions", s.WorkSessions),
		" ",
		statCard("Tasks done", s.CompletedTasks),
		" ",
		statCard("Focus score", s.FocusScore),
	)
	sb.WriteString(cards)
	sb.WriteString("\n\n")
	sb.WriteString(logHeaderStyle.Render("Last 7 days"))
	sb.WriteString("\n")
	sb.WriteString(weeklyChart(s))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Esc: Back"))
	return sb.String()
}

func statCard(label string, value int) string {
	return boxStyle.Width(18).Align(lipgloss.Center).Render(
		timerDisplayStyle.Render(fmt.Sprint(value)) + "\n" + inactiveStyle.Render(label),
	)
}

func weeklyChart(s stats.Summary) string {
	const width = 50
	best := s.Best()

	var sb strings.Builder
	for _, d := range s.Weekly {
		n := 0
		if best > 0 {
			n = d.Minutes * width / best
		}
		sb.WriteString(logTimeStyle.Render(d.Date.Format("Mon 02")))
		sb.WriteString(" ")
		sb.WriteString(barStyle.Render(strings.Repeat("█", n)))
		sb.WriteString(fmt.Sprintf(" %dm\n", d.Minutes))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
