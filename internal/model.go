package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"promodo/internal/cloud"
	"promodo/internal/planner"
	"promodo/internal/playback"
	"promodo/internal/recorder"
	"promodo/internal/session"
	"promodo/internal/sound"
	"promodo/internal/stats"
	"promodo/internal/store"
	"promodo/internal/task"
	"promodo/internal/timer"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// MsgTick is sent by the host about once a second.
type MsgTick struct {
	At time.Time
}

type planMsg struct {
	plan string
	err  error
}

type breakdownMsg struct {
	taskID string
	titles []string
	err    error
}

type authMsg struct {
	user *cloud.User
	snap *cloud.Snapshot
	err  error
}

type backupMsg struct {
	err error
}

type playerMsg struct {
	state playback.State
	ok    bool
}

type playbackErrMsg struct {
	err error
}

type playlistsMsg struct {
	playlists []playback.Playlist
	err       error
}

// controlMsg carries the player state after a manual control.
type controlMsg struct {
	state  playback.State
	status string
	err    error
}

type screen int

const (
	screenTimer screen = iota
	screenHistory
	screenStats
	screenMusic
)

// Deps are the collaborators the host wires into the UI. Only Repo and
// Engine are required.
type Deps struct {
	Repo         *store.Repository
	Engine       *timer.Engine
	Recorder     *recorder.Recorder
	Planner      *planner.Planner
	Accounts     *cloud.Accounts
	Sync         *cloud.Sync
	Automation   *playback.Automation
	Player       playback.Player
	PlayerStates <-chan playback.State
	Sound        sound.Player
	Streak       int
	Timeout      time.Duration
}

type Model struct {
	Board         *task.Board
	History       []session.Log
	Streak        int
	SelectedIndex int
	Screen        screen
	Form          *Form
	Status        string
	Err           error

	Plan        string
	PlanLoading bool
	Breakdown   string // id of the task waiting on an AI breakdown
	Syncing     bool
	User        *cloud.User
	Player      playback.State

	Playlists        []playback.Playlist
	PlaylistIndex    int
	PlaylistsLoading bool

	LogViewScroll int

	repo         *store.Repository
	engine       *timer.Engine
	recorder     *recorder.Recorder
	planner      *planner.Planner
	accounts     *cloud.Accounts
	sync         *cloud.Sync
	automation   *playback.Automation
	player       playback.Player
	playerStates <-chan playback.State
	sound        sound.Player
	timeout      time.Duration
	markdown     *glamour.TermRenderer
	bar          progress.Model

	appliedRunning bool
	appliedMode    session.Mode
}

func NewModel(deps Deps) (*Model, error) {
	if deps.Repo == nil || deps.Engine == nil {
		return nil, errors.New("store and timer are required")
	}

	tasks, err := deps.Repo.LoadTasks()
	if err != nil {
		log.Printf("load tasks: %v", err)
		tasks = nil
	}
	history, err := deps.Repo.ListSessions()
	if err != nil {
		log.Printf("load history: %v", err)
		history = nil
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(70),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	m := &Model{
		Board:        task.NewBoard(tasks),
		History:      history,
		Streak:       deps.Streak,
		repo:         deps.Repo,
		engine:       deps.Engine,
		recorder:     deps.Recorder,
		planner:      deps.Planner,
		accounts:     deps.Accounts,
		sync:         deps.Sync,
		automation:   deps.Automation,
		player:       deps.Player,
		playerStates: deps.PlayerStates,
		sound:        deps.Sound,
		timeout:      timeout,
		markdown:     md,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(36), progress.WithoutPercentage()),
		appliedMode:  deps.Engine.State().Mode,
	}
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	if m.playerStates == nil {
		return nil
	}
	return m.waitForPlayer()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, tea.Batch(cmd, m.playbackCmd())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case MsgTick:
		if c, done := m.engine.Tick(msg.At); done {
			m.onComplete(c)
		}
		return nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return nil
	case planMsg:
		m.PlanLoading = false
		if msg.err != nil {
			log.Printf("daily plan: %v", msg.err)
			m.Err = errors.New("could not generate a plan right now, try again later")
			return nil
		}
		m.Plan = m.renderMarkdown(msg.plan)
	case breakdownMsg:
		m.Breakdown = ""
		if msg.err != nil {
			log.Printf("task breakdown: %v", msg.err)
			m.Err = errors.New("could not break down the task")
			return nil
		}
		if t := m.Board.Find(msg.taskID); t != nil {
			n := t.AppendSubtasks(msg.titles)
			m.Status = fmt.Sprintf("Added %d subtasks to %q", n, t.Title)
			m.saveTask(t)
		}
	case authMsg:
		m.Syncing = false
		if msg.user != nil {
			// A failed restore still leaves the account signed in.
			m.User = msg.user
			if m.recorder != nil {
				m.recorder.SetBackup(m.sync)
			}
		}
		if msg.err != nil {
			m.Err = msg.err
			return nil
		}
		m.Err = nil
		if msg.snap != nil {
			m.applySnapshot(msg.snap)
			m.Status = "Restored your data from backup"
		} else {
			m.Status = "Signed in, local data backed up"
		}
	case backupMsg:
		m.Syncing = false
		if msg.err != nil {
			log.Printf("backup: %v", msg.err)
			m.Err = errors.New("backup failed")
			return nil
		}
		m.Status = "Backup complete"
	case playerMsg:
		if !msg.ok {
			m.playerStates = nil
			return nil
		}
		m.Player = msg.state
		if m.automation != nil {
			m.automation.Observe(msg.state)
		}
		return m.waitForPlayer()
	case playbackErrMsg:
		log.Printf("playback: %v", msg.err)
	case playlistsMsg:
		m.PlaylistsLoading = false
		if msg.err != nil {
			log.Printf("list playlists: %v", msg.err)
			m.Err = errors.New("could not load your playlists")
			return nil
		}
		m.Playlists = msg.playlists
		m.PlaylistIndex = 0
	case controlMsg:
		if msg.err != nil {
			log.Printf("player control: %v", msg.err)
			m.Err = errors.New("no response from Spotify, is a device active?")
			return nil
		}
		m.Player = msg.state
		m.Status = msg.status
		if m.automation != nil {
			m.automation.Observe(msg.state)
		}
	}
	return nil
}

func (m *Model) View() string {
	if m.Form != nil {
		return m.formView()
	}
	switch m.Screen {
	case screenHistory:
		return m.historyView()
	case screenStats:
		return m.statsView()
	case screenMusic:
		return m.musicView()
	}
	return m.mainView()
}

func (m *Model) SelectedTask() *task.Task {
	return m.Board.At(m.SelectedIndex)
}

func (m *Model) FocusScore() int {
	return stats.FocusScore(m.History)
}

// WorkSessionsToday counts today's logged work sessions.
func (m *Model) WorkSessionsToday() int {
	return session.WorkSessionsOn(m.History, time.Now())
}

func (m *Model) cue(c sound.Cue) {
	if m.sound != nil {
		m.sound.Play(c)
	}
}

func (m *Model) onComplete(c timer.Completion) {
	m.cue(sound.End)
	if c.Log != nil {
		m.History = append(m.History, *c.Log)
	}
	verb := "complete"
	if c.Skipped {
		verb = "skipped"
	}
	next := "paused"
	if c.AutoStarted {
		next = "started"
	}
	m.Status = fmt.Sprintf("%s %s. %s %s.", c.Mode.Label(), verb, c.Next.Label(), next)
}

func (m *Model) applySnapshot(snap *cloud.Snapshot) {
	m.Board = task.NewBoard(snap.Tasks)
	m.History = append([]session.Log(nil), snap.History...)
	m.engine.SetConfig(snap.Config)
	if m.SelectedIndex >= m.Board.Len() {
		m.SelectedIndex = max(m.Board.Len()-1, 0)
	}
}

func (m *Model) saveTasks() {
	if err := m.repo.SaveTasks(m.Board.Snapshot()); err != nil {
		log.Printf("save tasks: %v", err)
		m.Err = errors.New("could not save tasks")
	}
}

// saveTask persists a single edited task in place.
func (m *Model) saveTask(t *task.Task) {
	for i, bt := range m.Board.Tasks {
		if bt == t {
			if err := m.repo.PutTask(i, t); err != nil {
				log.Printf("save task %s: %v", t.ID, err)
				m.Err = errors.New("could not save task")
			}
			return
		}
	}
}

func (m *Model) AddTask(title string, priority task.Priority) {
	m.Board.Add(task.New(title, priority, time.Now()))
	m.SelectedIndex = 0
	m.saveTasks()
}

func (m *Model) DeleteTask(id string) {
	if !m.Board.Remove(id) {
		return
	}
	if m.SelectedIndex >= m.Board.Len() {
		m.SelectedIndex = max(m.Board.Len()-1, 0)
	}
	if err := m.repo.DeleteTask(id); err != nil {
		log.Printf("delete task %s: %v", id, err)
		m.Err = errors.New("could not delete task")
	}
}

func (m *Model) SaveConfig(cfg session.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := m.repo.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	m.engine.SetConfig(cfg)
	return nil
}

func (m *Model) Close() error {
	if m.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.recorder.Wait(ctx); err != nil {
			log.Printf("pending backups: %v", err)
		}
	}
	return m.repo.Close()
}

func (m *Model) renderMarkdown(s string) string {
	out, err := m.markdown.Render(s)
	if err != nil {
		return s
	}
	return out
}

// --- Commands ---

func (m *Model) waitForPlayer() tea.Cmd {
	ch := m.playerStates
	return func() tea.Msg {
		s, ok := <-ch
		return playerMsg{state: s, ok: ok}
	}
}

// playbackCmd reconciles the music player whenever the timer's running
// flag or mode changed since the last reconciliation.
func (m *Model) playbackCmd() tea.Cmd {
	st := m.engine.State()
	if st.Running == m.appliedRunning && st.Mode == m.appliedMode {
		return nil
	}
	m.appliedRunning, m.appliedMode = st.Running, st.Mode
	if m.automation == nil {
		return nil
	}
	automation, cfg, timeout := m.automation, m.engine.Config(), m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := automation.Apply(ctx, st.Running, st.Mode, cfg); err != nil {
			return playbackErrMsg{err: err}
		}
		return nil
	}
}

func (m *Model) playlistsCmd() tea.Cmd {
	m.PlaylistsLoading = true
	player, timeout := m.player, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		lists, err := player.Playlists(ctx)
		return playlistsMsg{playlists: lists, err: err}
	}
}

// controlCmd runs a manual player command and reads back the new state.
func (m *Model) controlCmd(status string, do func(context.Context, playback.Player) error) tea.Cmd {
	player, timeout := m.player, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := do(ctx, player); err != nil {
			return controlMsg{err: err}
		}
		state, err := player.State(ctx)
		return controlMsg{state: state, status: status, err: err}
	}
}

func (m *Model) dailyPlanCmd() tea.Cmd {
	if m.planner == nil {
		m.Plan = m.renderMarkdown("Please configure your API key (`GEMINI_API_KEY`) to get a daily plan.")
		return nil
	}
	m.PlanLoading = true
	p, tasks, score, timeout := m.planner, m.Board.Snapshot(), m.FocusScore(), m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		plan, err := p.SuggestDailyPlan(ctx, tasks, score)
		return planMsg{plan: plan, err: err}
	}
}

func (m *Model) breakdownCmd(t *task.Task) tea.Cmd {
	if m.planner == nil {
		m.Err = planner.ErrNoAPIKey
		return nil
	}
	m.Breakdown = t.ID
	p, id, title, timeout := m.planner, t.ID, t.Title, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		titles, err := p.BreakDownTask(ctx, title)
		return breakdownMsg{taskID: id, titles: titles, err: err}
	}
}

func (m *Model) authCmd(signup bool, name, email, password string) tea.Cmd {
	if m.accounts == nil || m.sync == nil {
		m.Err = errors.New("cloud backup is not configured")
		return nil
	}
	m.Syncing = true
	accounts, sync, timeout := m.accounts, m.sync, m.timeout
	return func() tea.Msg {
		var user cloud.User
		var err error
		if signup {
			user, err = accounts.Signup(email, password, name)
		} else {
			user, err = accounts.Login(email, password)
		}
		if err != nil {
			return authMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := sync.Restore(ctx, user)
		if err != nil {
			log.Printf("restore for %s: %v", user.ID, err)
			return authMsg{user: &user, err: errors.New("signed in, but sync failed")}
		}
		return authMsg{user: &user, snap: snap}
	}
}

func (m *Model) backupCmd() tea.Cmd {
	if m.sync == nil || m.User == nil {
		m.Err = cloud.ErrSignedOut
		return nil
	}
	m.Syncing = true
	sync, timeout := m.sync, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return backupMsg{err: sync.Backup(ctx)}
	}
}

// --- Input ---

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.Form != nil {
		return m.handleFormInput(msg)
	}

	switch m.Screen {
	case screenHistory:
		return m.handleLogViewInput(msg)
	case screenStats:
		switch msg.String() {
		case "ctrl+c", "q", "esc", "a":
			m.Screen = screenTimer
		}
		return nil
	case screenMusic:
		return m.handleMusicInput(msg)
	}

	m.Err = nil
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "esc":
		m.Plan = ""
		m.Err = nil
		m.Status = ""
	case " ":
		m.engine.Toggle()
		if m.engine.Running() {
			m.cue(sound.Start)
		}
	case "r":
		m.engine.Reset()
	case "s":
		m.onComplete(m.engine.Skip())
	case "1":
		m.engine.SwitchMode(session.Work)
	case "2":
		m.engine.SwitchMode(session.ShortBreak)
	case "3":
		m.engine.SwitchMode(session.LongBreak)
	case "up", "k":
		if m.SelectedIndex > 0 {
			m.SelectedIndex--
		}
	case "down", "j":
		if m.SelectedIndex < m.Board.Len()-1 {
			m.SelectedIndex++
		}
	case "enter", "x":
		if t := m.SelectedTask(); t != nil {
			t.Toggle(time.Now())
			m.saveTask(t)
		}
	case "t":
		if t := m.SelectedTask(); t != nil {
			m.toggleNextSubtask(t)
		}
	case "d":
		if t := m.SelectedTask(); t != nil {
			m.DeleteTask(t.ID)
		}
	case "n":
		m.Form = newForm(formTask, "New Task",
			formField{label: "Title", placeholder: "What needs doing?", limit: 200},
			formField{label: "Priority (l/m/h)", value: "m", limit: 6},
		)
	case "b":
		if t := m.SelectedTask(); t != nil && m.Breakdown == "" {
			return m.breakdownCmd(t)
		}
	case "p":
		if !m.PlanLoading {
			return m.dailyPlanCmd()
		}
	case "c":
		m.Form = m.settingsForm()
	case "l":
		history, err := m.repo.ListSessions()
		if err == nil {
			m.History = history
		} else {
			log.Printf("load history: %v", err)
		}
		m.Screen = screenHistory
		m.LogViewScroll = 0
	case "a":
		m.Screen = screenStats
	case "m":
		if m.player == nil {
			m.Err = errors.New("not connected to Spotify, set SPOTIFY_TOKEN")
			return nil
		}
		m.Screen = screenMusic
		if m.Playlists == nil && !m.PlaylistsLoading {
			return m.playlistsCmd()
		}
	case "i":
		if m.User == nil {
			m.Form = newForm(formSignIn, "Sign In",
				formField{label: "Email", limit: 120},
				formField{label: "Password", secret: true, limit: 120},
			)
		}
	case "u":
		if m.User == nil {
			m.Form = newForm(formSignUp, "Create Account",
				formField{label: "Name", limit: 60},
				formField{label: "Email", limit: 120},
				formField{label: "Password", secret: true, limit: 120},
			)
		}
	case "o":
		if m.User != nil && m.sync != nil {
			m.sync.SignOut()
			if m.recorder != nil {
				m.recorder.SetBackup(nil)
			}
			m.User = nil
			m.Status = "Signed out. Local data kept."
		}
	case "y":
		if !m.Syncing {
			return m.backupCmd()
		}
	}
	return nil
}

// toggleNextSubtask checks off the first open subtask, or reopens them all
// once every subtask is done.
func (m *Model) toggleNextSubtask(t *task.Task) {
	done, total := t.SubtaskProgress()
	if total == 0 {
		return
	}
	if done == total {
		for _, st := range t.Subtasks {
			t.ToggleSubtask(st.ID)
		}
	} else {
		for _, st := range t.Subtasks {
			if !st.Completed {
				t.ToggleSubtask(st.ID)
				break
			}
		}
	}
	m.saveTask(t)
}

func (m *Model) settingsForm() *Form {
	cfg := m.engine.Config()
	return newForm(formSettings, "Settings",
		formField{label: "Focus (min)", value: fmt.Sprint(cfg.WorkMinutes), digits: true, limit: 3},
		formField{label: "Short break (min)", value: fmt.Sprint(cfg.ShortBreakMinutes), digits: true, limit: 3},
		formField{label: "Long break (min)", value: fmt.Sprint(cfg.LongBreakMinutes), digits: true, limit: 3},
		formField{label: "Auto-start breaks (y/n)", value: yesNo(cfg.AutoStartBreaks), limit: 3},
		formField{label: "Auto-start focus (y/n)", value: yesNo(cfg.AutoStartWork), limit: 3},
		formField{label: "Focus playlist", value: cfg.SpotifyWorkPlaylist, placeholder: "spotify:playlist:…", limit: 200},
		formField{label: "Break playlist", value: cfg.SpotifyBreakPlaylist, placeholder: "spotify:playlist:…", limit: 200},
	)
}

func (m *Model) handleLogViewInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q", "esc", "l":
		m.Screen = screenTimer
	case "up", "k":
		if m.LogViewScroll > 0 {
			m.LogViewScroll--
		}
	case "down", "j":
		maxScroll := max(len(m.History)-1, 0)
		if m.LogViewScroll < maxScroll {
			m.LogViewScroll++
		}
	}
	return nil
}

func (m *Model) handleMusicInput(msg tea.KeyMsg) tea.Cmd {
	m.Err = nil
	switch msg.String() {
	case "ctrl+c", "q", "esc", "m":
		m.Screen = screenTimer
	case "up", "k":
		if m.PlaylistIndex > 0 {
			m.PlaylistIndex--
		}
	case "down", "j":
		if m.PlaylistIndex < len(m.Playlists)-1 {
			m.PlaylistIndex++
		}
	case "w", "b":
		if m.PlaylistIndex >= len(m.Playlists) {
			return nil
		}
		pl := m.Playlists[m.PlaylistIndex]
		cfg := m.engine.Config()
		which := "Focus"
		if msg.String() == "w" {
			cfg.SpotifyWorkPlaylist = pl.URI
		} else {
			cfg.SpotifyBreakPlaylist = pl.URI
			which = "Break"
		}
		if err := m.SaveConfig(cfg); err != nil {
			m.Err = err
			return nil
		}
		m.Status = fmt.Sprintf("%s playlist set to %s", which, pl.Name)
	case "r":
		return m.playlistsCmd()
	case " ":
		if m.Player.Playing {
			return m.controlCmd("Paused", func(ctx context.Context, p playback.Player) error {
				return p.Pause(ctx)
			})
		}
		return m.controlCmd("Playing", func(ctx context.Context, p playback.Player) error {
			return p.Resume(ctx)
		})
	case ">", "n":
		return m.controlCmd("Next track", func(ctx context.Context, p playback.Player) error {
			return p.Next(ctx)
		})
	case "<", "p":
		return m.controlCmd("Previous track", func(ctx context.Context, p playback.Player) error {
			return p.Previous(ctx)
		})
	case "+", "=", "-":
		step := 10
		if msg.String() == "-" {
			step = -10
		}
		volume := playback.ClampVolume(m.Player.Volume + step)
		return m.controlCmd(fmt.Sprintf("Volume %d%%", volume), func(ctx context.Context, p playback.Player) error {
			return p.SetVolume(ctx, volume)
		})
	case "]", "[":
		delta := 15 * time.Second
		if msg.String() == "[" {
			delta = -delta
		}
		pos := playback.SeekTarget(m.Player, delta)
		return m.controlCmd("Seek "+formatDuration(pos), func(ctx context.Context, p playback.Player) error {
			return p.Seek(ctx, pos)
		})
	}
	return nil
}

func (m *Model) handleFormInput(msg tea.KeyMsg) tea.Cmd {
	f := m.Form
	submit, cancel, cmd := f.Update(msg)
	if cancel {
		m.Form = nil
		return nil
	}
	if !submit {
		return cmd
	}

	switch f.kind {
	case formTask:
		title := f.Value(0)
		if title == "" {
			m.Form = nil
			return nil
		}
		priority, err := task.ParsePriority(f.Value(1))
		if err != nil {
			m.Err = err
			return nil
		}
		m.AddTask(title, priority)
	case formSettings:
		cfg := m.engine.Config()
		var err error
		if cfg.WorkMinutes, err = f.Int(0); err != nil {
			m.Err = err
			return nil
		}
		if cfg.ShortBreakMinutes, err = f.Int(1); err != nil {
			m.Err = err
			return nil
		}
		if cfg.LongBreakMinutes, err = f.Int(2); err != nil {
			m.Err = err
			return nil
		}
		cfg.AutoStartBreaks = f.Bool(3)
		cfg.AutoStartWork = f.Bool(4)
		cfg.SpotifyWorkPlaylist = f.Value(5)
		cfg.SpotifyBreakPlaylist = f.Value(6)
		if err := m.SaveConfig(cfg); err != nil {
			m.Err = err
			return nil
		}
		m.Status = "Settings saved"
	case formSignIn:
		m.Form = nil
		return m.authCmd(false, "", f.Value(0), f.inputs[1].Value())
	case formSignUp:
		m.Form = nil
		return m.authCmd(true, f.Value(0), f.Value(1), f.inputs[2].Value())
	}
	m.Err = nil
	m.Form = nil
	return nil
}
