package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/auth"
	"github.com/centennial-infotech/portal/internal/form"
	"github.com/centennial-infotech/portal/internal/notification"
	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
	"github.com/centennial-infotech/portal/internal/shell"
)

// Backend is the part of the API client the screens read from.
type Backend interface {
	Profile(ctx context.Context) (*api.User, error)
	Jobs(ctx context.Context) ([]api.JobPost, error)
	Apply(ctx context.Context, jobID string) error
	JobPosts(ctx context.Context) ([]api.JobPost, error)
	JobPostApplications(ctx context.Context, id string) ([]api.Application, error)
	Users(ctx context.Context) ([]api.User, error)
	CurrentSubscription(ctx context.Context) (*api.SubscriptionStatus, error)
}

// Deps wires the model to the session and the services around it.
type Deps struct {
	Session *session.Context
	Router  *router.Router
	Shell   *shell.Shell
	Auth    *auth.Service
	Backend Backend
	// Feed is optional; without it the notifications screen stays empty.
	Feed *notification.Feed
}

// Item is one row of a list screen.
type Item struct {
	ID     string
	Title  string
	Detail string
	Unread bool
}

// NavigatedMsg reports a committed navigation.
type NavigatedMsg struct {
	Location router.Location
}

// SessionMsg reports a session change.
type SessionMsg struct {
	Snapshot session.Snapshot
}

// FeedMsg reports that the notification list changed.
type FeedMsg struct{}

type loadedMsg struct {
	seq   uint64
	items []Item
	err   error
}

type loginMsg struct {
	err error
}

type actionMsg struct {
	seq    uint64
	status string
	err    error
}

// Model represents the TUI application state
type Model struct {
	ctx  context.Context
	deps Deps

	// Session and routing state
	loc   router.Location
	snap  session.Snapshot
	links []shell.Link

	// Screen state. seq changes on every navigation so results loaded for
	// an earlier screen are dropped.
	seq         uint64
	items       []Item
	cursor      int
	loading     bool
	status      string
	lastError   string
	fieldErrors form.FieldErrors

	// Login form
	inputs  []textinput.Model
	focus   int
	editing bool

	// UI state
	spinner  spinner.Model
	help     help.Model
	width    int
	height   int
	quitting bool
	styles   Styles
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, deps Deps) Model {
	snap := deps.Session.Snapshot()
	return Model{
		ctx:     ctx,
		deps:    deps,
		loc:     deps.Router.Current(),
		snap:    snap,
		links:   shell.Links(snap.Access),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		styles:  DefaultStyles(),
	}
}

// Init loads the screen for the current location (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	loc := m.loc
	return tea.Batch(
		func() tea.Msg { return NavigatedMsg{Location: loc} },
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case NavigatedMsg:
		return m.navigated(msg.Location)

	case SessionMsg:
		m.snap = msg.Snapshot
		m.links = shell.Links(m.snap.Access)
		return m, nil

	case FeedMsg:
		if m.loc.Route.Pattern == "/notifications" && m.deps.Feed != nil {
			m.items = notificationItems(m.deps.Feed.Items())
			m.clampCursor()
		}
		return m, nil

	case loadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.lastError = errorText(msg.err)
			m.items = nil
		} else {
			m.items = msg.items
		}
		m.clampCursor()
		return m, nil

	case loginMsg:
		m.loading = false
		if msg.err == nil {
			m.status = "Signed in"
			return m, nil
		}
		if fe, ok := form.FieldsOf(msg.err); ok {
			m.fieldErrors = fe
			return m, nil
		}
		m.lastError = errorText(msg.err)
		return m, nil

	case actionMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.lastError = errorText(msg.err)
		} else {
			m.lastError = ""
			m.status = msg.status
		}
		if m.loc.Route.Pattern == "/notifications" && m.deps.Feed != nil {
			m.items = notificationItems(m.deps.Feed.Items())
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m.updateInput(msg)
}

// navigated resets the screen for loc and starts loading its data.
func (m Model) navigated(loc router.Location) (tea.Model, tea.Cmd) {
	if m.seq > 0 && loc.Path == m.loc.Path && loc.Requested == m.loc.Requested {
		return m, nil
	}

	m.loc = loc
	m.seq++
	m.items = nil
	m.cursor = 0
	m.status = ""
	m.lastError = ""
	m.fieldErrors = nil
	m.inputs = nil
	m.editing = false
	m.snap = m.deps.Session.Snapshot()
	m.links = shell.Links(m.snap.Access)

	if loc.Redirected() && loc.Requested != "/" {
		m.status = fmt.Sprintf("%s is not available, showing %s", loc.Requested, loc.Path)
	}

	if isLoginRoute(loc) {
		m.inputs = loginInputs()
		m.focus = 0
		m.editing = true
		return m, m.inputs[0].Focus()
	}
	cmd := m.load()
	return m, cmd
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Abort) {
		m.quitting = true
		return m, tea.Quit
	}

	if m.editing {
		return m.handleFormKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.Reload):
		m.seq++
		m.lastError = ""
		cmd := m.load()
		return m, cmd

	case key.Matches(msg, keys.Nav):
		idx := int(msg.Runes[0] - '1')
		if idx < len(m.links) {
			return m, m.follow(m.links[idx])
		}

	case key.Matches(msg, keys.Logout):
		if m.snap.Session.Authenticated() {
			return m, m.follow(shell.Link{Label: "Logout", Logout: true})
		}

	case key.Matches(msg, keys.Select):
		if isLoginRoute(m.loc) && m.inputs != nil {
			m.editing = true
			return m, m.inputs[m.focus].Focus()
		}
		cmd := m.selectItem()
		return m, cmd
	}

	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		m.editing = false
		m.inputs[m.focus].Blur()
		return m, nil

	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Prev):
		m.inputs[m.focus].Blur()
		if key.Matches(msg, keys.Next) {
			m.focus = (m.focus + 1) % len(m.inputs)
		} else {
			m.focus = (m.focus + len(m.inputs) - 1) % len(m.inputs)
		}
		return m, m.inputs[m.focus].Focus()

	case key.Matches(msg, keys.Select):
		if m.focus < len(m.inputs)-1 {
			m.inputs[m.focus].Blur()
			m.focus++
			return m, m.inputs[m.focus].Focus()
		}
		return m.submitLogin()
	}
	return m.updateInput(msg)
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.editing || len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	m.fieldErrors = nil
	m.lastError = ""
	m.loading = true

	email, password := m.inputs[0].Value(), m.inputs[1].Value()
	admin := m.loc.Route.Pattern == "/admin/login"
	ctx, svc := m.ctx, m.deps.Auth
	return m, func() tea.Msg {
		_, err := svc.Login(ctx, email, password, admin)
		return loginMsg{err: err}
	}
}

// follow runs a navigation off the update loop and reports where it landed.
func (m Model) follow(l shell.Link) tea.Cmd {
	ctx, sh, seq := m.ctx, m.deps.Shell, m.seq
	return func() tea.Msg {
		loc, err := sh.Follow(ctx, l)
		if err != nil {
			return actionMsg{seq: seq, err: err}
		}
		return NavigatedMsg{Location: loc}
	}
}

func (m Model) navigate(path string) tea.Cmd {
	r, seq := m.deps.Router, m.seq
	return func() tea.Msg {
		loc, err := r.Navigate(path)
		if err != nil {
			return actionMsg{seq: seq, err: err}
		}
		return NavigatedMsg{Location: loc}
	}
}

// selectItem performs the screen's action on the highlighted row.
func (m *Model) selectItem() tea.Cmd {
	if m.cursor >= len(m.items) {
		return nil
	}
	it := m.items[m.cursor]
	ctx, seq := m.ctx, m.seq

	switch m.loc.Route.Pattern {
	case "/jobs":
		backend := m.deps.Backend
		m.loading = true
		return func() tea.Msg {
			if err := backend.Apply(ctx, it.ID); err != nil {
				return actionMsg{seq: seq, err: err}
			}
			return actionMsg{seq: seq, status: "Applied to " + it.Title}
		}

	case "/notifications":
		feed := m.deps.Feed
		if feed == nil || !it.Unread {
			return nil
		}
		return func() tea.Msg {
			if err := feed.MarkRead(ctx, it.ID); err != nil {
				return actionMsg{seq: seq, err: err}
			}
			return actionMsg{seq: seq, status: "Marked as read"}
		}

	case "/admin/job-posts":
		return m.navigate("/admin/job-posts/" + it.ID + "/applications")

	case "/subscription":
		m.status = fmt.Sprintf("Run 'portal subscription checkout %s' to subscribe", it.ID)
	}
	return nil
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func isLoginRoute(loc router.Location) bool {
	return loc.Route.Pattern == "/login" || loc.Route.Pattern == "/admin/login"
}

func loginInputs() []textinput.Model {
	email := textinput.New()
	email.Placeholder = "Email"
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return []textinput.Model{email, password}
}

// errorText is the one-line message shown for err.
func errorText(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
