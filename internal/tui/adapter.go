package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/centennial-infotech/portal/internal/router"
	"github.com/centennial-infotech/portal/internal/session"
)

// Adapter forwards router, session and feed events into a running program.
type Adapter struct {
	program *tea.Program
	unsubs  []func()
}

// Attach subscribes p to the events of deps. Call Detach when p exits.
func Attach(p *tea.Program, deps Deps) *Adapter {
	a := &Adapter{program: p}
	a.unsubs = append(a.unsubs,
		deps.Router.OnNavigate(func(loc router.Location) {
			p.Send(NavigatedMsg{Location: loc})
		}),
		deps.Session.Subscribe(func(c session.Change) {
			p.Send(SessionMsg{Snapshot: c.Current})
		}),
	)
	if deps.Feed != nil {
		a.unsubs = append(a.unsubs, deps.Feed.OnChange(func() {
			p.Send(FeedMsg{})
		}))
	}
	return a
}

// Detach removes every subscription made by Attach.
func (a *Adapter) Detach() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
}

// Run starts the interactive client at startPath and blocks until the
// user quits or ctx is cancelled.
func Run(ctx context.Context, deps Deps, startPath string, opts ...tea.ProgramOption) error {
	if _, err := deps.Router.Navigate(startPath); err != nil {
		return fmt.Errorf("open %s: %w", startPath, err)
	}

	model := NewModel(ctx, deps)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(model, opts...)

	a := Attach(p, deps)
	defer a.Detach()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
