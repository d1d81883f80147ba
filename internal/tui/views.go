package tui

import (
	"fmt"
	"strings"

	"github.com/centennial-infotech/portal/internal/session"
)

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderNav())
	b.WriteString("\n\n")
	b.WriteString(m.styles.Title.Render(m.loc.Route.Title))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.styles.Status.Render(m.status))
		b.WriteString("\n\n")
	}

	switch {
	case isLoginRoute(m.loc) && m.inputs != nil:
		b.WriteString(m.renderLogin())
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading...")
	case m.loc.Route.Pattern == "*":
		b.WriteString(m.styles.Muted.Render("Nothing here: " + m.loc.Path))
	case len(m.items) > 0:
		b.WriteString(m.renderItems())
	case m.lastError == "":
		b.WriteString(m.styles.Muted.Render(emptyText(m.loc.Route.Pattern)))
	}
	b.WriteString("\n")

	if m.lastError != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render("Error: ") + m.lastError)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) renderHeader() string {
	who := "not signed in"
	s := m.snap.Session
	if s.Authenticated() {
		who = fmt.Sprintf("%s (%s)", s.UserID, m.snap.Access.Kind())
		if a, ok := m.snap.Access.(session.AdminActive); ok {
			who += " · " + a.Plan.String()
		}
	}
	return m.styles.Label.Render("Job Portal") + "  " + m.styles.Muted.Render(who)
}

func (m Model) renderNav() string {
	parts := make([]string, 0, len(m.links))
	for i, l := range m.links {
		label := l.Label
		if l.Path == "/notifications" && m.deps.Feed != nil {
			if n := m.deps.Feed.Unread(); n > 0 {
				label = fmt.Sprintf("%s (%d)", label, n)
			}
		}
		text := fmt.Sprintf("[%d] %s", i+1, label)
		if l.Path != "" && l.Path == m.loc.Path {
			parts = append(parts, m.styles.NavActive.Render(text))
		} else {
			parts = append(parts, m.styles.NavItem.Render(text))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderLogin() string {
	var b strings.Builder
	names := []string{"email", "password"}
	for i, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
		if msg, ok := m.fieldErrors[names[i]]; ok {
			b.WriteString(m.styles.Error.Render("  " + msg))
			b.WriteString("\n")
		}
	}
	if m.loading {
		b.WriteString(m.spinner.View() + " Signing in...")
	} else {
		b.WriteString(m.styles.Muted.Render("enter to submit · tab to switch field · esc to leave the form"))
	}
	return b.String()
}

func (m Model) renderItems() string {
	var b strings.Builder
	for i, it := range m.items {
		title := it.Title
		if it.Unread {
			title = m.styles.Unread.Render("● ") + title
		}
		line := title
		if it.Detail != "" {
			line += "  " + m.styles.Muted.Render(it.Detail)
		}
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("> ") + line)
		} else {
			b.WriteString(m.styles.Item.Render(line))
		}
		b.WriteString("\n")
	}
	return m.styles.Border.Render(strings.TrimRight(b.String(), "\n"))
}

func emptyText(pattern string) string {
	switch pattern {
	case "/jobs":
		return "No jobs posted yet."
	case "/notifications":
		return "No notifications."
	case "/admin/job-posts":
		return "No job posts yet. Create one with 'portal posts create'."
	case "/admin/job-posts/:id/applications":
		return "No applications yet."
	case "/admin/users":
		return "No users."
	case "/signup", "/admin/signup":
		return "Run 'portal signup' to create an account."
	case "/verify-otp", "/admin/verify-otp":
		return "Run 'portal verify --email <email> --otp <code>'."
	case "/reset-password":
		return "Run 'portal reset-password'."
	default:
		return "This screen has no terminal view."
	}
}
