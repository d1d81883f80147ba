package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/session"
)

type loader func(ctx context.Context) ([]Item, error)

// loaderFor returns the data source for a route pattern, or nil for
// screens without remote data.
func (m Model) loaderFor(pattern string) loader {
	b := m.deps.Backend
	switch pattern {
	case "/profile", "/profile/preview", "/admin/profile", "/admin/profile/preview":
		return func(ctx context.Context) ([]Item, error) {
			u, err := b.Profile(ctx)
			if err != nil {
				return nil, err
			}
			return profileItems(u), nil
		}
	case "/jobs":
		return func(ctx context.Context) ([]Item, error) {
			jobs, err := b.Jobs(ctx)
			return jobItems(jobs), err
		}
	case "/admin/job-posts":
		return func(ctx context.Context) ([]Item, error) {
			posts, err := b.JobPosts(ctx)
			return jobItems(posts), err
		}
	case "/admin/job-posts/:id/applications":
		id := m.loc.Params["id"]
		return func(ctx context.Context) ([]Item, error) {
			apps, err := b.JobPostApplications(ctx, id)
			return applicationItems(apps), err
		}
	case "/admin/users":
		return func(ctx context.Context) ([]Item, error) {
			users, err := b.Users(ctx)
			return userItems(users), err
		}
	case "/subscription":
		return func(ctx context.Context) ([]Item, error) {
			status, err := b.CurrentSubscription(ctx)
			if err != nil && !api.IsNotFound(err) {
				return nil, err
			}
			return planItems(status), nil
		}
	case "/notifications":
		feed := m.deps.Feed
		if feed == nil {
			return nil
		}
		return func(ctx context.Context) ([]Item, error) {
			err := feed.Poll(ctx)
			return notificationItems(feed.Items()), err
		}
	}
	return nil
}

// load fetches the current screen's rows.
func (m *Model) load() tea.Cmd {
	fetch := m.loaderFor(m.loc.Route.Pattern)
	if fetch == nil {
		m.loading = false
		return nil
	}
	m.loading = true
	ctx, seq := m.ctx, m.seq
	return func() tea.Msg {
		items, err := fetch(ctx)
		return loadedMsg{seq: seq, items: items, err: err}
	}
}

func profileItems(u *api.User) []Item {
	rows := []Item{
		{Title: "Name", Detail: u.Name},
		{Title: "Email", Detail: u.Email},
	}
	add := func(title, v string) {
		if v != "" {
			rows = append(rows, Item{Title: title, Detail: v})
		}
	}
	add("Phone", u.Phone)
	add("Address", strings.Trim(strings.Join([]string{u.HouseNoStreet, u.City, u.State}, ", "), ", "))
	add("Company", u.CompanyName)
	add("Company phone", u.CompanyPhone)
	verified := "no"
	if u.Verified {
		verified = "yes"
	}
	rows = append(rows, Item{Title: "Verified", Detail: verified})
	return rows
}

func jobItems(jobs []api.JobPost) []Item {
	items := make([]Item, 0, len(jobs))
	for _, j := range jobs {
		parts := []string{}
		for _, p := range []string{j.Company(), j.Location, j.WorkType} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		items = append(items, Item{ID: j.ID, Title: j.Title, Detail: strings.Join(parts, " · ")})
	}
	return items
}

func applicationItems(apps []api.Application) []Item {
	items := make([]Item, 0, len(apps))
	for _, a := range apps {
		title := "(unknown applicant)"
		detail := a.Status
		if a.User != nil {
			title = a.User.Name
			detail = strings.TrimSpace(a.User.Email + " " + a.Status)
		}
		items = append(items, Item{ID: a.ID, Title: title, Detail: detail})
	}
	return items
}

func userItems(users []api.User) []Item {
	items := make([]Item, 0, len(users))
	for _, u := range users {
		items = append(items, Item{ID: u.ID, Title: u.Name, Detail: u.Email})
	}
	return items
}

func planItems(status *api.SubscriptionStatus) []Item {
	current := session.PlanNone
	active := false
	if status != nil {
		current = session.ParsePlan(status.Plan)
		active = status.IsActive
	}
	items := make([]Item, 0, len(session.Plans))
	for _, p := range session.Plans {
		detail := ""
		if p == current {
			detail = "current plan"
			if !active && p != session.PlanFree {
				detail += " (inactive)"
			}
		}
		items = append(items, Item{ID: string(p), Title: p.String(), Detail: detail})
	}
	return items
}

func notificationItems(ns []api.Notification) []Item {
	items := make([]Item, 0, len(ns))
	for _, n := range ns {
		detail := ""
		if n.Job.Post != nil {
			detail = n.Job.Post.Title
		}
		if !n.CreatedAt.IsZero() {
			detail = strings.TrimSpace(fmt.Sprintf("%s %s", detail, n.CreatedAt.Format("2006-01-02")))
		}
		items = append(items, Item{ID: n.ID, Title: n.Message, Detail: detail, Unread: !n.IsRead})
	}
	return items
}
