package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centennial-infotech/portal/internal/errors"
)

// backend is an in-memory job portal API.
type backend struct {
	mu          sync.Mutex
	plan        string
	active      bool
	forceReauth bool
	created     []map[string]string
	updated     []map[string]string
	read        []string
	applied     []string
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	login := func(admin bool) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var creds struct{ Email, Password string }
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			switch {
			case creds.Password != "Secret1!":
				reply(w, http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
			case admin:
				reply(w, http.StatusOK, map[string]any{"token": "admin-token", "userId": "a1", "isAdmin": true, "loginType": "admin"})
			default:
				reply(w, http.StatusOK, map[string]any{"token": "user-token", "userId": "u1", "isAdmin": false})
			}
		}
	}
	authed := func(token string, next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			force := b.forceReauth
			b.mu.Unlock()
			if force {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "Invalid token", "redirectTo": "/login"})
				return
			}
			if r.Header.Get("Authorization") != "Bearer "+token {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "No token"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /login", login(false))
	mux.HandleFunc("POST /api/admin/login", login(true))
	mux.HandleFunc("GET /api/jobs", authed("user-token", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, []map[string]any{
			{"_id": "j1", "title": "Go Developer", "location": "Pune", "workType": "Remote", "companyName": "Acme"},
		})
	}))
	mux.HandleFunc("POST /api/jobs/apply/{id}", authed("user-token", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.applied = append(b.applied, r.PathValue("id"))
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]string{"message": "Applied"})
	}))
	mux.HandleFunc("GET /api/notifications", authed("user-token", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, []map[string]any{
			{"_id": "n1", "message": "New job: Go Developer", "isRead": false, "jobId": "j1"},
			{"_id": "n2", "message": "New job: SRE", "isRead": true, "jobId": nil},
		})
	}))
	mux.HandleFunc("PUT /api/notifications/{id}/read", authed("user-token", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.read = append(b.read, r.PathValue("id"))
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]string{"message": "ok"})
	}))
	mux.HandleFunc("GET /api/subscription/current", authed("admin-token", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.plan == "" {
			reply(w, http.StatusNotFound, map[string]string{"message": "No subscription"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"isActive": b.active, "plan": b.plan})
	}))
	mux.HandleFunc("POST /api/subscription/checkout", authed("admin-token", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, map[string]string{"paymentId": "PAY-1", "approvalUrl": "https://pay.example/approve/PAY-1"})
	}))
	mux.HandleFunc("POST /api/subscription/verify", authed("admin-token", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.plan, b.active = "premium", true
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]string{"message": "Subscription activated"})
	}))
	mux.HandleFunc("GET /api/admin/job-posts", authed("admin-token", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, []map[string]any{{"_id": "p1", "title": "Platform Engineer"}})
	}))
	mux.HandleFunc("POST /api/admin/job-posts", authed("admin-token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		b.created = append(b.created, body)
		b.mu.Unlock()
		reply(w, http.StatusCreated, map[string]any{"jobPost": map[string]any{"_id": "p2", "title": body["title"]}})
	}))
	post := map[string]any{
		"_id": "p1", "title": "Platform Engineer", "description": "Run the platform",
		"location": "Pune", "skills": []string{"go", "k8s"}, "workType": "Onsite",
		"screeningQuestions": []string{},
	}
	mux.HandleFunc("GET /api/admin/job-posts/{id}", authed("admin-token", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			reply(w, http.StatusNotFound, map[string]string{"message": "Job post not found"})
			return
		}
		reply(w, http.StatusOK, post)
	}))
	mux.HandleFunc("PUT /api/admin/job-posts/{id}", authed("admin-token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		b.updated = append(b.updated, body)
		b.mu.Unlock()
		reply(w, http.StatusOK, map[string]any{"jobPost": map[string]any{"_id": r.PathValue("id"), "title": body["title"], "location": body["location"]}})
	}))
	mux.HandleFunc("GET /api/admin/job-posts/{id}/applications", authed("admin-token", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, []map[string]any{
			{"_id": "a1", "userId": map[string]any{"_id": "u1", "name": "Jane Doe", "email": "jane@example.com"}, "status": "pending"},
		})
	}))
	return mux
}

type harness struct {
	t       *testing.T
	backend *backend
	url     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(home)
	t.Setenv("PORTAL_API_RETRIES", "0")

	b := &backend{}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)
	return &harness{t: t, backend: b, url: srv.URL}
}

// run executes one CLI invocation; the session persists between runs in
// the temporary home directory.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--api-url", h.url}, args...))
	err := Execute(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestCandidateSession(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("login", "--email", "jane@example.com", "--password", "Secret1!")
	require.NoError(t, err)
	assert.Contains(t, out, "standard-user")
	assert.Contains(t, out, "/profile")

	out, err = h.run("status", "--format", "json")
	require.NoError(t, err)
	var report StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Authenticated)
	assert.Equal(t, "u1", report.UserID)
	assert.Equal(t, "user", report.LoginType)

	out, err = h.run("jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Go Developer")

	_, err = h.run("jobs", "apply", "j1")
	require.NoError(t, err)
	assert.Equal(t, []string{"j1"}, h.backend.applied)

	_, err = h.run("posts", "list")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionForbidden), "got %v", err)

	out, err = h.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "guest")
	assert.Contains(t, out, "/login")

	_, err = h.run("jobs", "list")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthNotLoggedIn), "got %v", err)
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "jane@example.com", "--password", "wrong")
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthInvalidCredentials), "got %v", err)

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestLoginValidationNeedsEmail(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--password", "Secret1!")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "got %v", err)
}

func TestLoginTwiceIsRefused(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "jane@example.com", "--password", "Secret1!")
	require.NoError(t, err)
	_, err = h.run("login", "--email", "jane@example.com", "--password", "Secret1!")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionInvalid), "got %v", err)
}

func TestAdminSubscriptionFlow(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("login", "--admin", "--email", "hr@acme.test", "--password", "Secret1!")
	require.NoError(t, err)
	assert.Contains(t, out, "admin-no-plan")
	assert.Contains(t, out, "/subscription")

	_, err = h.run("posts", "list")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeSessionForbidden), "got %v", err)
	assert.Contains(t, err.Error(), "/subscription")

	out, err = h.run("subscription", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Plan:   none")
	assert.Contains(t, out, "portal subscription checkout")

	out, err = h.run("subscription", "checkout", "premium")
	require.NoError(t, err)
	assert.Contains(t, out, "https://pay.example/approve/PAY-1")

	_, err = h.run("subscription", "checkout", "gold")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "got %v", err)

	out, err = h.run("subscription", "verify", "--payment-id", "PAY-1", "--payer-id", "PAYER-9")
	require.NoError(t, err)
	assert.Contains(t, out, "Subscription activated")
	assert.Contains(t, out, "admin-active")

	out, err = h.run("posts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform Engineer")
}

func TestPostsCreate(t *testing.T) {
	h := newHarness(t)
	h.backend.plan, h.backend.active = "basic", true

	_, err := h.run("login", "--admin", "--email", "hr@acme.test", "--password", "Secret1!")
	require.NoError(t, err)

	_, err = h.run("posts", "create", "--title", "Go", "--work-type", "Anywhere")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "got %v", err)
	assert.Contains(t, err.Error(), "title")
	assert.Empty(t, h.backend.created)

	out, err := h.run("posts", "create",
		"--title", "Go Developer",
		"--description", "Build backend services",
		"--location", "Pune",
		"--skills", "go, sql",
		"--work-type", "Remote",
		"--question", "Years of Go?")
	require.NoError(t, err)
	assert.Contains(t, out, "p2")
	require.Len(t, h.backend.created, 1)
	assert.Equal(t, `["go","sql"]`, h.backend.created[0]["skills"])
	assert.Equal(t, `["Years of Go?"]`, h.backend.created[0]["screeningQuestions"])
}

func TestPostsEdit(t *testing.T) {
	h := newHarness(t)
	h.backend.plan, h.backend.active = "basic", true

	_, err := h.run("login", "--admin", "--email", "hr@acme.test", "--password", "Secret1!")
	require.NoError(t, err)

	_, err = h.run("posts", "edit", "p1", "--work-type", "Anywhere")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed), "got %v", err)
	assert.Empty(t, h.backend.updated)

	out, err := h.run("posts", "edit", "p1", "--location", "Mumbai", "--skills", "go,sql,k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Mumbai")
	require.Len(t, h.backend.updated, 1)
	got := h.backend.updated[0]
	assert.Equal(t, "Platform Engineer", got["title"], "unchanged fields are kept")
	assert.Equal(t, "Onsite", got["workType"])
	assert.Equal(t, "Mumbai", got["location"])
	assert.Equal(t, `["go","sql","k8s"]`, got["skills"])

	_, err = h.run("posts", "edit", "p9", "--location", "Mumbai")
	assert.Error(t, err)
	assert.Len(t, h.backend.updated, 1)
}

func TestPostsApplicationsShowsPost(t *testing.T) {
	h := newHarness(t)
	h.backend.plan, h.backend.active = "basic", true

	_, err := h.run("login", "--admin", "--email", "hr@acme.test", "--password", "Secret1!")
	require.NoError(t, err)

	out, err := h.run("posts", "applications", "p1")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform Engineer (Pune, Onsite)")
	assert.Contains(t, out, "Jane Doe")

	out, err = h.run("posts", "applications", "p1", "--format", "json")
	require.NoError(t, err)
	var res postApplications
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "p1", res.Post.ID)
	require.Len(t, res.Applications, 1)
	assert.Equal(t, "jane@example.com", res.Applications[0].User.Email)
}

func TestNotifications(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "jane@example.com", "--password", "Secret1!")
	require.NoError(t, err)

	out, err := h.run("notifications", "list", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "n1")
	assert.NotContains(t, out, "n2")

	out, err = h.run("notifications", "read", "n1")
	require.NoError(t, err)
	assert.Contains(t, out, "0 unread")
	assert.Equal(t, []string{"n1"}, h.backend.read)
}

func TestForcedReauthEndsSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "jane@example.com", "--password", "Secret1!")
	require.NoError(t, err)

	h.backend.mu.Lock()
	h.backend.forceReauth = true
	h.backend.mu.Unlock()

	_, err = h.run("jobs", "list")
	require.Error(t, err)

	out, err := h.run("status", "--format", "json")
	require.NoError(t, err)
	var report StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Authenticated)
	assert.Equal(t, "guest", report.Access)
}

func TestOpenReportsGuardRedirect(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("open", "/admin/job-posts", "--format", "json")
	require.NoError(t, err)
	var loc locationResult
	require.NoError(t, json.Unmarshal([]byte(out), &loc))
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/admin/job-posts", loc.Requested)
}

func TestNavListsGuestLinks(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("nav")
	require.NoError(t, err)
	for _, want := range []string{"Login", "Signup", "Admin Login"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Logout")

	out, err = h.run("nav", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "/admin/job-posts")
}

func TestEphemeralSessionIsNotKept(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("--ephemeral", "login", "--email", "jane@example.com", "--password", "Secret1!")
	require.NoError(t, err)

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")
}

func TestStandaloneCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("config", "get", "api.url")
	require.NoError(t, err)
	assert.Equal(t, h.url, strings.TrimSpace(out))

	_, err = h.run("config", "get", "no.such.key")
	assert.Error(t, err)

	out, err = h.run("version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = h.run("config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: file")
}

func TestDoctor(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("doctor")
	require.NoError(t, err)
	for _, want := range []string{"backend", "session-storage", "session", "Overall: healthy"} {
		assert.Contains(t, out, want)
	}
}
