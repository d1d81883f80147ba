package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/centennial-infotech/portal/internal/api"
	"github.com/centennial-infotech/portal/internal/form"
	"github.com/centennial-infotech/portal/internal/tui"
	"github.com/centennial-infotech/portal/internal/ux"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in account",
	Args:  cobra.NoArgs,
	RunE:  runProfile,
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Browse and apply to job posts",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open job posts",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var jobsApplyCmd = &cobra.Command{
	Use:   "apply <job-id>",
	Short: "Apply to a job post",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsApply,
}

var jobsAppliedCmd = &cobra.Command{
	Use:   "applied",
	Short: "List the job posts you applied to",
	Args:  cobra.NoArgs,
	RunE:  runJobsApplied,
}

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Manage your company's job posts (active plan required)",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your job posts",
	Args:  cobra.NoArgs,
	RunE:  runPostsList,
}

var postsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a job post",
	Long: `Publish a job post. Skills are comma separated; --question may be given
up to five times.

Example:
  portal posts create --title "Go Developer" --location Pune \
    --description "Build backend services" --skills go,sql --work-type Remote`,
	Args: cobra.NoArgs,
	RunE: runPostsCreate,
}

var postsEditCmd = &cobra.Command{
	Use:   "edit <post-id>",
	Short: "Change a job post",
	Long: `Change a job post. Only the given flags change; --skills and --question
replace the whole list.

Example:
  portal posts edit p1 --location Mumbai --work-type Hybrid`,
	Args: cobra.ExactArgs(1),
	RunE: runPostsEdit,
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete a job post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostsDelete,
}

var postsApplicationsCmd = &cobra.Command{
	Use:   "applications <post-id>",
	Short: "List the applications to a job post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostsApplications,
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List candidate accounts (administrators only)",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

func init() {
	jobsCmd.AddCommand(jobsListCmd, jobsApplyCmd, jobsAppliedCmd)

	for _, c := range []*cobra.Command{postsCreateCmd, postsEditCmd} {
		f := c.Flags()
		f.String("title", "", "job title")
		f.String("description", "", "job description")
		f.String("location", "", "job location")
		f.String("skills", "", "comma separated skills")
		f.String("work-type", "", "Remote, Hybrid or Onsite")
		f.StringArray("question", nil, "screening question (repeatable)")
	}
	postsDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	postsCmd.AddCommand(postsListCmd, postsCreateCmd, postsEditCmd, postsDeleteCmd, postsApplicationsCmd)

	rootCmd.AddCommand(profileCmd, jobsCmd, postsCmd, usersCmd)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	path := "/profile"
	if app.Session.Snapshot().Session.AdminLogin() {
		path = "/admin/profile"
	}
	if _, err := requireRoute(cmd.Context(), app, path); err != nil {
		return err
	}
	u, err := app.Client.Profile(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, profileResult(*u))
}

type profileResult api.User

func (p profileResult) WriteText(w io.Writer) error {
	rows := [][]string{{"Name", p.Name}, {"Email", p.Email}}
	for _, kv := range [][2]string{
		{"Phone", p.Phone},
		{"Company", p.CompanyName},
		{"Company phone", p.CompanyPhone},
		{"City", p.City},
		{"State", p.State},
	} {
		if kv[1] != "" {
			rows = append(rows, []string{kv[0], kv[1]})
		}
	}
	return ux.Table(w, []string{"FIELD", "VALUE"}, rows, "")
}

// jobList renders job posts.
type jobList []api.JobPost

func (l jobList) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(l))
	for _, j := range l {
		rows = append(rows, []string{j.ID, j.Title, j.Company(), j.Location, j.WorkType, date(j.CreatedAt)})
	}
	return ux.Table(w, []string{"ID", "TITLE", "COMPANY", "LOCATION", "TYPE", "POSTED"}, rows, "No job posts")
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/jobs"); err != nil {
		return err
	}
	jobs, err := app.Client.Jobs(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, jobList(jobs))
}

func runJobsApply(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/jobs/"+args[0]); err != nil {
		return err
	}
	if err := app.Client.Apply(cmd.Context(), args[0]); err != nil {
		return err
	}
	return printResult(cmd, messageResult{Message: "Applied to " + args[0]})
}

func runJobsApplied(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/jobs"); err != nil {
		return err
	}
	refs, err := app.Client.AppliedJobs(cmd.Context())
	if err != nil {
		return err
	}
	jobs := make(jobList, 0, len(refs))
	for _, r := range refs {
		if r.Post != nil {
			jobs = append(jobs, *r.Post)
		} else {
			jobs = append(jobs, api.JobPost{ID: r.ID})
		}
	}
	return printResult(cmd, jobs)
}

func runPostsList(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/admin/job-posts"); err != nil {
		return err
	}
	posts, err := app.Client.JobPosts(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, jobList(posts))
}

func runPostsCreate(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/admin/job-posts"); err != nil {
		return err
	}

	questions, _ := cmd.Flags().GetStringArray("question")
	in := form.JobPost{
		Title:              flagString(cmd, "title"),
		Description:        flagString(cmd, "description"),
		Location:           flagString(cmd, "location"),
		Skills:             form.SplitList(flagString(cmd, "skills")),
		WorkType:           flagString(cmd, "work-type"),
		ScreeningQuestions: questions,
	}
	if err := validateForm(&in); err != nil {
		return err
	}

	post, err := app.Client.CreateJobPost(cmd.Context(), postInput(in))
	if err != nil {
		return err
	}
	return printResult(cmd, jobList{*post})
}

func postInput(in form.JobPost) api.JobPostInput {
	return api.JobPostInput{
		Title:              in.Title,
		Description:        in.Description,
		Location:           in.Location,
		Skills:             in.Skills,
		WorkType:           in.WorkType,
		ScreeningQuestions: in.ScreeningQuestions,
	}
}

func runPostsEdit(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/admin/job-posts"); err != nil {
		return err
	}
	current, err := app.Client.JobPost(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	in := form.JobPost{
		Title:              current.Title,
		Description:        current.Description,
		Location:           current.Location,
		Skills:             current.Skills,
		WorkType:           current.WorkType,
		ScreeningQuestions: current.ScreeningQuestions,
	}
	flags := cmd.Flags()
	for name, field := range map[string]*string{
		"title":       &in.Title,
		"description": &in.Description,
		"location":    &in.Location,
		"work-type":   &in.WorkType,
	} {
		if flags.Changed(name) {
			*field = flagString(cmd, name)
		}
	}
	if flags.Changed("skills") {
		in.Skills = form.SplitList(flagString(cmd, "skills"))
	}
	if flags.Changed("question") {
		in.ScreeningQuestions, _ = flags.GetStringArray("question")
	}
	if err := validateForm(&in); err != nil {
		return err
	}

	post, err := app.Client.UpdateJobPost(cmd.Context(), args[0], postInput(in))
	if err != nil {
		return err
	}
	return printResult(cmd, jobList{*post})
}

func runPostsDelete(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/admin/job-posts"); err != nil {
		return err
	}
	if !flagBool(cmd, "yes") && tui.ShouldPrompt() {
		ok, err := tui.PromptForConfirmation(fmt.Sprintf("Delete job post %s?", args[0]), false)
		if err != nil {
			return err
		}
		if !ok {
			return printResult(cmd, messageResult{Message: "Cancelled"})
		}
	}
	if err := app.Client.DeleteJobPost(cmd.Context(), args[0]); err != nil {
		return err
	}
	return printResult(cmd, messageResult{Message: "Deleted " + args[0]})
}

type applicationList []api.Application

func (l applicationList) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		name, email := "", ""
		if a.User != nil {
			name, email = a.User.Name, a.User.Email
		}
		rows = append(rows, []string{a.ID, name, email, a.Status, date(a.CreatedAt)})
	}
	return ux.Table(w, []string{"ID", "CANDIDATE", "EMAIL", "STATUS", "APPLIED"}, rows, "No applications")
}

// postApplications is a job post with the applications it received.
type postApplications struct {
	Post         api.JobPost       `json:"jobPost" yaml:"jobPost"`
	Applications []api.Application `json:"applications" yaml:"applications"`
}

func (p postApplications) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "%s (%s, %s)\n", p.Post.Title, p.Post.Location, p.Post.WorkType)
	if len(p.Post.Skills) > 0 {
		fmt.Fprintf(w, "Skills: %s\n", strings.Join(p.Post.Skills, ", "))
	}
	fmt.Fprintln(w)
	return applicationList(p.Applications).WriteText(w)
}

func runPostsApplications(cmd *cobra.Command, args []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/admin/job-posts/"+args[0]+"/applications"); err != nil {
		return err
	}
	apps, err := app.Client.JobPostApplications(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	post, err := app.Client.JobPost(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, postApplications{Post: *post, Applications: apps})
}

type userList []api.User

func (l userList) WriteText(w io.Writer) error {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		verified := "no"
		if u.Verified {
			verified = "yes"
		}
		rows = append(rows, []string{u.ID, u.Name, u.Email, u.City, verified})
	}
	return ux.Table(w, []string{"ID", "NAME", "EMAIL", "CITY", "VERIFIED"}, rows, "No candidates")
}

func runUsers(cmd *cobra.Command, _ []string) error {
	app, err := appFrom(cmd)
	if err != nil {
		return err
	}
	if _, err := requireRoute(cmd.Context(), app, "/admin/users"); err != nil {
		return err
	}
	users, err := app.Client.Users(cmd.Context())
	if err != nil {
		return err
	}
	return printResult(cmd, userList(users))
}
