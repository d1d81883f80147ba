package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Jobs lists open job posts for candidates.
func (c *Client) Jobs(ctx context.Context) ([]JobPost, error) {
	var posts []JobPost
	if err := c.do(ctx, "jobs", http.MethodGet, "/api/jobs", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// Apply submits an application to a job post.
func (c *Client) Apply(ctx context.Context, jobID string) error {
	return c.do(ctx, "apply", http.MethodPost, "/api/jobs/apply/"+url.PathEscape(jobID), nil, nil)
}

// AppliedJobs lists the job posts the candidate already applied to.
func (c *Client) AppliedJobs(ctx context.Context) ([]JobRef, error) {
	var refs []JobRef
	if err := c.do(ctx, "user_applications", http.MethodGet, "/api/user/applications", nil, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// JobPostInput is the body for creating or updating a job post.
type JobPostInput struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Location           string   `json:"location"`
	Skills             []string `json:"skills"`
	WorkType           string   `json:"workType"`
	ScreeningQuestions []string `json:"screeningQuestions"`
}

// MarshalJSON sends the list fields as JSON-encoded strings, the shape the
// job-post endpoints parse.
func (in JobPostInput) MarshalJSON() ([]byte, error) {
	skills, err := json.Marshal(nonNil(in.Skills))
	if err != nil {
		return nil, err
	}
	questions, err := json.Marshal(nonNil(in.ScreeningQuestions))
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{
		"title":              in.Title,
		"description":        in.Description,
		"location":           in.Location,
		"skills":             string(skills),
		"workType":           in.WorkType,
		"screeningQuestions": string(questions),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type jobPostEnvelope struct {
	JobPost JobPost `json:"jobPost"`
}

// JobPosts lists the administrator's own job posts.
func (c *Client) JobPosts(ctx context.Context) ([]JobPost, error) {
	var posts []JobPost
	if err := c.do(ctx, "job_posts", http.MethodGet, "/api/admin/job-posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CreateJobPost publishes a new job post.
func (c *Client) CreateJobPost(ctx context.Context, in JobPostInput) (*JobPost, error) {
	var env jobPostEnvelope
	if err := c.do(ctx, "create_job_post", http.MethodPost, "/api/admin/job-posts", in, &env); err != nil {
		return nil, err
	}
	return &env.JobPost, nil
}

// JobPost fetches one of the administrator's job posts.
func (c *Client) JobPost(ctx context.Context, id string) (*JobPost, error) {
	var post JobPost
	if err := c.do(ctx, "job_post", http.MethodGet, "/api/admin/job-posts/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdateJobPost replaces the fields of an existing job post.
func (c *Client) UpdateJobPost(ctx context.Context, id string, in JobPostInput) (*JobPost, error) {
	var env jobPostEnvelope
	if err := c.do(ctx, "update_job_post", http.MethodPut, "/api/admin/job-posts/"+url.PathEscape(id), in, &env); err != nil {
		return nil, err
	}
	return &env.JobPost, nil
}

// DeleteJobPost removes a job post.
func (c *Client) DeleteJobPost(ctx context.Context, id string) error {
	return c.do(ctx, "delete_job_post", http.MethodDelete, "/api/admin/job-posts/"+url.PathEscape(id), nil, nil)
}

// JobPostApplications lists applications received for a job post.
func (c *Client) JobPostApplications(ctx context.Context, id string) ([]Application, error) {
	var apps []Application
	path := "/api/admin/job-posts/" + url.PathEscape(id) + "/applications"
	if err := c.do(ctx, "job_post_applications", http.MethodGet, path, nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// Users lists candidate accounts visible to the administrator.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, "admin_users", http.MethodGet, "/api/admin/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
