package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Flag decodes a JSON boolean that some endpoints send as a string.
type Flag bool

// UnmarshalJSON accepts true, false, "true", "false" and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		v = false
	}
	*f = Flag(v)
	return nil
}

// Company is the employer a job post belongs to.
type Company struct {
	ID          string `json:"_id,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// JobPost is a job advertised by a company administrator.
type JobPost struct {
	ID                 string    `json:"_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	Skills             []string  `json:"skills"`
	WorkType           string    `json:"workType"`
	ScreeningQuestions []string  `json:"screeningQuestions"`
	CompanyName        string    `json:"companyName,omitempty"`
	PostedBy           *Company  `json:"postedBy,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Company returns the best available employer name.
func (j JobPost) Company() string {
	if j.PostedBy != nil && j.PostedBy.CompanyName != "" {
		return j.PostedBy.CompanyName
	}
	return j.CompanyName
}

// JobRef is a reference to a job post that the backend sends either as a
// bare id or as the populated post.
type JobRef struct {
	ID   string
	Post *JobPost
}

// UnmarshalJSON accepts a string id, a job object, or null.
func (r *JobRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = JobRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = JobRef{ID: id}
		return nil
	}
	var post JobPost
	if err := json.Unmarshal(data, &post); err != nil {
		return err
	}
	*r = JobRef{ID: post.ID, Post: &post}
	return nil
}

// MarshalJSON writes the populated post when present, else the id.
func (r JobRef) MarshalJSON() ([]byte, error) {
	if r.Post != nil {
		return json.Marshal(r.Post)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// User is a portal account as returned by profile and admin endpoints.
type User struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	State         string `json:"state,omitempty"`
	City          string `json:"city,omitempty"`
	HouseNoStreet string `json:"houseNoStreet,omitempty"`
	CompanyName   string `json:"companyName,omitempty"`
	CompanyPhone  string `json:"companyPhone,omitempty"`
	IsAdmin       Flag   `json:"isAdmin"`
	Verified      Flag   `json:"verified"`
	CVFileID      string `json:"cvFileId,omitempty"`
}

// Application is one candidate's application to a job post.
type Application struct {
	ID        string    `json:"_id"`
	User      *User     `json:"userId"`
	Answers   []string  `json:"answers,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification tells a candidate about a job post.
type Notification struct {
	ID        string    `json:"_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	Job       JobRef    `json:"jobId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriptionStatus is the admin's current billing state.
type SubscriptionStatus struct {
	IsActive bool   `json:"isActive"`
	Plan     string `json:"plan"`
}

// Checkout is a started payment awaiting approval.
type Checkout struct {
	PaymentID   string `json:"paymentId"`
	ApprovalURL string `json:"approvalUrl"`
	QRCode      string `json:"qrCode,omitempty"`
}

// MessageResponse is the common {message} reply.
type MessageResponse struct {
	Message string `json:"message"`
}
