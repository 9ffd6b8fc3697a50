package jobs

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the posting's visibility state.
type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

// Job is a job posting. Open postings count against the employer's plan
// limits; closed ones do not.
type Job struct {
	ID          uuid.UUID `json:"id"`
	EmployerID  uuid.UUID `json:"employer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	SalaryMin   int64     `json:"salary_min,omitempty"` // monthly, IDR
	SalaryMax   int64     `json:"salary_max,omitempty"`
	Featured    bool      `json:"featured"`
	Status      JobStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOpen reports whether the posting is publicly visible.
func (j *Job) IsOpen() bool { return j.Status == JobOpen }
