package jobs

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a public job listing.
type ListFilter struct {
	Location   string
	Featured   *bool
	EmployerID *uuid.UUID
	Limit      int
	Offset     int
}

// Store persists job postings. The count methods back the plan-limit
// checks and count only open postings.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, filter ListFilter) ([]Job, error)
	Update(ctx context.Context, job *Job) error
	Delete(ctx context.Context, id uuid.UUID) error

	CountOpenByEmployer(ctx context.Context, employerID uuid.UUID) (int64, error)
	CountFeaturedOpenByEmployer(ctx context.Context, employerID uuid.UUID) (int64, error)
}
