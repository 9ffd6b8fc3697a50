package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kerjago/kerjago/pkg/logger"
	"github.com/kerjago/kerjago/svc/billing"
)

// PlanReader resolves an employer's current plan. Satisfied by the user
// store.
type PlanReader interface {
	GetPlan(ctx context.Context, userID uuid.UUID) (billing.Plan, error)
}

// Invalidator purges a cache namespace after a write. Implementations log
// and swallow their own failures; a stale entry ages out within the TTL.
type Invalidator interface {
	Invalidate(ctx context.Context, namespace string)
}

// cacheNamespace is the response cache namespace for public job listings.
const cacheNamespace = "jobs"

var errTitleRequired = errors.New("job title is required")

// Service owns job posting writes. Every create and every feature toggle
// passes a plan-limit gate before touching the store, and every successful
// write purges the listing cache.
type Service struct {
	store  Store
	plans  PlanReader
	cache  Invalidator
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates the job service. cache may be nil when response
// caching is disabled.
func NewService(store Store, plans PlanReader, cache Invalidator, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		plans:  plans,
		cache:  cache,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJobParams carries the employer-supplied fields of a new posting.
type CreateJobParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	SalaryMin   int64  `json:"salary_min"`
	SalaryMax   int64  `json:"salary_max"`
	Featured    bool   `json:"featured"`
}

// Create opens a new posting for the employer, enforcing the open and
// featured posting limits of their current plan.
func (s *Service) Create(ctx context.Context, employerID uuid.UUID, params CreateJobParams) (*Job, error) {
	if params.Title == "" {
		return nil, errTitleRequired
	}

	plan, err := s.plans.GetPlan(ctx, employerID)
	if err != nil {
		return nil, err
	}

	if err := s.checkJobLimit(ctx, employerID, plan); err != nil {
		return nil, err
	}
	if params.Featured {
		if err := s.checkFeaturedLimit(ctx, employerID, plan); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.New(),
		EmployerID:  employerID,
		Title:       params.Title,
		Description: params.Description,
		Location:    params.Location,
		SalaryMin:   params.SalaryMin,
		SalaryMax:   params.SalaryMax,
		Featured:    params.Featured,
		Status:      JobOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "job posted",
		logger.JobID(job.ID), logger.UserID(employerID), logger.Plan(plan))
	s.invalidate(ctx)
	return job, nil
}

// UpdateJobParams carries the mutable posting fields. Nil means unchanged.
type UpdateJobParams struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	SalaryMin   *int64  `json:"salary_min"`
	SalaryMax   *int64  `json:"salary_max"`
	Featured    *bool   `json:"featured"`
}

// Update edits an owned posting. Turning the featured flag on re-checks
// the featured limit as if the posting were new.
func (s *Service) Update(ctx context.Context, employerID, jobID uuid.UUID, params UpdateJobParams) (*Job, error) {
	job, err := s.owned(ctx, employerID, jobID)
	if err != nil {
		return nil, err
	}

	if params.Featured != nil && *params.Featured && !job.Featured && job.IsOpen() {
		plan, err := s.plans.GetPlan(ctx, employerID)
		if err != nil {
			return nil, err
		}
		if err := s.checkFeaturedLimit(ctx, employerID, plan); err != nil {
			return nil, err
		}
	}

	if params.Title != nil {
		if *params.Title == "" {
			return nil, errTitleRequired
		}
		job.Title = *params.Title
	}
	if params.Description != nil {
		job.Description = *params.Description
	}
	if params.Location != nil {
		job.Location = *params.Location
	}
	if params.SalaryMin != nil {
		job.SalaryMin = *params.SalaryMin
	}
	if params.SalaryMax != nil {
		job.SalaryMax = *params.SalaryMax
	}
	if params.Featured != nil {
		job.Featured = *params.Featured
	}

	if err := s.store.Update(ctx, job); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return job, nil
}

// Close takes an owned posting out of the public listing, freeing its slot
// against the plan limits.
func (s *Service) Close(ctx context.Context, employerID, jobID uuid.UUID) (*Job, error) {
	job, err := s.owned(ctx, employerID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == JobClosed {
		return job, nil
	}

	job.Status = JobClosed
	if err := s.store.Update(ctx, job); err != nil {
		return nil, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "job closed",
		logger.JobID(job.ID), logger.UserID(employerID))
	s.invalidate(ctx)
	return job, nil
}

// Delete removes an owned posting entirely.
func (s *Service) Delete(ctx context.Context, employerID, jobID uuid.UUID) error {
	if _, err := s.owned(ctx, employerID, jobID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, jobID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Get returns a single posting.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns postings matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Job, error) {
	return s.store.List(ctx, filter)
}

func (s *Service) owned(ctx context.Context, employerID, jobID uuid.UUID) (*Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.EmployerID != employerID {
		return nil, ErrNotJobOwner
	}
	return job, nil
}

func (s *Service) checkJobLimit(ctx context.Context, employerID uuid.UUID, plan billing.Plan) error {
	limit := billing.JobLimit(plan)
	if limit == billing.Unlimited {
		return nil
	}
	open, err := s.store.CountOpenByEmployer(ctx, employerID)
	if err != nil {
		return err
	}
	if open >= limit {
		return &LimitReachedError{Plan: plan, Limit: limit, Resource: "jobs"}
	}
	return nil
}

func (s *Service) checkFeaturedLimit(ctx context.Context, employerID uuid.UUID, plan billing.Plan) error {
	limit := billing.FeaturedJobLimit(plan)
	if limit == billing.Unlimited {
		return nil
	}
	featured, err := s.store.CountFeaturedOpenByEmployer(ctx, employerID)
	if err != nil {
		return err
	}
	if featured >= limit {
		return &LimitReachedError{Plan: plan, Limit: limit, Resource: "featured jobs"}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, cacheNamespace)
}
