package jobs

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjago/kerjago/svc/billing"
)

type fakePlans struct {
	mu    sync.Mutex
	plans map[uuid.UUID]billing.Plan
}

func (p *fakePlans) GetPlan(ctx context.Context, userID uuid.UUID) (billing.Plan, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	plan, ok := p.plans[userID]
	if !ok {
		return billing.PlanFree, nil
	}
	return plan, nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context, namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type jobsFixture struct {
	svc   *Service
	plans *fakePlans
	cache *countingInvalidator
}

func newJobsFixture(t *testing.T) *jobsFixture {
	t.Helper()
	f := &jobsFixture{
		plans: &fakePlans{plans: make(map[uuid.UUID]billing.Plan)},
		cache: &countingInvalidator{},
	}
	f.svc = NewService(NewMemoryStore(), f.plans, f.cache)
	return f
}

func (f *jobsFixture) employer(plan billing.Plan) uuid.UUID {
	id := uuid.New()
	f.plans.mu.Lock()
	f.plans.plans[id] = plan
	f.plans.mu.Unlock()
	return id
}

func TestCreateLimits(t *testing.T) {
	t.Parallel()

	t.Run("free plan allows one open posting", func(t *testing.T) {
		t.Parallel()
		f := newJobsFixture(t)
		employer := f.employer(billing.PlanFree)

		_, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Backend Engineer"})
		require.NoError(t, err)

		_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Frontend Engineer"})
		var limitErr *LimitReachedError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, billing.PlanFree, limitErr.Plan)
		assert.Equal(t, int64(1), limitErr.Limit)
		assert.Equal(t, "jobs", limitErr.Resource)
	})

	t.Run("free plan allows no featured postings", func(t *testing.T) {
		t.Parallel()
		f := newJobsFixture(t)
		employer := f.employer(billing.PlanFree)

		_, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Backend Engineer", Featured: true})
		var limitErr *LimitReachedError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, "featured jobs", limitErr.Resource)
		assert.Zero(t, limitErr.Limit)
	})

	t.Run("basic plan allows three open and one featured", func(t *testing.T) {
		t.Parallel()
		f := newJobsFixture(t)
		employer := f.employer(billing.PlanBasic)

		_, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 1", Featured: true})
		require.NoError(t, err)
		_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 2"})
		require.NoError(t, err)
		_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 3"})
		require.NoError(t, err)

		_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 4"})
		var limitErr *LimitReachedError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, int64(3), limitErr.Limit)

		// Featured slot is also used up.
		closed, err := f.svc.Close(context.Background(), employer, mustFirstJob(t, f.svc, employer).ID)
		require.NoError(t, err)
		require.Equal(t, JobClosed, closed.Status)

		_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 5", Featured: true})
		require.NoError(t, err, "closing the featured posting frees its slot")
	})

	t.Run("premium plan is unlimited", func(t *testing.T) {
		t.Parallel()
		f := newJobsFixture(t)
		employer := f.employer(billing.PlanPremium)

		for i := 0; i < 20; i++ {
			_, err := f.svc.Create(context.Background(), employer, CreateJobParams{
				Title:    "Job",
				Featured: i%2 == 0,
			})
			require.NoError(t, err)
		}
	})

	t.Run("unknown plan gets free limits", func(t *testing.T) {
		t.Parallel()
		f := newJobsFixture(t)
		employer := f.employer(billing.Plan("legacy"))

		_, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 1"})
		require.NoError(t, err)
		_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 2"})
		var limitErr *LimitReachedError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, int64(1), limitErr.Limit)
	})
}

func mustFirstJob(t *testing.T, svc *Service, employer uuid.UUID) Job {
	t.Helper()
	list, err := svc.List(context.Background(), ListFilter{EmployerID: &employer})
	require.NoError(t, err)
	for _, j := range list {
		if j.Featured && j.IsOpen() {
			return j
		}
	}
	require.NotEmpty(t, list)
	return list[0]
}

func TestCloseFreesSlot(t *testing.T) {
	t.Parallel()
	f := newJobsFixture(t)
	employer := f.employer(billing.PlanFree)

	job, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Backend Engineer"})
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), employer, job.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Frontend Engineer"})
	require.NoError(t, err, "closed postings do not count against the limit")
}

func TestUpdateFeaturedGate(t *testing.T) {
	t.Parallel()
	f := newJobsFixture(t)
	employer := f.employer(billing.PlanBasic)

	featured, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 1", Featured: true})
	require.NoError(t, err)
	plain, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Job 2"})
	require.NoError(t, err)

	// The single basic featured slot is taken.
	on := true
	_, err = f.svc.Update(context.Background(), employer, plain.ID, UpdateJobParams{Featured: &on})
	var limitErr *LimitReachedError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "featured jobs", limitErr.Resource)

	// Unfeature the first, then the toggle succeeds.
	off := false
	_, err = f.svc.Update(context.Background(), employer, featured.ID, UpdateJobParams{Featured: &off})
	require.NoError(t, err)

	updated, err := f.svc.Update(context.Background(), employer, plain.ID, UpdateJobParams{Featured: &on})
	require.NoError(t, err)
	assert.True(t, updated.Featured)
}

func TestOwnership(t *testing.T) {
	t.Parallel()
	f := newJobsFixture(t)
	owner := f.employer(billing.PlanBasic)
	other := f.employer(billing.PlanBasic)

	job, err := f.svc.Create(context.Background(), owner, CreateJobParams{Title: "Backend Engineer"})
	require.NoError(t, err)

	title := "Hijacked"
	_, err = f.svc.Update(context.Background(), other, job.ID, UpdateJobParams{Title: &title})
	assert.ErrorIs(t, err, ErrNotJobOwner)

	_, err = f.svc.Close(context.Background(), other, job.ID)
	assert.ErrorIs(t, err, ErrNotJobOwner)

	err = f.svc.Delete(context.Background(), other, job.ID)
	assert.ErrorIs(t, err, ErrNotJobOwner)

	err = f.svc.Delete(context.Background(), owner, job.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestWritesInvalidateCache(t *testing.T) {
	t.Parallel()
	f := newJobsFixture(t)
	employer := f.employer(billing.PlanPremium)

	job, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "Backend Engineer"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.count())

	title := "Senior Backend Engineer"
	_, err = f.svc.Update(context.Background(), employer, job.ID, UpdateJobParams{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 2, f.cache.count())

	_, err = f.svc.Close(context.Background(), employer, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, f.cache.count())

	require.NoError(t, f.svc.Delete(context.Background(), employer, job.ID))
	assert.Equal(t, 4, f.cache.count())

	// Reads never invalidate.
	_, err = f.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, f.cache.count())
}

func TestListFilters(t *testing.T) {
	t.Parallel()
	f := newJobsFixture(t)
	employer := f.employer(billing.PlanPremium)

	_, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "A", Location: "Jakarta", Featured: true})
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), employer, CreateJobParams{Title: "B", Location: "Bandung"})
	require.NoError(t, err)
	closedJob, err := f.svc.Create(context.Background(), employer, CreateJobParams{Title: "C", Location: "Jakarta"})
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), employer, closedJob.ID)
	require.NoError(t, err)

	list, err := f.svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2, "public listing excludes closed postings")
	assert.True(t, list[0].Featured, "featured postings sort first")

	list, err = f.svc.List(context.Background(), ListFilter{Location: "Jakarta"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	featured := true
	list, err = f.svc.List(context.Background(), ListFilter{Featured: &featured})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.List(context.Background(), ListFilter{EmployerID: &employer})
	require.NoError(t, err)
	assert.Len(t, list, 3, "employers see their closed postings")
}
