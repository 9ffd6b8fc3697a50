package jobs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kerjago/kerjago/pkg/httpx"
	"github.com/kerjago/kerjago/pkg/token"
	jobssvc "github.com/kerjago/kerjago/svc/jobs"
)

// RouterOptions configures the jobs HTTP module.
type RouterOptions struct {
	Service *jobssvc.Service
	// Cache wraps the public GET routes with the read-through response
	// cache. Nil leaves them uncached.
	Cache func(http.Handler) http.Handler
	// Auth guards the employer write routes.
	Auth func(http.Handler) http.Handler
}

// Router mounts the job posting endpoints:
//
//	GET    /          public listing (cached)
//	GET    /{id}      public detail (cached)
//	POST   /          create a posting
//	PATCH  /{id}      edit a posting
//	POST   /{id}/close close a posting
//	DELETE /{id}      delete a posting
//	GET    /mine      the caller's postings, open and closed
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pub chi.Router) {
		if opts.Cache != nil {
			pub.Use(opts.Cache)
		}
		pub.Get("/", handleList(opts.Service))
		pub.Get("/{id}", handleGet(opts.Service))
	})

	r.Group(func(authed chi.Router) {
		authed.Use(opts.Auth)
		authed.Get("/mine", handleMine(opts.Service))
		authed.Post("/", handleCreate(opts.Service))
		authed.Patch("/{id}", handleUpdate(opts.Service))
		authed.Post("/{id}/close", handleClose(opts.Service))
		authed.Delete("/{id}", handleDelete(opts.Service))
	})

	return r
}

func handleList(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := jobssvc.ListFilter{Location: q.Get("location")}
		if v := q.Get("featured"); v != "" {
			featured := v == "true"
			filter.Featured = &featured
		}
		if v, err := strconv.Atoi(q.Get("limit")); err == nil {
			filter.Limit = v
		}
		if v, err := strconv.Atoi(q.Get("offset")); err == nil {
			filter.Offset = v
		}

		list, err := svc.List(r.Context(), filter)
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "failed to list jobs")
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

func handleGet(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid job id")
			return
		}

		job, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, jobssvc.ErrJobNotFound) {
				httpx.Error(w, http.StatusNotFound, "job not found")
				return
			}
			httpx.Error(w, http.StatusInternalServerError, "failed to load job")
			return
		}
		httpx.JSON(w, http.StatusOK, job)
	}
}

func handleMine(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		list, err := svc.List(r.Context(), jobssvc.ListFilter{EmployerID: &employerID})
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "failed to list jobs")
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

func handleCreate(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var params jobssvc.CreateJobParams
		if err := httpx.Decode(r, &params); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		job, err := svc.Create(r.Context(), employerID, params)
		if err != nil {
			writeJobError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, job)
	}
}

func handleUpdate(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid job id")
			return
		}

		var params jobssvc.UpdateJobParams
		if err := httpx.Decode(r, &params); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		job, err := svc.Update(r.Context(), employerID, jobID, params)
		if err != nil {
			writeJobError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, job)
	}
}

func handleClose(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid job id")
			return
		}

		job, err := svc.Close(r.Context(), employerID, jobID)
		if err != nil {
			writeJobError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, job)
	}
}

func handleDelete(svc *jobssvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		jobID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid job id")
			return
		}

		if err := svc.Delete(r.Context(), employerID, jobID); err != nil {
			writeJobError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJobError maps service errors onto status codes. Plan limit
// rejections carry the plan and limit as machine-readable details so the
// client can render an upgrade prompt.
func writeJobError(w http.ResponseWriter, err error) {
	var limitErr *jobssvc.LimitReachedError
	switch {
	case errors.As(err, &limitErr):
		httpx.ErrorWithDetails(w, http.StatusForbidden, limitErr.Error(), map[string]any{
			"plan":     limitErr.Plan,
			"limit":    limitErr.Limit,
			"resource": limitErr.Resource,
		})
	case errors.Is(err, jobssvc.ErrJobNotFound):
		httpx.Error(w, http.StatusNotFound, "job not found")
	case errors.Is(err, jobssvc.ErrNotJobOwner):
		httpx.Error(w, http.StatusForbidden, "job belongs to another employer")
	case errors.Is(err, httpx.ErrInvalidBody):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	default:
		httpx.Error(w, http.StatusBadRequest, err.Error())
	}
}

func callerID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := token.UserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
