package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packdrop-engine/api/responses"
	"github.com/angelmondragon/packdrop-engine/internal/cron"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
	"github.com/angelmondragon/packdrop-engine/pkg/logger"
)

// JobRunner triggers one tick of a registered job.
type JobRunner interface {
	RunOnce(ctx context.Context, name string) (cron.Summary, error)
}

// RunJob runs the named job immediately and returns its summary.
func RunJob(runner JobRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		summary, err := runner.RunOnce(r.Context(), name)
		switch {
		case errors.Is(err, cron.ErrJobNotFound):
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found"))
			return
		case errors.Is(err, cron.ErrJobSkipped):
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "job already running"))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "job failed").
				WithDetails(map[string]any{"job": name, "summary": summary}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"job": name, "summary": summary})
	}
}
