package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/eventloop"
	"github.com/joeblew999/plat-legend/internal/service"
)

// apiError maps engine errors onto HTTP statuses.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var (
		ce *errs.ConfigError
		le *errs.LoadError
		fe *errs.FetchError
	)
	switch {
	case errors.Is(err, service.ErrLayerNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &ce):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.As(err, &le), errors.As(err, &fe):
		return huma.Error502BadGateway(err.Error())
	case errors.Is(err, eventloop.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable(err.Error())
	}
	return huma.Error500InternalServerError("internal error", err)
}
