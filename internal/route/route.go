// Package route computes the path the driver follows between two points.
// Every path handed out starts at the origin, ends at the destination and
// has at least two points, whatever router produced it.
package route

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/driver-rides/internal/geo"
	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/observability"
)

// DefaultSpeedMps is about 28.8 km/h, a city driving average.
const DefaultSpeedMps = 8.0

var ErrBadPath = errors.New("route does not connect endpoints")

// Router returns an ordered path from -> to.
type Router interface {
	Route(ctx context.Context, from, to models.Coord) ([]models.Coord, error)
}

// StraightLine is the two-point route.
type StraightLine struct{}

func (StraightLine) Route(_ context.Context, from, to models.Coord) ([]models.Coord, error) {
	return []models.Coord{from, to}, nil
}

// ComputeRoute asks r for a path and falls back to a straight line when the
// router fails or returns a path that does not connect from and to.
func ComputeRoute(ctx context.Context, r Router, from, to models.Coord, logger *slog.Logger) []models.Coord {
	if r == nil {
		observability.RouteComputations.WithLabelValues("straight").Inc()
		path, _ := StraightLine{}.Route(ctx, from, to)
		return path
	}
	path, err := r.Route(ctx, from, to)
	if err == nil {
		err = Validate(path, from, to)
	}
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "route lookup failed, using straight line", "error", err)
		}
		observability.RouteComputations.WithLabelValues("fallback").Inc()
		path, _ = StraightLine{}.Route(ctx, from, to)
		return path
	}
	observability.RouteComputations.WithLabelValues("router").Inc()
	return path
}

// Validate checks the endpoint contract.
func Validate(path []models.Coord, from, to models.Coord) error {
	if len(path) < 2 || path[0] != from || path[len(path)-1] != to {
		return ErrBadPath
	}
	return nil
}

// EstimateSeconds is path length divided by speed.
func EstimateSeconds(path []models.Coord, speedMps float64) float64 {
	if speedMps <= 0 {
		speedMps = DefaultSpeedMps
	}
	return geo.PathLength(path) / speedMps
}
