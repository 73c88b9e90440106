// Package workflow drives one driver through the ride cycle: locate, load
// nearby requests, accept or decline, pick up, drop off.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/driver-rides/internal/dispatch"
	"github.com/example/driver-rides/internal/enrich"
	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/observability"
	"github.com/example/driver-rides/internal/rides"
	"github.com/example/driver-rides/internal/route"
)

type Locator interface {
	AcquireCurrentLocation(ctx context.Context) (models.Coord, error)
	ReverseGeocode(ctx context.Context, c models.Coord) string
}

// RideSource produces the batch of requests around a driver position.
type RideSource interface {
	Generate(driver models.Coord) []models.RideRequest
}

type Service struct {
	Location    Locator
	Source      RideSource
	Store       *rides.Store
	Router      route.Router // optional; straight lines when nil
	Notifier    dispatch.Notifier
	Logger      *slog.Logger
	SpeedMps    float64
	EnrichLimit int
}

// Trip is a ride together with the path the driver should follow next.
// Path is empty when the driver position is unknown.
type Trip struct {
	Ride       models.RideRequest `json:"ride"`
	Path       []models.Coord     `json:"path"`
	ETASeconds float64            `json:"eta_seconds"`
}

// Refresh acquires the driver position and replaces the active requests with a
// fresh batch around it. On a location failure the store is left untouched.
func (s *Service) Refresh(ctx context.Context) ([]models.RideRequest, error) {
	c, err := s.Location.AcquireCurrentLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh rides: %w", err)
	}
	s.Store.SetDriverLocation(c)
	batch := s.Source.Generate(c)
	s.Store.SetRideRequests(batch)
	s.updateGauges()
	s.Logger.InfoContext(ctx, "ride requests refreshed", "count", len(batch), "lat", c.Lat, "lon", c.Lon)
	if len(batch) == 0 {
		s.notify(ctx, models.NotifyNoRidesAvailable, "", "No ride requests available nearby")
	}
	return s.Store.Rides(), nil
}

// Select highlights a ride for the accept/decline decision.
func (s *Service) Select(id string) (models.RideRequest, error) {
	r, ok := s.Store.Ride(id)
	if !ok {
		return models.RideRequest{}, rides.ErrRideNotFound
	}
	s.Store.SetSelectedRide(&r)
	return r, nil
}

func (s *Service) Deselect() { s.Store.ClearSelectedRide() }

// Accept assigns the ride to this driver and routes the driver to the pickup.
func (s *Service) Accept(ctx context.Context, id string) (Trip, error) {
	r, err := s.Store.AcceptRide(id)
	s.record(ctx, "accept", id, err)
	if err != nil {
		return Trip{}, err
	}
	s.Store.SetSelectedRide(&r)
	trip := Trip{Ride: r}
	if loc := s.Store.Driver().Location; loc != nil {
		trip.Path = route.ComputeRoute(ctx, s.Router, *loc, r.Pickup, s.Logger)
		trip.ETASeconds = route.EstimateSeconds(trip.Path, s.SpeedMps)
	}
	s.notify(ctx, models.NotifyRideAccepted, r.ID, fmt.Sprintf("Ride accepted for %s", r.Rider.Name))
	return trip, nil
}

func (s *Service) Decline(ctx context.Context, id string) (models.RideRequest, error) {
	r, err := s.Store.DeclineRide(id)
	s.record(ctx, "decline", id, err)
	if err != nil {
		return models.RideRequest{}, err
	}
	s.notify(ctx, models.NotifyRideDeclined, r.ID, "Ride declined")
	if len(s.Store.Rides()) == 0 {
		s.notify(ctx, models.NotifyNoRidesAvailable, "", "No ride requests available nearby")
	}
	return r, nil
}

// Pickup starts the ride and routes from pickup to destination.
func (s *Service) Pickup(ctx context.Context, id string) (Trip, error) {
	r, err := s.Store.StartRide(id)
	s.record(ctx, "pickup", id, err)
	if err != nil {
		return Trip{}, err
	}
	path := route.ComputeRoute(ctx, s.Router, r.Pickup, r.Destination, s.Logger)
	s.notify(ctx, models.NotifyRideStarted, r.ID, fmt.Sprintf("Picked up %s", r.Rider.Name))
	return Trip{Ride: r, Path: path, ETASeconds: route.EstimateSeconds(path, s.SpeedMps)}, nil
}

// DropOff completes the ride and moves it to the history.
func (s *Service) DropOff(ctx context.Context, id string) (models.RideRequest, error) {
	r, err := s.Store.CompleteRide(id)
	s.record(ctx, "dropoff", id, err)
	if err != nil {
		return models.RideRequest{}, err
	}
	s.notify(ctx, models.NotifyRideCompleted, r.ID, "Ride completed")
	return r, nil
}

// Addresses resolves pickup and destination addresses of the active rides.
func (s *Service) Addresses(ctx context.Context) map[string]enrich.RideAddresses {
	return enrich.Addresses(ctx, s.Location, s.Store.Rides(), s.EnrichLimit)
}

func (s *Service) notify(ctx context.Context, kind models.NotificationKind, rideID, msg string) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Notify(ctx, dispatch.New(kind, rideID, msg))
}

func (s *Service) record(ctx context.Context, op, id string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, rides.ErrRideNotFound):
		outcome = "not_found"
	case errors.Is(err, rides.ErrInvalidTransition):
		outcome = "invalid_transition"
	case err != nil:
		outcome = "error"
	}
	observability.RideTransitions.WithLabelValues(op, outcome).Inc()
	s.updateGauges()
	if err != nil {
		s.Logger.InfoContext(ctx, "ride operation ignored", "op", op, "ride_id", id, "outcome", outcome)
		return
	}
	s.Logger.InfoContext(ctx, "ride operation", "op", op, "ride_id", id, "driver_id", s.Store.DriverID())
}

func (s *Service) updateGauges() {
	observability.ActiveRides.Set(float64(len(s.Store.Rides())))
	observability.CompletedRides.Set(float64(len(s.Store.CompletedRides())))
}
