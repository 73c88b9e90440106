// Package location wraps the device location stack: permission, current
// position and reverse geocoding. Failures are absorbed here and surfaced as
// notifications; callers get either a typed error (acquisition) or a
// fallback string (geocoding).
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/driver-rides/internal/dispatch"
	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/observability"
)

// UnknownLocation is returned when an address cannot be resolved.
const UnknownLocation = "Unknown location"

const (
	placeholderStreet   = "Unnamed St."
	placeholderDistrict = "Unknown District"
	placeholderCity     = "Unknown City"
	placeholderRegion   = "Unknown Region"
)

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
)

// Geocoder resolves a coordinate to zero or more address records.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c models.Coord) ([]models.Address, error)
}

// Device is the boundary to the platform location services.
type Device interface {
	Geocoder
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (models.Coord, error)
}

type Provider struct {
	device   Device
	notifier dispatch.Notifier
	logger   *slog.Logger
	timeout  time.Duration
}

// NewProvider builds a provider. A zero timeout leaves the caller's context
// deadline as the only bound on device calls.
func NewProvider(device Device, notifier dispatch.Notifier, logger *slog.Logger, timeout time.Duration) *Provider {
	if notifier == nil {
		notifier = dispatch.Nop{}
	}
	return &Provider{device: device, notifier: notifier, logger: logger, timeout: timeout}
}

// AcquireCurrentLocation asks for permission and then for the current position.
func (p *Provider) AcquireCurrentLocation(ctx context.Context) (models.Coord, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	granted, err := p.device.RequestPermission(ctx)
	if err != nil {
		return models.Coord{}, p.acquireFailed(ctx, fmt.Errorf("%w: permission request: %v", ErrLocationUnavailable, err))
	}
	if !granted {
		observability.LocationAcquisitions.WithLabelValues("denied").Inc()
		p.notifier.Notify(ctx, dispatch.New(models.NotifyLocationError, "", "Permission to access location was denied"))
		return models.Coord{}, ErrPermissionDenied
	}

	c, err := p.device.CurrentPosition(ctx)
	if err != nil {
		return models.Coord{}, p.acquireFailed(ctx, fmt.Errorf("%w: %v", ErrLocationUnavailable, err))
	}
	observability.LocationAcquisitions.WithLabelValues("ok").Inc()
	return c, nil
}

func (p *Provider) acquireFailed(ctx context.Context, err error) error {
	observability.LocationAcquisitions.WithLabelValues("unavailable").Inc()
	p.logger.ErrorContext(ctx, "error fetching driver location", "error", err)
	p.notifier.Notify(ctx, dispatch.New(models.NotifyLocationError, "", "Unable to fetch your location"))
	return err
}

// ReverseGeocode formats the first address record for c. It never fails:
// no result or any geocoder error yields UnknownLocation.
func (p *Provider) ReverseGeocode(ctx context.Context, c models.Coord) string {
	start := time.Now()
	defer func() { observability.GeocodeLatency.Observe(time.Since(start).Seconds()) }()

	addrs, err := p.device.ReverseGeocode(ctx, c)
	if err != nil {
		observability.GeocodeLookups.WithLabelValues("error").Inc()
		if ctx.Err() == nil {
			p.logger.WarnContext(ctx, "reverse geocoding error", "lat", c.Lat, "lon", c.Lon, "error", err)
			p.notifier.Notify(ctx, dispatch.New(models.NotifyGeocodeError, "", "Unable to resolve address"))
		}
		return UnknownLocation
	}
	if len(addrs) == 0 {
		observability.GeocodeLookups.WithLabelValues("empty").Inc()
		return UnknownLocation
	}
	observability.GeocodeLookups.WithLabelValues("ok").Inc()
	return FormatAddress(addrs[0])
}

// FormatAddress renders "street, district, city, region" with a placeholder
// for every missing component so the shape never changes.
func FormatAddress(a models.Address) string {
	return strings.Join([]string{
		orDefault(a.Street, placeholderStreet),
		orDefault(a.District, placeholderDistrict),
		orDefault(a.City, placeholderCity),
		orDefault(a.Region, placeholderRegion),
	}, ", ")
}

func orDefault(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}
