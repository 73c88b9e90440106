package location

import (
	"context"
	"sync"

	"github.com/example/driver-rides/internal/models"
)

// StaticDevice reports a configured position, the way a simulator or a
// development build does. Reverse geocoding is delegated to Geocoder; with
// none configured every lookup resolves to no records.
type StaticDevice struct {
	mu       sync.RWMutex
	position models.Coord
	granted  bool
	geocoder Geocoder
}

func NewStaticDevice(position models.Coord, granted bool, geocoder Geocoder) *StaticDevice {
	return &StaticDevice{position: position, granted: granted, geocoder: geocoder}
}

func (d *StaticDevice) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.granted, nil
}

func (d *StaticDevice) CurrentPosition(ctx context.Context) (models.Coord, error) {
	if err := ctx.Err(); err != nil {
		return models.Coord{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.position, nil
}

func (d *StaticDevice) ReverseGeocode(ctx context.Context, c models.Coord) ([]models.Address, error) {
	if d.geocoder == nil {
		return nil, nil
	}
	return d.geocoder.ReverseGeocode(ctx, c)
}

// MoveTo changes the reported position.
func (d *StaticDevice) MoveTo(c models.Coord) {
	d.mu.Lock()
	d.position = c
	d.mu.Unlock()
}

func (d *StaticDevice) SetPermission(granted bool) {
	d.mu.Lock()
	d.granted = granted
	d.mu.Unlock()
}
