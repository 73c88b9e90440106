// Package mockgen derives a fixed batch of synthetic ride requests around a
// driver position. It is the only ride source until a live feed replaces it;
// the store accepts any batch, so swapping the source needs no store changes.
package mockgen

import (
	"time"

	"github.com/example/driver-rides/internal/models"
)

// BatchSize is the number of requests every Generate call returns.
const BatchSize = 3

// TimeLayout is ISO 8601 in UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

type offset struct{ dLat, dLon float64 }

type template struct {
	id          string
	rider       models.Rider
	pickup      offset
	destination offset
}

var templates = [BatchSize]template{
	{
		id:          "1",
		rider:       models.Rider{ID: "111", Name: "Alice Johnson", Phone: "+15550100111"},
		pickup:      offset{0.0035, 0.011},
		destination: offset{0.01, 0.1},
	},
	{
		id:          "2",
		rider:       models.Rider{ID: "222", Name: "Bob Smith", Phone: "+15550100222"},
		pickup:      offset{-0.002, -0.002},
		destination: offset{0.06, 0.06},
	},
	{
		id:          "3",
		rider:       models.Rider{ID: "333", Name: "Carol Davis", Phone: "+15550100333"},
		pickup:      offset{0.003, -0.003},
		destination: offset{0.07, 0.07},
	},
}

// Generate returns BatchSize pending requests offset from driver. Ids repeat
// across calls, so callers replace the active collection instead of merging.
func Generate(driver models.Coord, now time.Time) []models.RideRequest {
	ts := now.UTC().Format(TimeLayout)
	out := make([]models.RideRequest, 0, BatchSize)
	for _, t := range templates {
		out = append(out, models.RideRequest{
			ID:          t.id,
			Rider:       t.rider,
			DriverID:    nil,
			Pickup:      t.pickup.apply(driver),
			Destination: t.destination.apply(driver),
			Status:      models.StatusPending,
			PickupTime:  ts,
			Timestamp:   ts,
		})
	}
	return out
}

func (o offset) apply(c models.Coord) models.Coord {
	return models.Coord{Lat: c.Lat + o.dLat, Lon: c.Lon + o.dLon}
}

// Generator binds Generate to a clock.
type Generator struct {
	Now func() time.Time
}

func New() *Generator { return &Generator{Now: time.Now} }

func (g *Generator) Generate(driver models.Coord) []models.RideRequest {
	now := time.Now
	if g != nil && g.Now != nil {
		now = g.Now
	}
	return Generate(driver, now())
}
