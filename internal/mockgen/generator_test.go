package mockgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/driver-rides/internal/models"
)

const eps = 1e-9

func TestGenerateScenarioOffsets(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 123_000_000, time.UTC)
	rides := Generate(models.Coord{Lat: 10.0, Lon: 20.0}, now)
	require.Len(t, rides, BatchSize)

	want := []struct {
		id          string
		pickup      models.Coord
		destination models.Coord
	}{
		{"1", models.Coord{Lat: 10.0035, Lon: 20.011}, models.Coord{Lat: 10.01, Lon: 20.1}},
		{"2", models.Coord{Lat: 9.998, Lon: 19.998}, models.Coord{Lat: 10.06, Lon: 20.06}},
		{"3", models.Coord{Lat: 10.003, Lon: 19.997}, models.Coord{Lat: 10.07, Lon: 20.07}},
	}
	for i, w := range want {
		r := rides[i]
		assert.Equal(t, w.id, r.ID)
		assert.InDelta(t, w.pickup.Lat, r.Pickup.Lat, eps)
		assert.InDelta(t, w.pickup.Lon, r.Pickup.Lon, eps)
		assert.InDelta(t, w.destination.Lat, r.Destination.Lat, eps)
		assert.InDelta(t, w.destination.Lon, r.Destination.Lon, eps)
	}
}

func TestGenerateInitialState(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 123_000_000, time.FixedZone("X", 3600))
	for _, c := range []models.Coord{{Lat: 0, Lon: 0}, {Lat: -33.86, Lon: 151.2}, {Lat: 89.9, Lon: -179.9}} {
		rides := Generate(c, now)
		require.Len(t, rides, BatchSize)
		for _, r := range rides {
			assert.Equal(t, models.StatusPending, r.Status)
			assert.Nil(t, r.DriverID)
			assert.Equal(t, "2024-03-01T11:30:00.123Z", r.Timestamp)
			assert.Equal(t, r.Timestamp, r.PickupTime)
			assert.NotEmpty(t, r.Rider.ID)
		}
	}
}

func TestGenerateRepeatsIDs(t *testing.T) {
	a := Generate(models.Coord{Lat: 1, Lon: 1}, time.Now())
	b := Generate(models.Coord{Lat: 2, Lon: 2}, time.Now())
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
	}
	seen := map[string]bool{}
	for _, r := range a {
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}
}

func TestGeneratorUsesClock(t *testing.T) {
	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	g := &Generator{Now: func() time.Time { return fixed }}
	rides := g.Generate(models.Coord{Lat: 10, Lon: 20})
	assert.Equal(t, "2030-01-02T03:04:05.000Z", rides[0].Timestamp)
}
