package rides

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/driver-rides/internal/mockgen"
	"github.com/example/driver-rides/internal/models"
)

func seeded(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := NewStore(opts...)
	s.SetRideRequests(mockgen.Generate(models.Coord{Lat: 10, Lon: 20}, time.Now()))
	require.Len(t, s.Rides(), mockgen.BatchSize)
	return s
}

func TestAcceptRideAssignsPlaceholderDriver(t *testing.T) {
	s := seeded(t)
	r, err := s.AcceptRide("1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, r.Status)
	require.NotNil(t, r.DriverID)
	assert.Equal(t, DefaultDriverID, *r.DriverID)

	again, err := s.AcceptRide("1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, again.Status)
	assert.Equal(t, DefaultDriverID, *again.DriverID)

	stored, ok := s.Ride("1")
	require.True(t, ok)
	assert.Equal(t, models.StatusAccepted, stored.Status)
}

func TestAcceptRideUsesConfiguredDriver(t *testing.T) {
	assert.Equal(t, DefaultDriverID, NewStore(WithDriverID("")).DriverID())
	assert.Equal(t, "d-42", NewStore(WithDriverID("d-42")).DriverID())
	s := seeded(t, WithDriverID("driver-42"))
	r, err := s.AcceptRide("2")
	require.NoError(t, err)
	assert.Equal(t, "driver-42", *r.DriverID)
}

func TestDeclineRideRemovesAndLaterOpsAreNotFound(t *testing.T) {
	s := seeded(t)
	r, err := s.DeclineRide("2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, r.Status)
	assert.Nil(t, r.DriverID)
	assert.Len(t, s.Rides(), 2)
	_, ok := s.Ride("2")
	assert.False(t, ok)

	_, err = s.AcceptRide("2")
	assert.ErrorIs(t, err, ErrRideNotFound)
	_, err = s.CompleteRide("2")
	assert.True(t, IsNotFound(err))
	_, err = s.DeclineRide("2")
	assert.ErrorIs(t, err, ErrRideNotFound)
	assert.Len(t, s.Rides(), 2)
	assert.Empty(t, s.CompletedRides())
}

func TestCompleteRideMovesExactlyOneEntry(t *testing.T) {
	s := seeded(t)
	_, err := s.AcceptRide("3")
	require.NoError(t, err)
	_, err = s.StartRide("3")
	require.NoError(t, err)

	before, beforeDone := len(s.Rides()), len(s.CompletedRides())
	r, err := s.CompleteRide("3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, r.Status)
	assert.Equal(t, before-1, len(s.Rides()))
	assert.Equal(t, beforeDone+1, len(s.CompletedRides()))
	assert.Nil(t, s.Driver().OngoingRide)
}

func TestCompleteRideForcesStatusFromPending(t *testing.T) {
	s := seeded(t)
	r, err := s.CompleteRide("2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, r.Status)
	require.NotNil(t, r.DriverID)
	done := s.CompletedRides()
	require.Len(t, done, 1)
	assert.Equal(t, "2", done[0].ID)
}

func TestEmptyCollectionOperationsAreNotFound(t *testing.T) {
	s := seeded(t)
	s.SetRideRequests([]models.RideRequest{})
	for _, id := range []string{"1", "2", "3", "", "missing"} {
		_, err := s.AcceptRide(id)
		assert.ErrorIs(t, err, ErrRideNotFound)
		_, err = s.DeclineRide(id)
		assert.ErrorIs(t, err, ErrRideNotFound)
		_, err = s.CompleteRide(id)
		assert.ErrorIs(t, err, ErrRideNotFound)
		_, err = s.StartRide(id)
		assert.ErrorIs(t, err, ErrRideNotFound)
	}
	assert.Empty(t, s.Rides())
	assert.Empty(t, s.CompletedRides())
}

func TestScenarioAcceptThenComplete(t *testing.T) {
	s := NewStore()
	driver := models.Coord{Lat: 10.0, Lon: 20.0}
	s.SetDriverLocation(driver)
	batch := mockgen.Generate(driver, time.Now())
	assert.InDelta(t, 10.0035, batch[0].Pickup.Lat, 1e-9)
	assert.InDelta(t, 20.011, batch[0].Pickup.Lon, 1e-9)
	s.SetRideRequests(batch)

	r, err := s.AcceptRide("1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, r.Status)
	assert.Equal(t, DefaultDriverID, *r.DriverID)

	_, err = s.CompleteRide("1")
	require.NoError(t, err)
	_, ok := s.Ride("1")
	assert.False(t, ok)
	done := s.CompletedRides()
	require.Len(t, done, 1)
	assert.Equal(t, "1", done[0].ID)
	assert.Equal(t, models.StatusCompleted, done[0].Status)
}

func TestStartRideTransitions(t *testing.T) {
	s := seeded(t)
	_, err := s.StartRide("1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.AcceptRide("1")
	require.NoError(t, err)
	r, err := s.StartRide("1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, r.Status)

	st := s.Driver()
	require.NotNil(t, st.OngoingRide)
	assert.Equal(t, "1", st.OngoingRide.ID)

	_, err = s.AcceptRide("1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	still, _ := s.Ride("1")
	assert.Equal(t, models.StatusOngoing, still.Status)

	s.EndRide()
	assert.Nil(t, s.Driver().OngoingRide)
	_, ok := s.Ride("1")
	assert.True(t, ok)
}

func TestSelectionIsClearedByDeclineAndComplete(t *testing.T) {
	s := seeded(t)
	rides := s.Rides()

	s.SetSelectedRide(&rides[0])
	sel, ok := s.SelectedRide()
	require.True(t, ok)
	assert.Equal(t, "1", sel.ID)
	assert.Len(t, s.Rides(), 3, "selection must not remove the ride")

	s.SetSelectedRide(&rides[1])
	sel, _ = s.SelectedRide()
	assert.Equal(t, "2", sel.ID)

	_, err := s.DeclineRide("2")
	require.NoError(t, err)
	_, ok = s.SelectedRide()
	assert.False(t, ok)

	s.SetSelectedRide(&rides[2])
	_, err = s.CompleteRide("3")
	require.NoError(t, err)
	_, ok = s.SelectedRide()
	assert.False(t, ok)

	s.SetSelectedRide(&rides[0])
	s.ClearSelectedRide()
	_, ok = s.SelectedRide()
	assert.False(t, ok)
}

func TestSetRideRequestsDropsStaleSelection(t *testing.T) {
	s := seeded(t)
	rides := s.Rides()
	s.SetSelectedRide(&rides[2])
	s.SetRideRequests(rides[:2])
	_, ok := s.SelectedRide()
	assert.False(t, ok)
}

func TestSetRideRequestsDropsSelectionOnReusedID(t *testing.T) {
	s := seeded(t)
	r, _ := s.Ride("1")
	s.SetSelectedRide(&r)

	s.SetRideRequests(mockgen.Generate(models.Coord{Lat: 40, Lon: -70}, time.Now()))
	_, ok := s.SelectedRide()
	assert.False(t, ok, "a regenerated ride with the same id is a different trip")
}

func TestSetRideRequestsKeepsSelectionForSameRide(t *testing.T) {
	s := seeded(t)
	rides := s.Rides()
	s.SetSelectedRide(&rides[1])

	rides[1].Status = models.StatusAccepted
	driver := "d-2"
	rides[1].DriverID = &driver
	s.SetRideRequests(rides)
	sel, ok := s.SelectedRide()
	require.True(t, ok)
	assert.Equal(t, rides[1].ID, sel.ID)
	assert.Equal(t, models.StatusAccepted, sel.Status)
}

func TestSetRideRequestsClearsOngoingOnRegeneration(t *testing.T) {
	s := seeded(t)
	_, err := s.AcceptRide("1")
	require.NoError(t, err)
	_, err = s.StartRide("1")
	require.NoError(t, err)
	require.NotNil(t, s.Driver().OngoingRide)

	s.SetRideRequests(mockgen.Generate(models.Coord{Lat: 10, Lon: 20}, time.Now()))
	assert.Nil(t, s.Driver().OngoingRide, "the replacement ride 1 is pending again")
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := seeded(t)
	_, err := s.AcceptRide("1")
	require.NoError(t, err)

	snap := s.Rides()
	snap[0].Status = models.StatusCompleted
	*snap[0].DriverID = "someone else"

	r, _ := s.Ride("1")
	assert.Equal(t, models.StatusAccepted, r.Status)
	assert.Equal(t, DefaultDriverID, *r.DriverID)

	in := mockgen.Generate(models.Coord{}, time.Now())
	s.SetRideRequests(in)
	in[0].Status = models.StatusOngoing
	r, _ = s.Ride("1")
	assert.Equal(t, models.StatusPending, r.Status)
}

func TestDriverLocationOverwrite(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Driver().Location)
	s.SetDriverLocation(models.Coord{Lat: 1, Lon: 2})
	s.SetDriverLocation(models.Coord{Lat: 3, Lon: 4})
	loc := s.Driver().Location
	require.NotNil(t, loc)
	assert.Equal(t, models.Coord{Lat: 3, Lon: 4}, *loc)
}

func TestDriverIDInvariantHolds(t *testing.T) {
	s := seeded(t)
	_, _ = s.AcceptRide("1")
	_, _ = s.AcceptRide("3")
	_, _ = s.StartRide("3")
	check := func(r models.RideRequest) {
		unassigned := r.Status == models.StatusPending || r.Status == models.StatusDeclined
		assert.Equal(t, unassigned, r.DriverID == nil, "ride %s status %s", r.ID, r.Status)
	}
	for _, r := range s.Rides() {
		check(r)
	}
	_, _ = s.CompleteRide("2")
	for _, r := range s.CompletedRides() {
		check(r)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	s := NewStore()
	batch := make([]models.RideRequest, 0, 100)
	for i := 0; i < 100; i++ {
		batch = append(batch, models.RideRequest{ID: string(rune('A'+i%26)) + string(rune('a'+i/26)), Status: models.StatusPending})
	}
	s.SetRideRequests(batch)

	var wg sync.WaitGroup
	for _, r := range batch {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = s.AcceptRide(id)
			_, _ = s.CompleteRide(id)
			_, _ = s.CompleteRide(id)
		}(r.ID)
	}
	wg.Wait()
	assert.Empty(t, s.Rides())
	assert.Len(t, s.CompletedRides(), 100)
}
