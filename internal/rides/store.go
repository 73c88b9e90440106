// Package rides holds the authoritative in-memory ride state for one driver:
// the active ride requests, the completed history, the selection and the
// driver's last known position.
package rides

import (
	"errors"
	"sync"

	"github.com/example/driver-rides/internal/models"
)

// DefaultDriverID is assigned to accepted rides unless WithDriverID overrides it.
const DefaultDriverID = "current driver"

var (
	// ErrRideNotFound means the id is not in the active collection. State is unchanged.
	ErrRideNotFound = errors.New("ride not found")
	// ErrInvalidTransition means the ride exists but cannot take the requested step.
	ErrInvalidTransition = errors.New("invalid ride transition")
)

// IsNotFound reports whether err came from an operation on a missing ride.
func IsNotFound(err error) bool { return errors.Is(err, ErrRideNotFound) }

// Store is safe for concurrent use; every mutation is serialized on mu.
type Store struct {
	mu        sync.RWMutex
	driverID  string
	active    []models.RideRequest
	completed []models.RideRequest
	selected  string
	location  *models.Coord
	ongoing   string
}

type Option func(*Store)

// WithDriverID sets the id written into accepted rides.
func WithDriverID(id string) Option {
	return func(s *Store) {
		if id != "" {
			s.driverID = id
		}
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{driverID: DefaultDriverID}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DriverID returns the id accepted rides are assigned to.
func (s *Store) DriverID() string { return s.driverID }

// SetRideRequests replaces the active collection. Ids are not checked for
// uniqueness here; the caller owns that guarantee. The selection and the
// ongoing ride survive only when the new batch carries the same ride (same id,
// rider and endpoints); a regenerated batch that merely reuses ids clears them.
func (s *Store) SetRideRequests(list []models.RideRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.active
	s.active = cloneAll(list)
	if s.selected != "" && !s.sameRideLocked(prev, s.selected) {
		s.selected = ""
	}
	if s.ongoing != "" {
		i := s.indexLocked(s.ongoing)
		if !s.sameRideLocked(prev, s.ongoing) || s.active[i].Status != models.StatusOngoing {
			s.ongoing = ""
		}
	}
}

// sameRideLocked reports whether id names the same trip in prev and in the
// current active collection.
func (s *Store) sameRideLocked(prev []models.RideRequest, id string) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	for _, p := range prev {
		if p.ID == id {
			cur := s.active[i]
			return p.Rider.ID == cur.Rider.ID && p.Pickup == cur.Pickup && p.Destination == cur.Destination
		}
	}
	return false
}

// SetSelectedRide points the selection at r, or clears it when r is nil.
// Only the id is kept; the ride itself stays in the active collection.
func (s *Store) SetSelectedRide(r *models.RideRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r == nil {
		s.selected = ""
		return
	}
	s.selected = r.ID
}

func (s *Store) ClearSelectedRide() { s.SetSelectedRide(nil) }

// SelectedRide resolves the selection against the active collection.
func (s *Store) SelectedRide() (models.RideRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == "" {
		return models.RideRequest{}, false
	}
	i := s.indexLocked(s.selected)
	if i < 0 {
		return models.RideRequest{}, false
	}
	return s.active[i].Clone(), true
}

// AcceptRide moves a pending ride to accepted and assigns the driver.
// Accepting an already accepted ride changes nothing; an ongoing ride is
// refused with ErrInvalidTransition.
func (s *Store) AcceptRide(id string) (models.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.RideRequest{}, ErrRideNotFound
	}
	r := &s.active[i]
	switch r.Status {
	case models.StatusPending:
		driverID := s.driverID
		r.Status = models.StatusAccepted
		r.DriverID = &driverID
	case models.StatusAccepted:
	default:
		return r.Clone(), ErrInvalidTransition
	}
	return r.Clone(), nil
}

// DeclineRide drops the ride from the active collection. No declined record is kept.
func (s *Store) DeclineRide(id string) (models.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.RideRequest{}, ErrRideNotFound
	}
	r := s.removeLocked(i)
	r.Status = models.StatusDeclined
	r.DriverID = nil
	return r, nil
}

// StartRide is the pickup event: accepted becomes ongoing and the ride
// becomes the driver's ongoing ride.
func (s *Store) StartRide(id string) (models.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.RideRequest{}, ErrRideNotFound
	}
	r := &s.active[i]
	switch r.Status {
	case models.StatusAccepted:
		r.Status = models.StatusOngoing
	case models.StatusOngoing:
	default:
		return r.Clone(), ErrInvalidTransition
	}
	s.ongoing = r.ID
	return r.Clone(), nil
}

// CompleteRide appends a completed copy of the ride to the history and removes
// it from the active collection, whatever its prior status.
func (s *Store) CompleteRide(id string) (models.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.RideRequest{}, ErrRideNotFound
	}
	r := s.removeLocked(i)
	r.Status = models.StatusCompleted
	if r.DriverID == nil {
		driverID := s.driverID
		r.DriverID = &driverID
	}
	s.completed = append(s.completed, r)
	return r.Clone(), nil
}

// EndRide clears the ongoing ride without touching either collection.
func (s *Store) EndRide() {
	s.mu.Lock()
	s.ongoing = ""
	s.mu.Unlock()
}

func (s *Store) SetDriverLocation(c models.Coord) {
	s.mu.Lock()
	s.location = &c
	s.mu.Unlock()
}

// Rides returns a copy of the active collection in insertion order.
func (s *Store) Rides() []models.RideRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.active)
}

func (s *Store) Ride(id string) (models.RideRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.RideRequest{}, false
	}
	return s.active[i].Clone(), true
}

func (s *Store) CompletedRides() []models.RideRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.completed)
}

// Driver returns the driver's location and ongoing ride.
func (s *Store) Driver() models.DriverState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.DriverState
	if s.location != nil {
		loc := *s.location
		st.Location = &loc
	}
	if s.ongoing != "" {
		if i := s.indexLocked(s.ongoing); i >= 0 {
			r := s.active[i].Clone()
			st.OngoingRide = &r
		}
	}
	return st
}

func (s *Store) indexLocked(id string) int {
	for i := range s.active {
		if s.active[i].ID == id {
			return i
		}
	}
	return -1
}

// removeLocked deletes active[i] and drops any selection or ongoing reference to it.
func (s *Store) removeLocked(i int) models.RideRequest {
	r := s.active[i]
	s.active = append(s.active[:i:i], s.active[i+1:]...)
	if s.selected == r.ID {
		s.selected = ""
	}
	if s.ongoing == r.ID {
		s.ongoing = ""
	}
	return r
}

func cloneAll(in []models.RideRequest) []models.RideRequest {
	out := make([]models.RideRequest, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
