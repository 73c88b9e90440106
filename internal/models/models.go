package models

import "time"

// Coord is an acquired position in degrees. A position that has not been
// acquired yet is represented by a nil *Coord, never by a half-filled value.
type Coord struct {
	Lat float64 `json:"latitude" validate:"latitude"`
	Lon float64 `json:"longitude" validate:"longitude"`
}

type RideStatus string

const (
	StatusPending   RideStatus = "pending"
	StatusAccepted  RideStatus = "accepted"
	StatusDeclined  RideStatus = "declined"
	StatusOngoing   RideStatus = "ongoing"
	StatusCompleted RideStatus = "completed"
)

// IsTerminal reports whether a ride in this status has left the active collection.
func (s RideStatus) IsTerminal() bool {
	return s == StatusDeclined || s == StatusCompleted
}

type Rider struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type RideRequest struct {
	ID          string     `json:"id" validate:"required"`
	Rider       Rider      `json:"rider"`
	DriverID    *string    `json:"driverId"`
	Pickup      Coord      `json:"pickupLocation"`
	Destination Coord      `json:"destination"`
	Status      RideStatus `json:"status" validate:"required,oneof=pending accepted declined ongoing completed"`
	PickupTime  string     `json:"pickupTime"`
	Timestamp   string     `json:"timestamp"`
}

// Clone returns a copy that shares no pointers with r.
func (r RideRequest) Clone() RideRequest {
	if r.DriverID != nil {
		id := *r.DriverID
		r.DriverID = &id
	}
	return r
}

type DriverState struct {
	Location    *Coord       `json:"location"`
	OngoingRide *RideRequest `json:"ongoingRide"`
}

// Address is one reverse geocoding record. Any component may be missing.
type Address struct {
	Street   *string `json:"street"`
	District *string `json:"district"`
	City     *string `json:"city"`
	Region   *string `json:"region"`
}

type NotificationKind string

const (
	NotifyLocationError    NotificationKind = "location_error"
	NotifyGeocodeError     NotificationKind = "geocode_error"
	NotifyRideAccepted     NotificationKind = "ride_accepted"
	NotifyRideDeclined     NotificationKind = "ride_declined"
	NotifyRideStarted      NotificationKind = "ride_started"
	NotifyRideCompleted    NotificationKind = "ride_completed"
	NotifyNoRidesAvailable NotificationKind = "no_rides_available"
)

type Notification struct {
	ID      string           `json:"id"`
	Kind    NotificationKind `json:"kind"`
	RideID  string           `json:"ride_id,omitempty"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}
