package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/driver-rides/internal/dispatch"
	"github.com/example/driver-rides/internal/location"
	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/rides"
	"github.com/example/driver-rides/internal/workflow"
)

// Server exposes the driver's ride state and operations to UI clients.
type Server struct {
	Workflow *workflow.Service
	WSReg    *dispatch.WSRegistry
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(wf *workflow.Service, ws *dispatch.WSRegistry, logger *slog.Logger) *Server {
	s := &Server{Workflow: wf, WSReg: ws, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/driver", s.handleGetDriver).Methods(http.MethodGet)
	api.HandleFunc("/driver/location", s.handleSetDriverLocation).Methods(http.MethodPut)

	api.HandleFunc("/rides", s.handleListRides).Methods(http.MethodGet)
	api.HandleFunc("/rides", s.handleReplaceRides).Methods(http.MethodPut)
	api.HandleFunc("/rides/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/rides/completed", s.handleCompleted).Methods(http.MethodGet)
	api.HandleFunc("/rides/addresses", s.handleAddresses).Methods(http.MethodGet)
	api.HandleFunc("/rides/selected", s.handleGetSelected).Methods(http.MethodGet)
	api.HandleFunc("/rides/selected", s.handleSetSelected).Methods(http.MethodPut)
	api.HandleFunc("/rides/selected", s.handleClearSelected).Methods(http.MethodDelete)
	api.HandleFunc("/rides/{id}/accept", s.handleAccept).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/decline", s.handleDecline).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/pickup", s.handlePickup).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/dropoff", s.handleDropOff).Methods(http.MethodPost)
	api.HandleFunc("/geocode", s.handleGeocode).Methods(http.MethodGet)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{client_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Workflow.Store.Driver())
}

func (s *Server) handleSetDriverLocation(w http.ResponseWriter, r *http.Request) {
	var c models.Coord
	if !decodeValid(w, r, &c) {
		return
	}
	s.Workflow.Store.SetDriverLocation(c)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rides": s.Workflow.Store.Rides()})
}

// rideInput is one externally sourced ride. Both endpoints are required and
// the times are ISO 8601.
type rideInput struct {
	ID          string            `json:"id" validate:"required"`
	Rider       models.Rider      `json:"rider"`
	DriverID    *string           `json:"driverId"`
	Pickup      *models.Coord     `json:"pickupLocation" validate:"required"`
	Destination *models.Coord     `json:"destination" validate:"required"`
	Status      models.RideStatus `json:"status" validate:"required,oneof=pending accepted declined ongoing completed"`
	PickupTime  string            `json:"pickupTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Timestamp   string            `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

func (in rideInput) ride() models.RideRequest {
	return models.RideRequest{
		ID:          in.ID,
		Rider:       in.Rider,
		DriverID:    in.DriverID,
		Pickup:      *in.Pickup,
		Destination: *in.Destination,
		Status:      in.Status,
		PickupTime:  in.PickupTime,
		Timestamp:   in.Timestamp,
	}
}

type ridesBatch struct {
	Rides []rideInput `json:"rides" validate:"unique=ID,dive"`
}

// handleReplaceRides ingests an externally sourced batch in place of the generator.
func (s *Server) handleReplaceRides(w http.ResponseWriter, r *http.Request) {
	var batch ridesBatch
	if !decodeValid(w, r, &batch) {
		return
	}
	list := make([]models.RideRequest, 0, len(batch.Rides))
	for _, in := range batch.Rides {
		if in.Status.IsTerminal() {
			writeError(w, http.StatusBadRequest, "ride "+in.ID+" has terminal status "+string(in.Status))
			return
		}
		if (in.Status == models.StatusPending) != (in.DriverID == nil) {
			writeError(w, http.StatusBadRequest, "ride "+in.ID+": driverId must be null exactly when pending")
			return
		}
		list = append(list, in.ride())
	}
	s.Workflow.Store.SetRideRequests(list)
	writeJSON(w, http.StatusOK, map[string]any{"rides": s.Workflow.Store.Rides()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	list, err := s.Workflow.Refresh(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": list})
}

func (s *Server) handleCompleted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rides": s.Workflow.Store.CompletedRides()})
}

func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"addresses": s.Workflow.Addresses(r.Context())})
}

func (s *Server) handleGetSelected(w http.ResponseWriter, r *http.Request) {
	ride, ok := s.Workflow.Store.SelectedRide()
	if !ok {
		writeError(w, http.StatusNotFound, "no ride selected")
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

type selectRequest struct {
	ID string `json:"id" validate:"required"`
}

func (s *Server) handleSetSelected(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeValid(w, r, &req) {
		return
	}
	ride, err := s.Workflow.Select(req.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleClearSelected(w http.ResponseWriter, r *http.Request) {
	s.Workflow.Deselect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	trip, err := s.Workflow.Accept(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDecline(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Workflow.Decline(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handlePickup(w http.ResponseWriter, r *http.Request) {
	trip, err := s.Workflow.Pickup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) handleDropOff(w http.ResponseWriter, r *http.Request) {
	ride, err := s.Workflow.DropOff(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	c := models.Coord{Lat: lat, Lon: lon}
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be numbers")
		return
	}
	if err := getValidator().Struct(c); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": s.Workflow.Location.ReverseGeocode(r.Context(), c)})
}

var upgrader = websocket.Upgrader{}

// handleWS registers a UI client for notifications until it disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["client_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "client_id", id, "error", err)
		return
	}
	s.WSReg.Add(id, conn)
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				s.WSReg.Remove(id, conn)
				return
			}
		}
	}()
}

// writeErr maps core errors to status codes. Missing rides are a normal,
// non-fatal outcome and answer 404.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, rides.ErrRideNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rides.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, location.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, location.ErrLocationUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
