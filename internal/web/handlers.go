package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Bucknalla/go-gps-navigator/gps"
	"github.com/Bucknalla/go-gps-navigator/navigation"
	"github.com/Bucknalla/go-gps-navigator/osrm"
)

const (
	maxRequestBytes = 4 << 20
	writeWait       = 10 * time.Second
)

// createTripRequest carries the route either in native form or as a route
// service response, of which the first route is used.
type createTripRequest struct {
	InitialLocation *navigation.UserLocation       `json:"initial_location"`
	Route           *navigation.Route              `json:"route,omitempty"`
	OSRMResponse    *osrm.RouteResponse            `json:"osrm_response,omitempty"`
	StepAdvance     *navigation.StepAdvanceOptions `json:"step_advance,omitempty"`
}

type tripResponse struct {
	ID    uuid.UUID                        `json:"id"`
	State navigation.NavigationStateUpdate `json:"state"`
}

// simulateRequest overrides the simulation section of the server config.
type simulateRequest struct {
	Speed              *float64 `json:"speed,omitempty"` // knots
	Jitter             *float64 `json:"jitter,omitempty"`
	HorizontalAccuracy *float64 `json:"horizontal_accuracy,omitempty"`
	OutputRate         string   `json:"output_rate,omitempty"`
	TimeToLock         string   `json:"time_to_lock,omitempty"`
	Seed               int64    `json:"seed,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"trips":  len(s.tripIDs()),
	})
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"trips": s.tripIDs()})
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.InitialLocation == nil {
		http.Error(w, "initial_location is required", http.StatusBadRequest)
		return
	}
	if err := validateLocation(*req.InitialLocation); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	route, err := requestRoute(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	config, err := s.config.ControllerConfig()
	if req.StepAdvance != nil {
		config, err = s.config.ControllerConfigFor(*req.StepAdvance)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid step advance: %v", err), http.StatusBadRequest)
		return
	}

	trip := newTrip(*req.InitialLocation, route, config)
	s.addTrip(trip)
	log.Printf("Trip %s created with %d steps", trip.ID, len(route.Steps))

	writeJSON(w, http.StatusCreated, tripResponse{ID: trip.ID, State: trip.State()})
}

func requestRoute(req createTripRequest) (navigation.Route, error) {
	switch {
	case req.Route != nil && req.OSRMResponse != nil:
		return navigation.Route{}, errors.New("route and osrm_response are mutually exclusive")
	case req.Route != nil:
		for _, c := range req.Route.Geometry {
			if err := validateCoordinate(c); err != nil {
				return navigation.Route{}, fmt.Errorf("route geometry: %w", err)
			}
		}
		return *req.Route, nil
	case req.OSRMResponse != nil:
		routes, err := req.OSRMResponse.NavigationRoutes()
		if err != nil {
			return navigation.Route{}, err
		}
		return routes[0], nil
	default:
		return navigation.Route{}, errors.New("route or osrm_response is required")
	}
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tripResponse{ID: trip.ID, State: trip.State()})
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTripID(w, r)
	if !ok {
		return
	}
	trip, err := s.removeTrip(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	trip.Close()
	log.Printf("Trip %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}

	var location navigation.UserLocation
	if !decodeJSON(w, r, &location) {
		return
	}
	if err := validateLocation(location); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, tripResponse{ID: trip.ID, State: trip.UpdateLocation(location)})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tripResponse{ID: trip.ID, State: trip.Advance()})
}

func (s *Server) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}

	var req simulateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	config, err := s.simulationConfig(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := trip.Simulate(config); err != nil {
		log.Printf("Failed to start simulator for trip %s: %v", trip.ID, err)
		http.Error(w, fmt.Sprintf("Failed to start simulator: %v", err), http.StatusBadRequest)
		return
	}
	log.Printf("Simulator started for trip %s", trip.ID)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) simulationConfig(req simulateRequest) (gps.Config, error) {
	config := s.config.GPSConfig()
	config.SerialPort = ""
	if req.Speed != nil {
		config.Speed = *req.Speed
	}
	if req.Jitter != nil {
		config.Jitter = *req.Jitter
	}
	if req.HorizontalAccuracy != nil {
		config.HorizontalAccuracy = *req.HorizontalAccuracy
	}
	if req.Seed != 0 {
		config.Seed = req.Seed
	}

	var err error
	if req.OutputRate != "" {
		if config.OutputRate, err = time.ParseDuration(req.OutputRate); err != nil {
			return gps.Config{}, fmt.Errorf("invalid output_rate: %w", err)
		}
	}
	if req.TimeToLock != "" {
		if config.TimeToLock, err = time.ParseDuration(req.TimeToLock); err != nil {
			return gps.Config{}, fmt.Errorf("invalid time_to_lock: %w", err)
		}
	}
	return config, config.Validate()
}

func (s *Server) handleSimulationStatus(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}

	status, ok := trip.SimulationStatus()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"running": false,
			"message": "No simulator instance",
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStopSimulation(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}

	if err := trip.StopSimulation(); err != nil {
		if errors.Is(err, gps.ErrSimulatorNotRunning) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to stop simulator: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// handleWebSocket streams the current state of a trip followed by every
// update. Messages from the client are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.lookupTrip(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates := trip.Subscribe()
	defer trip.Unsubscribe(updates)
	log.Printf("Client connected to trip %s. Total clients: %d", trip.ID, trip.Subscribers())

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				trip.Unsubscribe(updates)
				return
			}
		}
	}()

	for update := range updates {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(update); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	log.Printf("Client disconnected from trip %s", trip.ID)
}

func (s *Server) lookupTrip(w http.ResponseWriter, r *http.Request) (*Trip, bool) {
	id, ok := parseTripID(w, r)
	if !ok {
		return nil, false
	}
	trip, err := s.trip(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}
	return trip, true
}

func parseTripID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid trip id: %v", err), http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v); err != nil {
		log.Printf("JSON decode error: %v", err)
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func validateLocation(location navigation.UserLocation) error {
	if err := validateCoordinate(location.Coordinates); err != nil {
		return err
	}
	if location.HorizontalAccuracy < 0 || math.IsNaN(location.HorizontalAccuracy) {
		return errors.New("horizontal_accuracy must be non-negative")
	}
	return nil
}

func validateCoordinate(c navigation.GeographicCoordinate) error {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 || math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return fmt.Errorf("coordinate (%f, %f) out of range", c.Lat, c.Lng)
	}
	return nil
}
