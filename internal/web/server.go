// Package web serves navigation trips over HTTP. Each trip owns a navigation
// controller; location fixes are posted to it and every resulting update is
// pushed to the trip's WebSocket clients.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/Bucknalla/go-gps-navigator/internal/appconfig"
)

var (
	errTripNotFound = errors.New("trip not found")
	errTripClosed   = errors.New("trip is closed")
)

type Server struct {
	config   appconfig.Config
	upgrader websocket.Upgrader
	router   *mux.Router

	mu    sync.RWMutex
	trips map[uuid.UUID]*Trip
}

func NewServer(config appconfig.Config) *Server {
	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
		trips: make(map[uuid.UUID]*Trip),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/trips", s.handleListTrips).Methods("GET")
	api.HandleFunc("/trips", s.handleCreateTrip).Methods("POST")
	api.HandleFunc("/trips/{id}", s.handleGetTrip).Methods("GET")
	api.HandleFunc("/trips/{id}", s.handleDeleteTrip).Methods("DELETE")
	api.HandleFunc("/trips/{id}/location", s.handleUpdateLocation).Methods("POST")
	api.HandleFunc("/trips/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/trips/{id}/simulate", s.handleStartSimulation).Methods("POST")
	api.HandleFunc("/trips/{id}/simulate", s.handleSimulationStatus).Methods("GET")
	api.HandleFunc("/trips/{id}/simulate", s.handleStopSimulation).Methods("DELETE")
	api.HandleFunc("/trips/{id}/ws", s.handleWebSocket)
	s.router = r

	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured port until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("Starting GPS Navigator server on port %d", s.config.Server.Port)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close ends every trip.
func (s *Server) Close() {
	s.mu.Lock()
	trips := s.trips
	s.trips = make(map[uuid.UUID]*Trip)
	s.mu.Unlock()

	for _, trip := range trips {
		trip.Close()
	}
}

func (s *Server) addTrip(trip *Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips[trip.ID] = trip
}

func (s *Server) trip(id uuid.UUID) (*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trip, ok := s.trips[id]
	if !ok {
		return nil, errTripNotFound
	}
	return trip, nil
}

func (s *Server) removeTrip(id uuid.UUID) (*Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trip, ok := s.trips[id]
	if !ok {
		return nil, errTripNotFound
	}
	delete(s.trips, id)
	return trip, nil
}

func (s *Server) tripIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.trips))
	for id := range s.trips {
		ids = append(ids, id)
	}
	return ids
}
