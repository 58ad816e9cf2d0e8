package web

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Bucknalla/go-gps-navigator/gps"
	"github.com/Bucknalla/go-gps-navigator/navigation"
)

// subscriberBuffer is how many updates a WebSocket client may fall behind
// before it is disconnected.
const subscriberBuffer = 32

// Trip is a navigation controller with the clients following it.
type Trip struct {
	ID    uuid.UUID
	route navigation.Route

	// mu orders controller calls with their broadcast, so every subscriber
	// sees updates in the order the controller produced them.
	mu          sync.Mutex
	controller  *navigation.NavigationController
	last        navigation.NavigationStateUpdate
	subscribers map[chan navigation.NavigationStateUpdate]struct{}
	simulator   *gps.Simulator
	closed      bool
}

func newTrip(location navigation.UserLocation, route navigation.Route, config navigation.NavigationControllerConfig) *Trip {
	controller := navigation.NewNavigationController(location, route, config)
	return &Trip{
		ID:          uuid.New(),
		route:       route.Clone(),
		controller:  controller,
		last:        controller.State(),
		subscribers: make(map[chan navigation.NavigationStateUpdate]struct{}),
	}
}

// State returns the latest update without changing the trip.
func (t *Trip) State() navigation.NavigationStateUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// UpdateLocation feeds a fix to the controller and broadcasts the result.
func (t *Trip) UpdateLocation(location navigation.UserLocation) navigation.NavigationStateUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publish(t.controller.UpdateUserLocation(location))
}

// updateFrom is UpdateLocation for fixes from sim. Fixes from a simulation
// that has since been replaced, or from a closed trip, are dropped.
func (t *Trip) updateFrom(sim *gps.Simulator, location navigation.UserLocation) (navigation.NavigationStateUpdate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.simulator != sim {
		return nil, false
	}
	return t.publish(t.controller.UpdateUserLocation(location)), true
}

// Advance skips to the next step and broadcasts the result.
func (t *Trip) Advance() navigation.NavigationStateUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.publish(t.controller.AdvanceToNextStep())
}

// publish records update and hands it to every subscriber. Callers hold mu.
func (t *Trip) publish(update navigation.NavigationStateUpdate) navigation.NavigationStateUpdate {
	t.last = update
	for ch := range t.subscribers {
		select {
		case ch <- update:
		default:
			log.Printf("Trip %s: dropping slow subscriber", t.ID)
			delete(t.subscribers, ch)
			close(ch)
		}
	}
	return update
}

// Subscribe returns a channel that first yields the current state and then
// every later update. It is closed when the trip is closed or the subscriber
// falls too far behind.
func (t *Trip) Subscribe() <-chan navigation.NavigationStateUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan navigation.NavigationStateUpdate, subscriberBuffer)
	if t.closed {
		close(ch)
		return ch
	}
	ch <- t.last
	t.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch. It is safe to call more than once.
func (t *Trip) Unsubscribe(ch <-chan navigation.NavigationStateUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for sub := range t.subscribers {
		if sub == ch {
			delete(t.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Subscribers returns the number of connected clients.
func (t *Trip) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers)
}

// Simulate drives the trip with a simulated receiver following the route
// geometry, replacing any running simulation.
func (t *Trip) Simulate(config gps.Config) error {
	sim, err := gps.NewSimulator(config, t.route.Geometry)
	if err != nil {
		return err
	}
	sim.AddCallback(func(fix gps.Fix) {
		location, ok := fix.Location()
		if !ok {
			return
		}
		update, current := t.updateFrom(sim, location)
		if !current {
			return
		}
		if _, arrived := update.(navigation.Arrived); arrived {
			sim.Stop()
		}
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errTripClosed
	}
	if t.simulator != nil && t.simulator.IsRunning() {
		t.simulator.Stop()
	}
	t.simulator = sim
	return sim.Start()
}

// StopSimulation stops the running simulation, if any.
func (t *Trip) StopSimulation() error {
	t.mu.Lock()
	sim := t.simulator
	t.mu.Unlock()

	if sim == nil {
		return gps.ErrSimulatorNotRunning
	}
	return sim.Stop()
}

// SimulationStatus returns the status of the last simulation.
func (t *Trip) SimulationStatus() (gps.Status, bool) {
	t.mu.Lock()
	sim := t.simulator
	t.mu.Unlock()

	if sim == nil {
		return gps.Status{}, false
	}
	return sim.GetStatus(), true
}

// Close stops the simulation and disconnects every subscriber.
func (t *Trip) Close() {
	t.mu.Lock()
	sim := t.simulator
	t.closed = true
	for ch := range t.subscribers {
		delete(t.subscribers, ch)
		close(ch)
	}
	t.mu.Unlock()

	if sim != nil && sim.IsRunning() {
		sim.Stop()
	}
}
