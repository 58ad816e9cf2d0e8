package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bucknalla/go-gps-navigator/gps"
	"github.com/Bucknalla/go-gps-navigator/internal/appconfig"
	"github.com/Bucknalla/go-gps-navigator/navigation"
)

type stateBody struct {
	Type                         string                            `json:"type"`
	CurrentStep                  navigation.RouteStep              `json:"current_step"`
	RemainingWaypoints           []navigation.GeographicCoordinate `json:"remaining_waypoints"`
	CurrentStepRemainingDistance float64                           `json:"current_step_remaining_distance"`
}

type tripBody struct {
	ID    uuid.UUID `json:"id"`
	State stateBody `json:"state"`
}

// testRoute runs east along the equator in two steps of about 111 m.
func testRoute() navigation.Route {
	p0 := navigation.GeographicCoordinate{Lng: 0, Lat: 0}
	p1 := navigation.GeographicCoordinate{Lng: 0.001, Lat: 0}
	p2 := navigation.GeographicCoordinate{Lng: 0.002, Lat: 0}
	return navigation.Route{
		Geometry:  []navigation.GeographicCoordinate{p0, p1, p2},
		Distance:  222.4,
		Waypoints: []navigation.GeographicCoordinate{p0, p2},
		Steps: []navigation.RouteStep{
			{Geometry: []navigation.GeographicCoordinate{p0, p1}, Distance: 111.2, Instruction: "Continue A"},
			{Geometry: []navigation.GeographicCoordinate{p1, p2}, Distance: 111.2, Instruction: "Continue B"},
		},
	}
}

func location(lng float64) navigation.UserLocation {
	return navigation.UserLocation{
		Coordinates:        navigation.GeographicCoordinate{Lng: lng, Lat: 0},
		HorizontalAccuracy: 5,
		Timestamp:          time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTrip(t *testing.T, rec *httptest.ResponseRecorder) tripBody {
	t.Helper()
	var body tripBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func createTrip(t *testing.T, h http.Handler, req map[string]interface{}) tripBody {
	t.Helper()
	rec := do(t, h, "POST", "/api/trips", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeTrip(t, rec)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(appconfig.Default())
	t.Cleanup(s.Close)
	return s
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","trips":0}`, rec.Body.String())

	createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	rec = do(t, h, "GET", "/api/health", nil)
	assert.JSONEq(t, `{"status":"ok","trips":1}`, rec.Body.String())
}

func TestCreateTrip(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	trip := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	assert.NotEqual(t, uuid.Nil, trip.ID)
	assert.Equal(t, "navigating", trip.State.Type)
	assert.Equal(t, "Continue A", trip.State.CurrentStep.Instruction)
	assert.Len(t, trip.State.RemainingWaypoints, 2)

	rec := do(t, h, "GET", "/api/trips/"+trip.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, trip, decodeTrip(t, rec))

	rec = do(t, h, "GET", "/api/trips", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), trip.ID.String())
}

func TestCreateTripWithoutSteps(t *testing.T) {
	s := newTestServer(t)
	route := testRoute()
	route.Steps = nil

	trip := createTrip(t, s.Handler(), map[string]interface{}{"initial_location": location(0), "route": route})
	assert.Equal(t, "arrived", trip.State.Type)
}

func TestCreateTripFromRouteResponse(t *testing.T) {
	s := newTestServer(t)

	raw, err := os.ReadFile(filepath.Join("..", "..", "osrm", "testdata", "route.json"))
	require.NoError(t, err)
	start, err := json.Marshal(navigation.UserLocation{
		Coordinates:        navigation.GeographicCoordinate{Lng: -122.4194, Lat: 37.7749},
		HorizontalAccuracy: 5,
	})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"initial_location": %s, "osrm_response": %s}`, start, raw)
	rec := do(t, s.Handler(), "POST", "/api/trips", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	trip := decodeTrip(t, rec)
	assert.Equal(t, "Head north on Market Street", trip.State.CurrentStep.Instruction)
	require.Len(t, trip.State.CurrentStep.SpokenInstructions, 2)
}

func TestCreateTripErrors(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		body interface{}
	}{
		{"Malformed JSON", `{"initial_location":`},
		{"Missing location", map[string]interface{}{"route": testRoute()}},
		{"Missing route", map[string]interface{}{"initial_location": location(0)}},
		{"Both route kinds", `{"initial_location":{"coordinates":{"lng":0,"lat":0}},"route":{},"osrm_response":{"code":"Ok"}}`},
		{"Route service error", `{"initial_location":{"coordinates":{"lng":0,"lat":0}},"osrm_response":{"code":"NoRoute"}}`},
		{"Location out of range", map[string]interface{}{"initial_location": navigation.UserLocation{
			Coordinates: navigation.GeographicCoordinate{Lng: 0, Lat: 95},
		}, "route": testRoute()}},
		{"Negative accuracy", map[string]interface{}{"initial_location": navigation.UserLocation{
			HorizontalAccuracy: -1,
		}, "route": testRoute()}},
		{"Invalid step advance", map[string]interface{}{
			"initial_location": location(0),
			"route":            testRoute(),
			"step_advance":     navigation.StepAdvanceOptions{Kind: navigation.StepAdvanceDistanceToEndOfStep, Distance: -1},
		}},
		{"Unknown step advance", `{"initial_location":{"coordinates":{"lng":0,"lat":0}},"route":{},"step_advance":{"kind":"teleport"}}`},
		{"Unknown maneuver", `{"initial_location":{"coordinates":{"lng":0,"lat":0}},"route":{"steps":[{"visual_instructions":[{"primary_content":{"text":"x","maneuver_type":"jump"}}]}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/trips", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(t, h, "GET", "/api/health", nil)
	assert.JSONEq(t, `{"status":"ok","trips":0}`, rec.Body.String())
}

func TestUnknownTrip(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	missing := uuid.New().String()

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/trips/"+missing, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/api/trips/"+missing+"/location", location(0)).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "POST", "/api/trips/"+missing+"/advance", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/api/trips/"+missing, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/api/trips/"+missing+"/ws", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "GET", "/api/trips/not-a-uuid", nil).Code)
}

func TestUpdateLocation(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	trip := createTrip(t, h, map[string]interface{}{
		"initial_location": location(0),
		"route":            testRoute(),
		"step_advance": navigation.StepAdvanceOptions{
			Kind:     navigation.StepAdvanceDistanceToEndOfStep,
			Distance: 10,
		},
	})
	path := "/api/trips/" + trip.ID.String() + "/location"

	rec := do(t, h, "POST", path, location(0.0003))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Continue A", decodeTrip(t, rec).State.CurrentStep.Instruction)

	// About 5.6 m before the end of the first step.
	rec = do(t, h, "POST", path, location(0.00095))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Continue B", decodeTrip(t, rec).State.CurrentStep.Instruction)

	rec = do(t, h, "POST", path, location(0.002))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "arrived", decodeTrip(t, rec).State.Type)

	// Arrived is terminal.
	rec = do(t, h, "POST", path, location(0))
	assert.Equal(t, "arrived", decodeTrip(t, rec).State.Type)

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", path, `{"coordinates":`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", path, navigation.UserLocation{
		Coordinates: navigation.GeographicCoordinate{Lng: 200},
	}).Code)
}

func TestEstimatedRemainingDistance(t *testing.T) {
	config := appconfig.Default()
	config.Navigation.EstimateRemainingDistance = true
	s := NewServer(config)
	t.Cleanup(s.Close)
	h := s.Handler()

	trip := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	rec := do(t, h, "POST", "/api/trips/"+trip.ID.String()+"/location", location(0.0005))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 55.6, decodeTrip(t, rec).State.CurrentStepRemainingDistance, 0.5)
}

func TestAdvance(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	trip := createTrip(t, h, map[string]interface{}{
		"initial_location": location(0),
		"route":            testRoute(),
		"step_advance":     navigation.StepAdvanceOptions{Kind: navigation.StepAdvanceManual},
	})
	base := "/api/trips/" + trip.ID.String()

	// Manual trips never advance on their own.
	rec := do(t, h, "POST", base+"/location", location(0.001))
	assert.Equal(t, "Continue A", decodeTrip(t, rec).State.CurrentStep.Instruction)

	rec = do(t, h, "POST", base+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Continue B", decodeTrip(t, rec).State.CurrentStep.Instruction)

	rec = do(t, h, "POST", base+"/advance", nil)
	assert.Equal(t, "arrived", decodeTrip(t, rec).State.Type)

	rec = do(t, h, "GET", base, nil)
	assert.Equal(t, "arrived", decodeTrip(t, rec).State.Type)
}

func TestDeleteTrip(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	trip := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	path := "/api/trips/" + trip.ID.String()

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", path, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", path, nil).Code)
}

func dialTrip(t *testing.T, server *httptest.Server, id uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/trips/" + id.String() + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) stateBody {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var state stateBody
	require.NoError(t, conn.ReadJSON(&state))
	return state
}

func TestWebSocketStream(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	trip := createTrip(t, s.Handler(), map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	first := dialTrip(t, server, trip.ID)
	second := dialTrip(t, server, trip.ID)

	for _, conn := range []*websocket.Conn{first, second} {
		state := readState(t, conn)
		assert.Equal(t, "navigating", state.Type)
		assert.Equal(t, "Continue A", state.CurrentStep.Instruction)
	}

	base := "/api/trips/" + trip.ID.String()
	do(t, s.Handler(), "POST", base+"/location", location(0.00095))
	do(t, s.Handler(), "POST", base+"/advance", nil)

	for _, conn := range []*websocket.Conn{first, second} {
		assert.Equal(t, "Continue B", readState(t, conn).CurrentStep.Instruction)
		assert.Equal(t, "arrived", readState(t, conn).Type)
	}

	// Deleting the trip closes the stream.
	require.Equal(t, http.StatusNoContent, do(t, s.Handler(), "DELETE", base, nil).Code)
	require.NoError(t, first.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := first.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error %v", err)
}

func TestWebSocketClientDisconnect(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.Handler())
	defer server.Close()

	trip := createTrip(t, s.Handler(), map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	conn := dialTrip(t, server, trip.ID)
	readState(t, conn)

	registered, err := s.trip(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, registered.Subscribers())

	conn.Close()
	assert.Eventually(t, func() bool { return registered.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSimulation(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	trip := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	base := "/api/trips/" + trip.ID.String()

	rec := do(t, h, "GET", base+"/simulate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No simulator instance")
	assert.Equal(t, http.StatusConflict, do(t, h, "DELETE", base+"/simulate", nil).Code)

	registered, err := s.trip(trip.ID)
	require.NoError(t, err)
	updates := registered.Subscribe()
	<-updates

	rec = do(t, h, "POST", base+"/simulate", map[string]interface{}{
		"speed":        1000,
		"output_rate":  "10ms",
		"time_to_lock": "0s",
		"seed":         1,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	timeout := time.After(5 * time.Second)
	var steps []string
	for arrived := false; !arrived; {
		select {
		case update, ok := <-updates:
			require.True(t, ok, "subscription closed before arrival")
			switch u := update.(type) {
			case navigation.Navigating:
				if len(steps) == 0 || steps[len(steps)-1] != u.CurrentStep.Instruction {
					steps = append(steps, u.CurrentStep.Instruction)
				}
			case navigation.Arrived:
				arrived = true
			}
		case <-timeout:
			t.Fatal("simulated trip did not arrive")
		}
	}
	assert.Equal(t, []string{"Continue A", "Continue B"}, steps)

	assert.Eventually(t, func() bool {
		status, ok := registered.SimulationStatus()
		return ok && !status.Running
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, h, "GET", base+"/simulate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"running":false`)
}

func TestStopSimulation(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	trip := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	base := "/api/trips/" + trip.ID.String()

	rec := do(t, h, "POST", base+"/simulate", map[string]interface{}{"speed": 0, "output_rate": "10ms"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = do(t, h, "DELETE", base+"/simulate", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"stopped"}`, rec.Body.String())
}

func TestSimulationErrors(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()
	trip := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": testRoute()})
	base := "/api/trips/" + trip.ID.String()

	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", base+"/simulate", map[string]interface{}{"jitter": 2}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", base+"/simulate", map[string]interface{}{"output_rate": "often"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", base+"/simulate", `{"speed":`).Code)

	route := testRoute()
	route.Geometry = nil
	empty := createTrip(t, h, map[string]interface{}{"initial_location": location(0), "route": route})
	assert.Equal(t, http.StatusBadRequest, do(t, h, "POST", "/api/trips/"+empty.ID.String()+"/simulate", nil).Code)
}

func TestTripDropsSlowSubscriber(t *testing.T) {
	trip := newTrip(location(0), testRoute(), navigation.DefaultNavigationControllerConfig())
	updates := trip.Subscribe()

	for i := 0; i < subscriberBuffer; i++ {
		trip.Advance()
	}
	assert.Equal(t, 0, trip.Subscribers())

	received := 0
	for range updates {
		received++
	}
	assert.Equal(t, subscriberBuffer, received)
}

func TestTripClose(t *testing.T) {
	trip := newTrip(location(0), testRoute(), navigation.DefaultNavigationControllerConfig())
	updates := trip.Subscribe()
	<-updates

	trip.Close()
	_, ok := <-updates
	assert.False(t, ok)

	_, ok = <-trip.Subscribe()
	assert.False(t, ok, "subscribing to a closed trip yields a closed channel")

	trip.Unsubscribe(updates)
}

func TestTripIgnoresReplacedSimulation(t *testing.T) {
	trip := newTrip(location(0), testRoute(), navigation.DefaultNavigationControllerConfig())
	t.Cleanup(trip.Close)

	config := gps.DefaultConfig()
	config.Speed = 0
	config.OutputRate = time.Hour
	current := func() *gps.Simulator {
		trip.mu.Lock()
		defer trip.mu.Unlock()
		return trip.simulator
	}

	require.NoError(t, trip.Simulate(config))
	first := current()
	require.NoError(t, trip.Simulate(config))
	second := current()
	require.NotSame(t, first, second)

	_, ok := trip.updateFrom(first, location(0.00095))
	assert.False(t, ok, "fixes from a replaced simulation are dropped")
	assert.Equal(t, "Continue A", trip.State().(navigation.Navigating).CurrentStep.Instruction)

	update, ok := trip.updateFrom(second, location(0.00095))
	require.True(t, ok)
	assert.Equal(t, "Continue B", update.(navigation.Navigating).CurrentStep.Instruction)

	trip.Close()
	_, ok = trip.updateFrom(second, location(0.002))
	assert.False(t, ok, "fixes after close are dropped")
}
