// Package navigation tracks the progress of a single trip along a precomputed route.
//
// A NavigationController is created once a route has been selected and an initial
// location fix is available. From then on every fresh fix is passed to
// UpdateUserLocation, which:
//
//  1. snaps the fix onto the route geometry,
//  2. asks the configured StepAdvanceStrategy whether the traveler has left the
//     current step,
//  3. pops the step list when it has, ending the trip after the last step,
//  4. returns a NavigationStateUpdate describing what the UI should show.
//
// The controller is safe for concurrent use. Route computation, off-route
// detection, instruction rendering and location acquisition are left to the
// caller.
package navigation
