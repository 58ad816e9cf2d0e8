package osrm

import "errors"

var (
	ErrRouteService      = errors.New("route service returned an error")
	ErrNoRoutes          = errors.New("response contains no routes")
	ErrInvalidGeometry   = errors.New("invalid route geometry")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
