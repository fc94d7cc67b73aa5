package geo

import "errors"

// Sentinel kinds for geometry errors.
var (
	ErrEmptyGeometry      = errors.New("geometry has no vertices")
	ErrInvalidCoordinate  = errors.New("coordinate out of range")
	ErrDegenerateCentroid = errors.New("weighted centroid is degenerate")
	ErrNoCandidates       = errors.New("no anchor candidates")
)
