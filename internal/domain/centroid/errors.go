package centroid

import "errors"

// ErrUnknownRegion is returned when a baseline snapshot names a region absent
// from the region dataset.
var ErrUnknownRegion = errors.New("baseline region not in region dataset")
