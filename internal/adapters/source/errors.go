package source

import "errors"

// Sentinel kinds for reference data errors. Absent contest files wrap
// model.ErrMissingData instead.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMalformed         = errors.New("malformed reference data")
)
