package metrics

import "errors"

// ErrNoManager is returned by Use when given a nil manager.
var ErrNoManager = errors.New("metrics manager is nil")
