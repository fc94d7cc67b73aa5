package config

import "errors"

// Validation failures wrap ErrInvalidConfig. Failures reading the
// TERRITORY_CONFIG file or the TERRITORY_ environment wrap ErrLoadConfig.
var (
	ErrInvalidConfig = errors.New("invalid territory config")
	ErrLoadConfig    = errors.New("load territory config")
)
