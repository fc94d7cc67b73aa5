package assignment

import "errors"

// ErrNoTeams is returned when baseline assignment is given an empty team set.
var ErrNoTeams = errors.New("no teams to assign regions to")
