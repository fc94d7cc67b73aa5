package transfer

import "errors"

// ErrWeekOrder is returned when a week is advanced onto a snapshot that is not
// strictly earlier than it.
var ErrWeekOrder = errors.New("week does not follow prior snapshot")
