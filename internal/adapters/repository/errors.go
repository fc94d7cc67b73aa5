package repository

import (
	"errors"
	"fmt"

	"github.com/okian/territory/internal/domain/model"
)

// Sentinel kinds for store errors. ErrNotFound wraps model.ErrMissingData so
// batch drivers can treat an absent week like an absent feed.
var (
	ErrNotFound      = fmt.Errorf("not found: %w", model.ErrMissingData)
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidWeek   = errors.New("invalid week")
	ErrClosed        = errors.New("store closed")
)
