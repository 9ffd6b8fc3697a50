package mongo

import "errors"

var (
	// ErrFailedToConnect is returned when the mongo server cannot be reached
	// within the configured retry budget.
	ErrFailedToConnect = errors.New("failed to connect to mongo")
)
