package datasource

import "errors"

var (
	// ErrNotFound is returned when a named descriptor does not exist in the
	// metadata store.
	ErrNotFound = errors.New("data source descriptor not found")

	// ErrMaxDataSources is returned when the Registry has reached
	// Config.MaxDataSources and a new one is installed.
	ErrMaxDataSources = errors.New("max data source limit reached")
)
