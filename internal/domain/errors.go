package domain

import "errors"

var (
	// ErrNoRestaurantsFile is returned when no earlier restaurants CSV exists
	ErrNoRestaurantsFile = errors.New("no restaurants file found")

	// ErrInvalidRow is returned when a stored CSV row cannot be converted for upload
	ErrInvalidRow = errors.New("invalid row")

	// ErrHarvestRunning is returned when a harvest is started while another is in progress
	ErrHarvestRunning = errors.New("harvest already running")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUploadNotConfigured is returned when an upload is requested without a database
	ErrUploadNotConfigured = errors.New("upload requested but no database is configured")
)
