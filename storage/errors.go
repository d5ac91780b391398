package storage

import "errors"

// Storage error constants
var (
	// ErrRuleNotFound is returned when a correlation rule is not found
	ErrRuleNotFound = errors.New("correlation rule not found")

	// ErrIncidentNotFound is returned when an incident is not found
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrEventNotFound is returned when a security event is not found
	ErrEventNotFound = errors.New("security event not found")

	// ErrEndpointNotFound is returned when an endpoint is not found
	ErrEndpointNotFound = errors.New("endpoint not found")
)
