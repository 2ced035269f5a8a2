package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/UACoreFacilitiesIT/clarity-client/pkg/resource"
)

// Common errors returned by the client.
var (
	// ErrUnknownResource is returned when an endpoint matches no known resource.
	ErrUnknownResource = resource.ErrUnknownResource

	// ErrMixedResource is returned when a request spans several resource families.
	ErrMixedResource = resource.ErrMixedResource

	// ErrNotFileURI is returned when a download request contains a uri that
	// does not resolve to a file resource.
	ErrNotFileURI = errors.New("not a file uri")

	// ErrNoEndpoints is returned when Get is called without endpoints.
	ErrNoEndpoints = errors.New("no endpoints given")
)

// ErrorClass represents a classification of transport errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassUnexpected represents any other non-2xx status.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}

// TransportError is a network failure or non-2xx response from the LIMS.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LIMS %s error: %s %s (status %d): %s: %v",
			e.ErrorClass, e.Method, e.URL, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("LIMS %s error: %s %s (status %d): %s",
		e.ErrorClass, e.Method, e.URL, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NotFileURIError lists the uris that are not file resources.
type NotFileURIError struct {
	URIs []string
}

func (e *NotFileURIError) Error() string {
	return fmt.Sprintf("%v: [%s]", ErrNotFileURI, strings.Join(e.URIs, ", "))
}

func (e *NotFileURIError) Is(target error) bool {
	return target == ErrNotFileURI
}
