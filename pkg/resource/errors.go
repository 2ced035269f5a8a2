package resource

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownResource is returned when a URI matches no registered pattern.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrMixedResource is returned when a request spans several resource families.
	ErrMixedResource = errors.New("mixed resource families")
)

// UnknownResourceError names the URI that could not be resolved.
type UnknownResourceError struct {
	URI string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("%v: endpoint %q is not gettable", ErrUnknownResource, e.URI)
}

func (e *UnknownResourceError) Is(target error) bool {
	return target == ErrUnknownResource
}

// MixedResourceError lists every family found in a multi-URI request.
type MixedResourceError struct {
	URIs  []string
	Found []string
}

func (e *MixedResourceError) Error() string {
	return fmt.Sprintf("%v: %d uris must all target the same endpoint, found [%s]",
		ErrMixedResource, len(e.URIs), strings.Join(e.Found, ", "))
}

func (e *MixedResourceError) Is(target error) bool {
	return target == ErrMixedResource
}
