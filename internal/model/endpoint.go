package model

import (
	"fmt"
	"strings"
)

// Endpoint is a parsed "<domain>_<subject>" descriptor, e.g. "historicaldata_AAPL".
type Endpoint struct {
	Domain  string
	Subject string
}

type ErrInvalidEndpoint struct {
	Descriptor string
}

func (e *ErrInvalidEndpoint) Error() string {
	return fmt.Sprintf("endpoint descriptor %q must have the form <domain>_<subject>", e.Descriptor)
}

// ParseEndpoint splits a descriptor on its single underscore.
// Anything other than exactly two non-empty segments is rejected.
func ParseEndpoint(descriptor string) (Endpoint, error) {
	parts := strings.Split(descriptor, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Endpoint{}, &ErrInvalidEndpoint{Descriptor: descriptor}
	}
	return Endpoint{Domain: parts[0], Subject: parts[1]}, nil
}

// OutputDir expands the endpoint into its physical path segment "<domain>/output/<subject>".
func (e Endpoint) OutputDir() string {
	return e.Domain + "/output/" + e.Subject
}

// String returns the descriptor form.
func (e Endpoint) String() string {
	return e.Domain + "_" + e.Subject
}

// Name returns the human form "<domain>/<subject>" recorded in manifests.
func (e Endpoint) Name() string {
	return e.Domain + "/" + e.Subject
}
