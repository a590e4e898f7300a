package model

import (
	"fmt"
)

// TransportError wraps a failed fetch: network, DNS or a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DiscoveryError aborts the run: the listing or its result count could not be read.
type DiscoveryError struct {
	Stage string // "probe", "count" or "listing"
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery (%s): %v", e.Stage, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// ExtractionError drops a single item whose structural fields are missing.
type ExtractionError struct {
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract: missing %s", e.Field)
}

// DateNormalizationError drops a single item whose deadline cannot be parsed.
type DateNormalizationError struct {
	Value string
	Err   error
}

func (e *DateNormalizationError) Error() string {
	return fmt.Sprintf("normalize date %q: %v", e.Value, e.Err)
}

func (e *DateNormalizationError) Unwrap() error {
	return e.Err
}

// EnrichmentError drops a single item whose detail page could not be used.
type EnrichmentError struct {
	DetailRef string
	Err       error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrich %s: %v", e.DetailRef, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// DeliveryError marks a failed notification. The dataset is already persisted
// when this is returned.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
