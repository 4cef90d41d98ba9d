package geocode

import "fmt"

// InvalidResponseError reports a geocoding upstream response that cannot be
// used: a non-200 status or a response with no match at all. Status carries
// the upstream HTTP status code.
type InvalidResponseError struct {
	Status int
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("geocoding API response is invalid (status %d), check that the address is valid", e.Status)
}

// ConfidenceError reports a match that was found but scored below the
// configured confidence threshold. The upstream answered normally, so this is
// a client-input problem, not a transport one.
type ConfidenceError struct {
	Address    string
	Confidence float64
	Threshold  float64
}

func (e *ConfidenceError) Error() string {
	return fmt.Sprintf("geocoding confidence too low for %q: %.2f < %.2f", e.Address, e.Confidence, e.Threshold)
}
