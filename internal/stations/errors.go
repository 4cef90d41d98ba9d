package stations

import "fmt"

// DataSourceError reports a failed fetch from one of the station endpoints.
// The cache keeps serving its last good snapshot when this happens.
type DataSourceError struct {
	URL string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("station data source %s: %v", e.URL, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// IntegrityError reports that the info and status arrays do not describe the
// same stations in the same order. The refresh that observed it is aborted;
// nothing from the inconsistent fetch is kept.
type IntegrityError struct {
	Index    int
	InfoID   string
	StatusID string
}

func (e *IntegrityError) Error() string {
	if e.InfoID == "" && e.StatusID == "" {
		return fmt.Sprintf("station info/status arrays diverge at index %d", e.Index)
	}
	return fmt.Sprintf("station id mismatch at index %d: info=%q status=%q", e.Index, e.InfoID, e.StatusID)
}
