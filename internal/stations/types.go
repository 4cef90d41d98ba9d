package stations

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/velodash/velodash/internal/geo"
)

// Station is one bike station from the live dataset: the static description
// joined with its current status. Fields the queries do not rely on are kept
// in Extra and flattened back into the JSON encoding, so upstream additions
// pass through untouched.
type Station struct {
	ID             string
	Name           string
	Point          geo.Point
	Capacity       int
	Mechanical     int
	Electrical     int
	DocksAvailable int
	Extra          map[string]any
}

func (s Station) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+8)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["station_id"] = s.ID
	out["name"] = s.Name
	out["lat"] = s.Point.Lat
	out["lon"] = s.Point.Lon
	out["capacity"] = s.Capacity
	out["mechanical"] = s.Mechanical
	out["electrical"] = s.Electrical
	out["num_docks_available"] = s.DocksAvailable
	return json.Marshal(out)
}

func (s *Station) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	s.ID = stringID(raw["station_id"])
	s.Name, _ = raw["name"].(string)
	s.Point.Lat, _ = asFloat(raw["lat"])
	s.Point.Lon, _ = asFloat(raw["lon"])
	s.Capacity, _ = asInt(raw["capacity"])
	s.Mechanical, _ = asInt(raw["mechanical"])
	s.Electrical, _ = asInt(raw["electrical"])
	s.DocksAvailable, _ = asInt(raw["num_docks_available"])

	for _, key := range []string{
		"station_id", "name", "lat", "lon", "capacity",
		"mechanical", "electrical", "num_docks_available",
	} {
		delete(raw, key)
	}
	if len(raw) > 0 {
		s.Extra = raw
	} else {
		s.Extra = nil
	}
	return nil
}

// Snapshot is an immutable view of the station dataset. The cache replaces it
// wholesale on refresh; readers holding an older snapshot keep a consistent
// view.
type Snapshot struct {
	Stations  []Station `json:"stations"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Points returns the station coordinates in snapshot order, ready for
// geo.SelectNearest.
func (s *Snapshot) Points() []geo.Point {
	points := make([]geo.Point, len(s.Stations))
	for i, station := range s.Stations {
		points[i] = station.Point
	}
	return points
}

// stringID canonicalizes a station id, which the upstream feed encodes either
// as a JSON number or a string depending on the field.
func stringID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
