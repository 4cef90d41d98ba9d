package redis

const (
	// KeySnapshot holds the serialized station snapshot for warm starts
	KeySnapshot = "velodash:stations:snapshot"
)
