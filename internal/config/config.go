package config

import (
	"os"
	"strconv"
	"time"
)

// Default external endpoints, matching the live Paris datasets the gateway
// was built against.
const (
	DefaultGeocodeURL       = "https://api-adresse.data.gouv.fr/search/"
	DefaultWeatherURL       = "https://api.open-meteo.com/v1/forecast"
	DefaultStationInfoURL   = "https://velib-metropole-opendata.smovengo.cloud/opendata/Velib_Metropole/station_information.json"
	DefaultStationStatusURL = "https://velib-metropole-opendata.smovengo.cloud/opendata/Velib_Metropole/station_status.json"
)

// DefaultAddress is used by the domain endpoints when the caller omits one.
const DefaultAddress = "1 rue de Charonne, 75011"

type Config struct {
	GatewayAddr     string        // ex: ":8000"
	WeatherAddr     string        // ex: ":8001"
	BikesAddr       string        // ex: ":8002"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	BackendsFile   string // optional path to backends.yaml; empty = built-in defaults
	DefaultAddress string // address used when a request omits one

	GeocodeURL       string        // BAN address search endpoint
	GeocodeThreshold float64       // minimum acceptable geocoding confidence
	GeocodeTimeout   time.Duration // timeout for geocoding calls

	WeatherURL      string        // open-meteo forecast endpoint
	WeatherTimezone string        // timezone passed to the forecast API
	WeatherTimeout  time.Duration // timeout for forecast calls

	StationInfoURL         string        // station information feed
	StationStatusURL       string        // station status feed
	StationFetchTimeout    time.Duration // timeout for one feed fetch
	StationRefreshInterval time.Duration // 0 = fetch once, reuse indefinitely
	NearestStations        int           // k returned by the bikes endpoint

	// Redis (optional warm-start store for the station snapshot)
	RedisAddr           string        // empty = warm start disabled
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDialTimeout    time.Duration // ex: 5s
	RedisReadTimeout    time.Duration // ex: 3s
	RedisWriteTimeout   time.Duration // ex: 3s
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries
}

func Load() *Config {
	return &Config{
		// Server settings
		GatewayAddr:     getenv("VELODASH_GATEWAY_ADDR", ":8000"),
		WeatherAddr:     getenv("VELODASH_WEATHER_ADDR", ":8001"),
		BikesAddr:       getenv("VELODASH_BIKES_ADDR", ":8002"),
		ShutdownTimeout: mustDuration("VELODASH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("VELODASH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("VELODASH_PRETTY_LOG", false),

		// Backends
		BackendsFile:   getenv("VELODASH_BACKENDS_FILE", ""),
		DefaultAddress: getenv("VELODASH_DEFAULT_ADDRESS", DefaultAddress),

		// Geocoding
		GeocodeURL:       getenv("VELODASH_GEOCODE_URL", DefaultGeocodeURL),
		GeocodeThreshold: getenvFloat("VELODASH_GEOCODE_THRESHOLD", 0.9),
		GeocodeTimeout:   mustDuration("VELODASH_GEOCODE_TIMEOUT", 5*time.Second),

		// Weather
		WeatherURL:      getenv("VELODASH_WEATHER_URL", DefaultWeatherURL),
		WeatherTimezone: getenv("VELODASH_WEATHER_TIMEZONE", "Europe/Paris"),
		WeatherTimeout:  mustDuration("VELODASH_WEATHER_TIMEOUT", 5*time.Second),

		// Stations
		StationInfoURL:         getenv("VELODASH_STATION_INFO_URL", DefaultStationInfoURL),
		StationStatusURL:       getenv("VELODASH_STATION_STATUS_URL", DefaultStationStatusURL),
		StationFetchTimeout:    mustDuration("VELODASH_STATION_FETCH_TIMEOUT", 10*time.Second),
		StationRefreshInterval: mustDuration("VELODASH_STATION_REFRESH_INTERVAL", 0),
		NearestStations:        getenvInt("VELODASH_NEAREST_STATIONS", 3),

		// Redis settings
		RedisAddr:           getenv("VELODASH_REDIS_ADDR", ""),
		RedisUser:           getenv("VELODASH_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("VELODASH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("VELODASH_REDIS_DB", 0),
		RedisDialTimeout:    mustDuration("VELODASH_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisReadTimeout:    mustDuration("VELODASH_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWriteTimeout:   mustDuration("VELODASH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisConnectTimeout: mustDuration("VELODASH_REDIS_CONNECT_TIMEOUT", 15*time.Second),
		RedisRetryInterval:  mustDuration("VELODASH_REDIS_RETRY_INTERVAL", 2*time.Second),
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
