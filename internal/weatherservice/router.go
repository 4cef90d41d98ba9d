package weatherservice

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/velodash/velodash/internal/httpserver/mw"
)

// Router builds the weather service's chi router.
func Router(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(mw.Log(d.Logger))
	r.Use(mw.CORS())

	r.Get("/", Root(d))
	r.Get("/health", Health(d))
	r.Get("/get_weather_info", WeatherInfo(d))

	return r
}
