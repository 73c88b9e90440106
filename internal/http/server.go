package httpapi

import (
	"errors"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/example/driver-rides/internal/config"
	"github.com/example/driver-rides/internal/dispatch"
	"github.com/example/driver-rides/internal/events"
	"github.com/example/driver-rides/internal/location"
	"github.com/example/driver-rides/internal/mockgen"
	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/rides"
	"github.com/example/driver-rides/internal/route"
	"github.com/example/driver-rides/internal/workflow"
)

// App is a fully wired server together with the clients it must release.
type App struct {
	*Server
	Device  *location.StaticDevice
	closers []io.Closer
}

// Close releases the Kafka writer and the Redis client, if configured.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// NewServerFromConfig wires the driver workflow. Every external backend is
// optional: without Redis geocoding is uncached, without OSRM routes are
// straight lines, without Kafka or a webhook notifications stay local.
func NewServerFromConfig(cfg config.ServerConfig, logger *slog.Logger) *App {
	app := &App{}

	var geocoder location.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		geocoder = location.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			app.closers = append(app.closers, client)
			geocoder = location.NewCachedGeocoder(geocoder, location.NewRedisCacheWithClient(client), cfg.GeocodeCacheTTL, logger)
		}
	}
	app.Device = location.NewStaticDevice(models.Coord{Lat: cfg.DeviceLat, Lon: cfg.DeviceLon}, cfg.DevicePermissionGranted, geocoder)

	var router route.Router
	if cfg.OSRMEndpoint != "" {
		router = &route.CachedRouter{Next: route.NewOSRMRouter(cfg.OSRMEndpoint), Cache: route.NewCache(cfg.RouteCacheTTL)}
	}

	ws := dispatch.NewWSRegistry(logger)
	fanout := dispatch.Fanout{&dispatch.LogNotifier{Logger: logger}, ws}
	if cfg.WebhookURL != "" {
		fanout = append(fanout, dispatch.NewWebhookNotifier(cfg.WebhookURL, logger))
	}
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		app.closers = append(app.closers, pub)
		fanout = append(fanout, pub)
	}

	wf := &workflow.Service{
		Location:    location.NewProvider(app.Device, fanout, logger, cfg.LocationTimeout),
		Source:      mockgen.New(),
		Store:       rides.NewStore(rides.WithDriverID(cfg.DriverID)),
		Router:      router,
		Notifier:    fanout,
		Logger:      logger,
		SpeedMps:    route.DefaultSpeedMps,
		EnrichLimit: cfg.EnrichConcurrency,
	}
	app.Server = NewServer(wf, ws, logger)
	return app
}
