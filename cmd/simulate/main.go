// Command simulate drives one driver through a full ride cycle in-process and
// prints every step, so the workflow can be exercised without a UI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/driver-rides/internal/dispatch"
	"github.com/example/driver-rides/internal/location"
	"github.com/example/driver-rides/internal/logging"
	"github.com/example/driver-rides/internal/mockgen"
	"github.com/example/driver-rides/internal/models"
	"github.com/example/driver-rides/internal/rides"
	"github.com/example/driver-rides/internal/route"
	"github.com/example/driver-rides/internal/workflow"
)

type options struct {
	lat, lon   float64
	driverID   string
	rideID     string
	decline    []string
	denied     bool
	osrm       string
	googleKey  string
	logLevel   string
	timeout    time.Duration
	fixedClock bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a driver through refresh, accept, pickup and drop-off",
		Long: `Simulate acquires the device position, loads the mock ride batch around it,
optionally declines some rides, then accepts, picks up and drops off one ride.
Each step prints the resulting state and the notifications it raised.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			return run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.lat, "lat", 10, "device latitude")
	f.Float64Var(&opts.lon, "lon", 20, "device longitude")
	f.StringVar(&opts.driverID, "driver-id", rides.DefaultDriverID, "id assigned to accepted rides")
	f.StringVar(&opts.rideID, "ride", "1", "ride to accept and complete")
	f.StringSliceVar(&opts.decline, "decline", nil, "rides to decline before accepting")
	f.BoolVar(&opts.denied, "deny-permission", false, "simulate a denied location permission")
	f.StringVar(&opts.osrm, "osrm", "", "OSRM endpoint for road routes")
	f.StringVar(&opts.googleKey, "google-key", os.Getenv("GOOGLE_MAPS_API_KEY"), "Google Geocoding API key")
	f.StringVar(&opts.logLevel, "log-level", "error", "log level written to stderr")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall deadline")
	f.BoolVar(&opts.fixedClock, "fixed-clock", false, "stamp rides with a fixed time")
	_ = f.MarkHidden("fixed-clock")
	return cmd
}

func run(ctx context.Context, out, errOut io.Writer, opts *options) error {
	logger := logging.NewLoggerTo(errOut, "driver-rides-simulate", opts.logLevel)
	rec := &dispatch.Recorder{}
	notifier := dispatch.Fanout{&dispatch.LogNotifier{Logger: logger}, rec}

	var geocoder location.Geocoder
	if opts.googleKey != "" {
		geocoder = location.NewGoogleGeocoder(opts.googleKey)
	}
	device := location.NewStaticDevice(models.Coord{Lat: opts.lat, Lon: opts.lon}, !opts.denied, geocoder)

	gen := mockgen.New()
	if opts.fixedClock {
		fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
		gen.Now = func() time.Time { return fixed }
	}
	svc := &workflow.Service{
		Location:    location.NewProvider(device, notifier, logger, 10*time.Second),
		Source:      gen,
		Store:       rides.NewStore(rides.WithDriverID(opts.driverID)),
		Notifier:    notifier,
		Logger:      logger,
		SpeedMps:    route.DefaultSpeedMps,
		EnrichLimit: 4,
	}
	if opts.osrm != "" {
		svc.Router = route.NewOSRMRouter(opts.osrm)
	}

	batch, err := svc.Refresh(ctx)
	printNotifications(out, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "loaded %d ride requests around (%.4f, %.4f)\n", len(batch), opts.lat, opts.lon)
	addrs := svc.Addresses(ctx)
	for _, r := range batch {
		a := addrs[r.ID]
		fmt.Fprintf(out, "  ride %s  %-13s  %s -> %s\n", r.ID, r.Rider.Name, a.Pickup, a.Destination)
	}

	for _, id := range opts.decline {
		if _, err := svc.Decline(ctx, id); err != nil {
			fmt.Fprintf(out, "decline %s: %v\n", id, err)
		}
		printNotifications(out, rec)
	}

	trip, err := svc.Accept(ctx, opts.rideID)
	printNotifications(out, rec)
	if err != nil {
		return fmt.Errorf("accept %s: %w", opts.rideID, err)
	}
	printTrip(out, "to pickup", trip)

	trip, err = svc.Pickup(ctx, opts.rideID)
	printNotifications(out, rec)
	if err != nil {
		return fmt.Errorf("pickup %s: %w", opts.rideID, err)
	}
	printTrip(out, "to destination", trip)

	done, err := svc.DropOff(ctx, opts.rideID)
	printNotifications(out, rec)
	if err != nil {
		return fmt.Errorf("drop off %s: %w", opts.rideID, err)
	}
	fmt.Fprintf(out, "ride %s %s by %s\n", done.ID, done.Status, *done.DriverID)

	remaining := svc.Store.Rides()
	ids := make([]string, 0, len(remaining))
	for _, r := range remaining {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	fmt.Fprintf(out, "active: %v completed: %d\n", ids, len(svc.Store.CompletedRides()))
	return nil
}

func printTrip(out io.Writer, label string, t workflow.Trip) {
	fmt.Fprintf(out, "ride %s %s, %s: %d points, eta %.0fs\n", t.Ride.ID, t.Ride.Status, label, len(t.Path), t.ETASeconds)
}

func printNotifications(out io.Writer, rec *dispatch.Recorder) {
	for _, n := range rec.Drain() {
		fmt.Fprintf(out, "  [%s] %s\n", n.Kind, n.Message)
	}
}
