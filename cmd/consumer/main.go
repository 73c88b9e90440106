package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/driver-rides/internal/events"
	"github.com/example/driver-rides/internal/logging"
	"github.com/example/driver-rides/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total notification messages consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	msgsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_skipped_total",
		Help: "Total notifications that carry no ride status",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, msgsSkipped, redisUpdates, redisErrors)
}

const (
	rideKeyPrefix = "ride:status:"
	recentKey     = "rides:last_event"
)

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	logger := logging.NewLogger("driver-rides-consumer", os.Getenv("LOG_LEVEL"))

	brokers := []string{"localhost:9092"}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = brokers[:0]
		for _, b := range strings.Split(v, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
	}
	topic := getenv("KAFKA_TOPIC", "driver-notifications")
	group := getenv("KAFKA_GROUP", "driver-rides-consumer")

	rc := redis.NewClient(&redis.Options{Addr: getenv("REDIS_ADDR", "localhost:6379"), Password: os.Getenv("REDIS_PASSWORD")})
	radapter := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", topic, "brokers", brokers, "group", group)
	consume(ctx, r, radapter, logger, time.Second)
	logger.Info("shutting down consumer")
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// consume mirrors ride lifecycle notifications until ctx is done. Read errors
// back off exponentially up to 30s.
func consume(ctx context.Context, r MessageReader, rc RedisUpdater, logger *slog.Logger, backoff time.Duration) {
	const maxBackoff = 30 * time.Second
	delay := backoff
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, maxBackoff)
			continue
		}
		delay = backoff
		handleMessage(ctx, m, rc, logger)
	}
}

func handleMessage(ctx context.Context, m kafka.Message, rc RedisUpdater, logger *slog.Logger) {
	msgsConsumed.Inc()
	n, err := events.Decode(m)
	if err != nil {
		msgsInvalid.Inc()
		logger.Warn("invalid message", "offset", m.Offset, "error", err)
		return
	}
	status, ok := statusFor(n)
	if !ok {
		msgsSkipped.Inc()
		return
	}
	if err := updateRedisWithRetry(ctx, rc, n, status, 3, 200*time.Millisecond); err != nil {
		redisErrors.Inc()
		logger.Error("redis update failed", "ride_id", n.RideID, "error", err)
		return
	}
	redisUpdates.Inc()
	logger.Debug("ride status mirrored", "ride_id", n.RideID, "status", status)
}

// statusFor maps a lifecycle notification to the ride status it reports.
func statusFor(n models.Notification) (models.RideStatus, bool) {
	if n.RideID == "" {
		return "", false
	}
	switch n.Kind {
	case models.NotifyRideAccepted:
		return models.StatusAccepted, true
	case models.NotifyRideDeclined:
		return models.StatusDeclined, true
	case models.NotifyRideStarted:
		return models.StatusOngoing, true
	case models.NotifyRideCompleted:
		return models.StatusCompleted, true
	}
	return "", false
}

// RedisUpdater is the subset of redis operations the mirror needs.
type RedisUpdater interface {
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	ZAdd(ctx context.Context, key string, member redis.Z) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return r.c.HSet(ctx, key, values).Err()
}

func (r *redisAdapter) ZAdd(ctx context.Context, key string, member redis.Z) error {
	return r.c.ZAdd(ctx, key, member).Err()
}

// updateRedisWithRetry records the latest status of the ride and indexes it by
// event time, retrying each step with exponential backoff.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, n models.Notification, status models.RideStatus, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if err := rc.HSet(ctx, rideKeyPrefix+n.RideID, map[string]interface{}{
			"status":          string(status),
			"notification_id": n.ID,
			"message":         n.Message,
			"at":              n.At.UTC().Format(time.RFC3339Nano),
		}); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		if err := rc.ZAdd(ctx, recentKey, redis.Z{Score: float64(n.At.Unix()), Member: n.RideID}); err != nil {
			if i == attempts-1 {
				return err
			}
			time.Sleep(delay)
			delay *= 2
			continue
		}
		return nil
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
