// Package enrich resolves human-readable addresses for a batch of rides.
package enrich

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/driver-rides/internal/models"
)

// AddressResolver is satisfied by *location.Provider.
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, c models.Coord) string
}

type RideAddresses struct {
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
}

// Addresses looks up pickup and destination of every ride concurrently, at most
// limit lookups at a time. Each lookup writes only its own ride's entry. When
// ctx ends early, pending lookups are skipped and whatever finished is returned;
// results that arrive after that are dropped.
func Addresses(ctx context.Context, r AddressResolver, rides []models.RideRequest, limit int) map[string]RideAddresses {
	var (
		mu  sync.Mutex
		out = make(map[string]RideAddresses, len(rides))
	)
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ride := range rides {
		for _, pickup := range []bool{true, false} {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				c := ride.Destination
				if pickup {
					c = ride.Pickup
				}
				addr := r.ReverseGeocode(gctx, c)
				if gctx.Err() != nil {
					return nil
				}
				mu.Lock()
				e := out[ride.ID]
				if pickup {
					e.Pickup = addr
				} else {
					e.Destination = addr
				}
				out[ride.ID] = e
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	mu.Lock()
	defer mu.Unlock()
	res := make(map[string]RideAddresses, len(out))
	for k, v := range out {
		res[k] = v
	}
	return res
}
