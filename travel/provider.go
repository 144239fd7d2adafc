// Package travel implements the Travel-Time Provider (spec.md §4.2): an
// External routing-API adapter that falls back silently to a Haversine
// heuristic on any failure.
package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/geo"
	"github.com/va6996/tripplanner/log"
	"github.com/va6996/tripplanner/store"
)

// Estimate is the result of a travel-time query.
type Estimate struct {
	DurationMinutes int
	DistanceMeters  *int
	Polyline        string
}

// Provider estimates travel duration/distance/polyline between two points.
type Provider interface {
	Estimate(ctx context.Context, origin, destination domain.Coordinates, mode domain.TravelMode) (Estimate, error)
}

const defaultMinutes = 15

// avgSpeedKmh is the mode-specific average speed used by the heuristic,
// grounded on spec.md §4.2's example figures.
var avgSpeedKmh = map[domain.TravelMode]float64{
	domain.ModeDrive:   30,
	domain.ModeWalk:     5,
	domain.ModeTransit: 20,
}

const roadNetworkAdjustment = 1.3
const minEstimateMinutes = 5

// HeuristicProvider computes a great-circle-distance estimate. It never
// fails: a missing coordinate degrades to a constant default rather than
// returning an error, matching spec.md §4.2.
type HeuristicProvider struct{}

func NewHeuristicProvider() *HeuristicProvider { return &HeuristicProvider{} }

func (h *HeuristicProvider) Estimate(ctx context.Context, origin, destination domain.Coordinates, mode domain.TravelMode) (Estimate, error) {
	if origin == (domain.Coordinates{}) || destination == (domain.Coordinates{}) {
		return Estimate{DurationMinutes: defaultMinutes}, nil
	}

	meters := geo.HaversineMeters(origin.Lat, origin.Lon, destination.Lat, destination.Lon)
	meters *= roadNetworkAdjustment

	speed := avgSpeedKmh[mode]
	if speed == 0 {
		speed = avgSpeedKmh[domain.ModeDrive]
	}

	minutes := int((meters / 1000.0 / speed) * 60)
	if minutes < minEstimateMinutes {
		minutes = minEstimateMinutes
	}

	distance := int(meters)
	estimate := Estimate{DurationMinutes: minutes, DistanceMeters: &distance}
	if mode == domain.ModeWalk {
		drive, _ := h.Estimate(ctx, origin, destination, domain.ModeDrive)
		estimate = EnsureWalkSlowerThanDrive(estimate, drive)
	}
	return estimate, nil
}

// externalCacheTTL bounds how long a route estimate is reused from
// provider_cache before the next identical query goes out to Maps again.
const externalCacheTTL = 60 * time.Minute

// ExternalProvider calls a routing API (here, Google's Routes API v2 via
// geo.Client) and falls back silently to the heuristic on any error,
// empty route, missing coordinates, or timeout (spec.md §4.2). When DB is
// set it checks provider_cache before calling out and populates it
// afterward, per SPEC_FULL.md's provider response cache.
type ExternalProvider struct {
	Maps     *geo.Client
	Fallback Provider
	Timeout  time.Duration
	DB       *gorm.DB
}

// NewExternalProvider wires an External Travel-Time Provider with the
// per-call timeout from spec.md §5 (default 5s).
func NewExternalProvider(maps *geo.Client, timeout time.Duration, db *gorm.DB) *ExternalProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ExternalProvider{Maps: maps, Fallback: NewHeuristicProvider(), Timeout: timeout, DB: db}
}

func (e *ExternalProvider) Estimate(ctx context.Context, origin, destination domain.Coordinates, mode domain.TravelMode) (Estimate, error) {
	if e.Maps == nil || origin == (domain.Coordinates{}) || destination == (domain.Coordinates{}) {
		return e.Fallback.Estimate(ctx, origin, destination, mode)
	}

	key := externalCacheKey(origin, destination, mode)
	if e.DB != nil {
		if entry, err := store.GetCacheEntry(e.DB, key); err == nil {
			var cached Estimate
			if err := json.Unmarshal(entry.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	result, err := e.Maps.DistanceMatrix(callCtx, origin, destination, mode)
	if err != nil {
		log.WithField("error", err).Debug("external travel-time provider failed, falling back to heuristic")
		return e.Fallback.Estimate(ctx, origin, destination, mode)
	}

	estimate := Estimate{DurationMinutes: result.DurationMinutes, DistanceMeters: &result.DistanceMeters, Polyline: result.Polyline}

	if e.DB != nil {
		if payload, err := json.Marshal(estimate); err == nil {
			if err := store.SetCacheEntry(e.DB, key, payload, externalCacheTTL); err != nil {
				log.WithField("error", err).Debug("failed to populate travel-time provider cache")
			}
		}
	}

	return estimate, nil
}

func externalCacheKey(origin, destination domain.Coordinates, mode domain.TravelMode) string {
	return fmt.Sprintf("travel:%s:%.4f,%.4f:%.4f,%.4f", mode, origin.Lat, origin.Lon, destination.Lat, destination.Lon)
}

// EnsureWalkSlowerThanDrive is a guard used by tests and by providers that
// compose estimates from multiple sources: spec.md §4.2 requires walking
// to always be strictly slower than driving for the same pair.
func EnsureWalkSlowerThanDrive(walk, drive Estimate) Estimate {
	if walk.DurationMinutes <= drive.DurationMinutes {
		walk.DurationMinutes = drive.DurationMinutes + 1
	}
	return walk
}
