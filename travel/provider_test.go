package travel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/geo"
	"github.com/va6996/tripplanner/store"
)

func TestHeuristicProvider_MissingCoordinatesDefaults(t *testing.T) {
	h := NewHeuristicProvider()
	est, err := h.Estimate(context.Background(), domain.Coordinates{}, domain.Coordinates{Lat: 1, Lon: 1}, domain.ModeDrive)
	assert.NoError(t, err)
	assert.Equal(t, defaultMinutes, est.DurationMinutes)
	assert.Nil(t, est.DistanceMeters)
}

func TestHeuristicProvider_UnknownModeFallsBackToDriveSpeed(t *testing.T) {
	h := NewHeuristicProvider()
	drive, err := h.Estimate(context.Background(), domain.Coordinates{Lat: 38.70, Lon: -9.15}, domain.Coordinates{Lat: 38.75, Lon: -9.10}, domain.ModeDrive)
	assert.NoError(t, err)
	unknown, err := h.Estimate(context.Background(), domain.Coordinates{Lat: 38.70, Lon: -9.15}, domain.Coordinates{Lat: 38.75, Lon: -9.10}, domain.TravelMode("scooter"))
	assert.NoError(t, err)
	assert.Equal(t, drive.DurationMinutes, unknown.DurationMinutes)
}

func TestHeuristicProvider_ClampsToMinimumMinutes(t *testing.T) {
	h := NewHeuristicProvider()
	origin := domain.Coordinates{Lat: 38.7223, Lon: -9.1393}
	destination := domain.Coordinates{Lat: 38.7224, Lon: -9.1394}
	est, err := h.Estimate(context.Background(), origin, destination, domain.ModeDrive)
	assert.NoError(t, err)
	assert.Equal(t, minEstimateMinutes, est.DurationMinutes)
}

func TestHeuristicProvider_WalkIsSlowerThanDriveForSameRoute(t *testing.T) {
	h := NewHeuristicProvider()
	origin := domain.Coordinates{Lat: 38.7223, Lon: -9.1393}
	destination := domain.Coordinates{Lat: 41.1579, Lon: -8.6291}

	drive, err := h.Estimate(context.Background(), origin, destination, domain.ModeDrive)
	assert.NoError(t, err)
	walk, err := h.Estimate(context.Background(), origin, destination, domain.ModeWalk)
	assert.NoError(t, err)

	assert.Greater(t, walk.DurationMinutes, drive.DurationMinutes)
}

func TestEnsureWalkSlowerThanDrive_ForcesWalkSlowerWhenViolated(t *testing.T) {
	walk := Estimate{DurationMinutes: 5}
	drive := Estimate{DurationMinutes: 10}

	fixed := EnsureWalkSlowerThanDrive(walk, drive)

	assert.Greater(t, fixed.DurationMinutes, drive.DurationMinutes)
}

func TestEnsureWalkSlowerThanDrive_LeavesAlreadyValidEstimateUnchanged(t *testing.T) {
	walk := Estimate{DurationMinutes: 20}
	drive := Estimate{DurationMinutes: 10}

	fixed := EnsureWalkSlowerThanDrive(walk, drive)

	assert.Equal(t, 20, fixed.DurationMinutes)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, store.New(db).AutoMigrate())
	return db
}

func TestExternalProvider_FallsBackToHeuristicOnMapsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	maps := &geo.Client{APIKey: "test-key", HTTPClient: srv.Client(), RoutesBaseURL: srv.URL}
	provider := NewExternalProvider(maps, 0, nil)

	origin := domain.Coordinates{Lat: 38.70, Lon: -9.15}
	destination := domain.Coordinates{Lat: 38.75, Lon: -9.10}

	est, err := provider.Estimate(context.Background(), origin, destination, domain.ModeDrive)
	assert.NoError(t, err)

	fallback, err := provider.Fallback.Estimate(context.Background(), origin, destination, domain.ModeDrive)
	assert.NoError(t, err)
	assert.Equal(t, fallback.DurationMinutes, est.DurationMinutes)
}

func TestExternalProvider_MissingCoordinatesSkipsMapsCall(t *testing.T) {
	provider := NewExternalProvider(&geo.Client{APIKey: "test-key"}, 0, nil)
	est, err := provider.Estimate(context.Background(), domain.Coordinates{}, domain.Coordinates{Lat: 1, Lon: 1}, domain.ModeDrive)
	assert.NoError(t, err)
	assert.Equal(t, defaultMinutes, est.DurationMinutes)
}

func TestExternalProvider_CachesSuccessfulResult(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"routes":[{"duration":"600s","distanceMeters":4200}]}`))
	}))
	defer srv.Close()

	db := setupTestDB(t)
	maps := &geo.Client{APIKey: "test-key", HTTPClient: srv.Client(), RoutesBaseURL: srv.URL}
	provider := NewExternalProvider(maps, 0, db)

	origin := domain.Coordinates{Lat: 38.70, Lon: -9.15}
	destination := domain.Coordinates{Lat: 38.75, Lon: -9.10}

	first, err := provider.Estimate(context.Background(), origin, destination, domain.ModeDrive)
	assert.NoError(t, err)
	assert.Equal(t, 10, first.DurationMinutes)

	second, err := provider.Estimate(context.Background(), origin, destination, domain.ModeDrive)
	assert.NoError(t, err)
	assert.Equal(t, first.DurationMinutes, second.DurationMinutes)

	assert.Equal(t, 1, calls, "second call for the same route must be served from provider_cache")
}
