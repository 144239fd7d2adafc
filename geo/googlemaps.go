package geo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"

	"github.com/va6996/tripplanner/domain"
)

// Client wraps the Google Maps SDK for the External POI provider (Places
// Nearby Search) and the Geocoding lookups needed to resolve a hotel's
// free-text location into coordinates, plus a raw HTTP client for the
// Routes API v2 `computeRoutes` endpoint the External Travel-Time
// provider needs (the SDK has no v2 Routes binding).
type Client struct {
	APIKey     string
	MapsClient *maps.Client
	HTTPClient *http.Client

	// RoutesBaseURL overrides routesComputeURL; empty means use the real
	// Routes API. Tests point this at an httptest.Server.
	RoutesBaseURL string
}

// NewClient creates a new Google Maps API client.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &Client{APIKey: apiKey, MapsClient: c, HTTPClient: &http.Client{}}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) routesURL() string {
	if c.RoutesBaseURL != "" {
		return c.RoutesBaseURL
	}
	return routesComputeURL
}

// GetCoordinates resolves a free-text address into coordinates.
func (c *Client) GetCoordinates(ctx context.Context, address string) (*domain.Coordinates, error) {
	if c.MapsClient == nil {
		return nil, fmt.Errorf("maps client not initialized")
	}

	results, err := c.MapsClient.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no geocoding results for %q", address)
	}

	loc := results[0].Geometry.Location
	return &domain.Coordinates{Lat: loc.Lat, Lon: loc.Lng}, nil
}

// NearbySearch backs the External POI Provider (spec.md §4.1): it queries
// Places Nearby Search around center for the given category keyword and
// translates results into POICandidate, with RankScore set to
// 2*(rating or 3.5), the rating term of the local ranking formula.
func (c *Client) NearbySearch(ctx context.Context, center domain.Coordinates, category string, limit int) ([]domain.POICandidate, error) {
	if c.MapsClient == nil {
		return nil, fmt.Errorf("maps client not initialized")
	}

	req := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lon},
		Radius:   5000,
		Keyword:  category,
		RankBy:   maps.RankByProminence,
	}

	resp, err := c.MapsClient.NearbySearch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("nearby search failed: %w", err)
	}

	candidates := make([]domain.POICandidate, 0, len(resp.Results))
	for i, r := range resp.Results {
		if limit > 0 && i >= limit {
			break
		}
		var rating *float64
		if r.Rating > 0 {
			v := float64(r.Rating)
			rating = &v
		}
		var priceTier *int
		if r.PriceLevel > 0 {
			v := r.PriceLevel
			priceTier = &v
		}
		candidates = append(candidates, domain.POICandidate{
			POIID:           r.PlaceID,
			Name:            r.Name,
			PrimaryCategory: category,
			SecondaryTags:   r.Types,
			Rating:          rating,
			PriceTier:       priceTier,
			Address:         r.Vicinity,
			Coordinates: &domain.Coordinates{
				Lat: r.Geometry.Location.Lat,
				Lon: r.Geometry.Location.Lng,
			},
			// upstream score, translated to our scale the same way the
			// local ranking formula weighs rating (spec.md §4.1)
			RankScore: 2 * ratingOrDefault(rating),
		})
	}

	return candidates, nil
}

func ratingOrDefault(rating *float64) float64 {
	if rating == nil {
		return 3.5
	}
	return *rating
}

// DistanceMatrixEstimate backs the External Travel-Time Provider
// (spec.md §4.2).
type DistanceMatrixEstimate struct {
	DurationMinutes int
	DistanceMeters  int
	Polyline        string
}

const routesComputeURL = "https://routes.googleapis.com/directions/v2:computeRoutes"
const routesFieldMask = "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline"

type routesLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routesWaypoint struct {
	Location struct {
		LatLng routesLatLng `json:"latLng"`
	} `json:"location"`
}

func newRoutesWaypoint(coords domain.Coordinates) routesWaypoint {
	w := routesWaypoint{}
	w.Location.LatLng = routesLatLng{Latitude: coords.Lat, Longitude: coords.Lon}
	return w
}

type computeRoutesRequest struct {
	Origin      routesWaypoint `json:"origin"`
	Destination routesWaypoint `json:"destination"`
	TravelMode  string         `json:"travelMode"`
}

type computeRoutesResponse struct {
	Routes []struct {
		Duration       string `json:"duration"`
		DistanceMeters int    `json:"distanceMeters"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// DistanceMatrix estimates travel time/distance/polyline between two
// points for the given mode via the Routes API v2 `computeRoutes`
// endpoint: a raw POST carrying the api-key as a header and a field-mask
// restricting the response to duration, distance, and encoded polyline
// (spec.md §4.2).
func (c *Client) DistanceMatrix(ctx context.Context, origin, destination domain.Coordinates, mode domain.TravelMode) (*DistanceMatrixEstimate, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("maps client not initialized")
	}

	body, err := json.Marshal(computeRoutesRequest{
		Origin:      newRoutesWaypoint(origin),
		Destination: newRoutesWaypoint(destination),
		TravelMode:  routesTravelMode(mode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode routes request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.routesURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build routes request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.APIKey)
	req.Header.Set("X-Goog-FieldMask", routesFieldMask)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("routes request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routes api returned status %s", resp.Status)
	}

	var parsed computeRoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode routes response: %w", err)
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("routes api returned no routes")
	}

	route := parsed.Routes[0]
	minutes, err := parseDurationSeconds(route.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to parse route duration %q: %w", route.Duration, err)
	}

	return &DistanceMatrixEstimate{
		DurationMinutes: minutes,
		DistanceMeters:  route.DistanceMeters,
		Polyline:        route.Polyline.EncodedPolyline,
	}, nil
}

// parseDurationSeconds parses a Routes API duration of the form "1234s"
// into ceiling-minutes, minimum 1 (spec.md §4.2).
func parseDurationSeconds(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "s")
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	minutes := seconds / 60
	if seconds%60 != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes, nil
}

func routesTravelMode(mode domain.TravelMode) string {
	if mode == "" {
		return string(domain.ModeDrive)
	}
	return string(mode)
}
