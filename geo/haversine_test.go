package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters_SamePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMeters(38.7, -9.1, 38.7, -9.1))
}

func TestHaversineMeters_KnownDistance(t *testing.T) {
	// Lisbon (38.7223, -9.1393) to Porto (41.1579, -8.6291), roughly 274km.
	meters := HaversineMeters(38.7223, -9.1393, 41.1579, -8.6291)
	assert.InDelta(t, 274000, meters, 5000)
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	a := HaversineMeters(38.7223, -9.1393, 41.1579, -8.6291)
	b := HaversineMeters(41.1579, -8.6291, 38.7223, -9.1393)
	assert.Equal(t, a, b)
}
