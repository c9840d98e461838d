package valueobject

import (
	"fmt"
	"math/big"
)

// CoordinateScale is the fixed-point scale of stored coordinates (micro-degrees)
const CoordinateScale = 1_000_000

const (
	maxLatitude  = 90 * CoordinateScale
	maxLongitude = 180 * CoordinateScale
)

// Coordinates is a latitude/longitude pair in signed fixed point at 1e6 scale.
// It is immutable.
type Coordinates struct {
	lat  int64
	long int64
}

// NewCoordinates creates coordinates from micro-degree values
func NewCoordinates(lat, long int64) (Coordinates, error) {
	if lat < -maxLatitude || lat > maxLatitude {
		return Coordinates{}, fmt.Errorf("latitude %d out of range", lat)
	}
	if long < -maxLongitude || long > maxLongitude {
		return Coordinates{}, fmt.Errorf("longitude %d out of range", long)
	}
	return Coordinates{lat: lat, long: long}, nil
}

// MustNewCoordinates creates coordinates and panics on invalid input
func MustNewCoordinates(lat, long int64) Coordinates {
	c, err := NewCoordinates(lat, long)
	if err != nil {
		panic(err)
	}
	return c
}

// Lat returns the latitude in micro-degrees
func (c Coordinates) Lat() int64 {
	return c.lat
}

// Long returns the longitude in micro-degrees
func (c Coordinates) Long() int64 {
	return c.long
}

// DistanceSquared returns (lat-c.lat)² + (long-c.long)² in raw fixed-point units.
// The reported point may lie outside the int64 range, so the arithmetic is done
// on big integers.
func (c Coordinates) DistanceSquared(lat, long *big.Int) *big.Int {
	dLat := new(big.Int).Sub(lat, big.NewInt(c.lat))
	dLong := new(big.Int).Sub(long, big.NewInt(c.long))

	d := new(big.Int).Mul(dLat, dLat)
	return d.Add(d, new(big.Int).Mul(dLong, dLong))
}

// String returns the coordinates as a decimal degree pair
func (c Coordinates) String() string {
	return fmt.Sprintf("(%s, %s)", formatScaled(c.lat), formatScaled(c.long))
}

func formatScaled(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/CoordinateScale, v%CoordinateScale)
}
