// Package geodesy provides coordinate frame conversions for motion-tracking
// data: geodetic (latitude/longitude/altitude on the WGS-84 ellipsoid) to
// ECEF (Earth-Centered Earth-Fixed), and ECEF to a local tangent-plane
// North-East-Down frame anchored at a reference point.
//
// The NED frame is a local tangent-plane approximation: the rotation is only
// exact in the immediate vicinity of the reference point, with curvature
// error growing with distance. That is the intended behavior for track
// visualization, not a global conformal projection.
package geodesy

import "math"

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Geodetic is a position on the WGS-84 ellipsoid.
// Latitude and longitude are in radians, altitude in meters above the
// ellipsoid surface.
type Geodetic struct {
	Lat, Lon, Alt float64
}

// ECEF is a Cartesian position in the Earth-Centered Earth-Fixed frame,
// in meters. X passes through (0°, 0°), Z through the north pole.
type ECEF struct {
	X, Y, Z float64
}

// NED is a Cartesian offset in a local tangent-plane North-East-Down frame,
// in meters relative to a reference point. Down is positive toward Earth's
// center, so a target above the reference has negative Down.
type NED struct {
	North, East, Down float64
}

// GeodeticToECEF converts a geodetic position to ECEF meters using the
// closed-form prime-vertical radius of curvature. Valid for any latitude in
// [-π/2, π/2]; all finite inputs produce finite output.
func GeodeticToECEF(p Geodetic) ECEF {
	sinLat := math.Sin(p.Lat)
	cosLat := math.Cos(p.Lat)
	sinLon := math.Sin(p.Lon)
	cosLon := math.Cos(p.Lon)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ECEF{
		X: (N + p.Alt) * cosLat * cosLon,
		Y: (N + p.Alt) * cosLat * sinLon,
		Z: (N*(1-wgs84E2) + p.Alt) * sinLat,
	}
}

// ECEFToGeodetic converts ECEF meters back to a geodetic position using the
// iterative Bowring method. Converges in 2-3 iterations for positions near
// the ellipsoid surface.
func ECEFToGeodetic(p ECEF) Geodetic {
	lon := math.Atan2(p.Y, p.X)

	rho := math.Sqrt(p.X*p.X + p.Y*p.Y)

	// Initial estimate using Bowring's method.
	lat := math.Atan2(p.Z, rho*(1-wgs84E2))

	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(p.Z+wgs84E2*N*sinLat, rho)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = rho/cosLat - N
	} else {
		alt = math.Abs(p.Z)/math.Abs(sinLat) - N*(1-wgs84E2)
	}

	return Geodetic{Lat: lat, Lon: lon, Alt: alt}
}

// Reference anchors a NED frame at a geodetic point. The reference ECEF
// position and rotation terms are precomputed once so they can be reused
// across every row of a batch.
type Reference struct {
	point          Geodetic
	ecef           ECEF
	sinLat, cosLat float64
	sinLon, cosLon float64
}

// NewReference precomputes the NED rotation at the given geodetic point.
func NewReference(p Geodetic) Reference {
	return Reference{
		point:  p,
		ecef:   GeodeticToECEF(p),
		sinLat: math.Sin(p.Lat),
		cosLat: math.Cos(p.Lat),
		sinLon: math.Sin(p.Lon),
		cosLon: math.Cos(p.Lon),
	}
}

// Point returns the geodetic position the reference was built from.
func (r Reference) Point() Geodetic {
	return r.point
}

// ECEFToNED rotates the ECEF offset from the reference into the local
// tangent plane. A target identical to the reference yields (0, 0, 0) up to
// floating-point rounding. Longitude wraparound is not normalized; callers
// must supply longitudes on a consistent branch cut.
func (r Reference) ECEFToNED(p ECEF) NED {
	dx := p.X - r.ecef.X
	dy := p.Y - r.ecef.Y
	dz := p.Z - r.ecef.Z

	return NED{
		North: -r.sinLat*r.cosLon*dx - r.sinLat*r.sinLon*dy + r.cosLat*dz,
		East:  -r.sinLon*dx + r.cosLon*dy,
		Down:  -r.cosLat*r.cosLon*dx - r.cosLat*r.sinLon*dy - r.sinLat*dz,
	}
}

// GeodeticToNED converts a geodetic position straight to NED relative to
// the reference.
func (r Reference) GeodeticToNED(p Geodetic) NED {
	return r.ECEFToNED(GeodeticToECEF(p))
}

// Finite reports whether all three components are finite numbers.
func (p Geodetic) Finite() bool {
	return finite(p.Lat) && finite(p.Lon) && finite(p.Alt)
}

// Finite reports whether all three components are finite numbers.
func (p ECEF) Finite() bool {
	return finite(p.X) && finite(p.Y) && finite(p.Z)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
