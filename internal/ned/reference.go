// Package ned resolves the reference point for a batch of geodetic samples
// and maps the batch into the local North-East-Down frame anchored there.
//
// Reference resolution happens eagerly, exactly once per batch, before any
// row is transformed: every row shares the single resolved reference, so a
// bad specification or an empty stream fails the batch up front instead of
// surfacing mid-conversion.
package ned

import "github.com/bybunni/vector-space/internal/geodesy"

// Mode selects how the batch reference point is chosen.
type Mode int

const (
	// ModeFirst anchors the NED frame at the first sample of the stream.
	ModeFirst Mode = iota
	// ModeExplicit anchors the NED frame at a caller-supplied point.
	ModeExplicit
)

// ReferenceSpec is the two-case reference specification: the first sample
// of the stream, or an explicit geodetic point independent of the data.
type ReferenceSpec struct {
	Mode  Mode
	Point geodesy.Geodetic // used only when Mode == ModeExplicit
}

// First returns a spec that anchors the frame at the stream's first sample.
func First() ReferenceSpec {
	return ReferenceSpec{Mode: ModeFirst}
}

// Explicit returns a spec anchored at the given point (radians, meters).
func Explicit(lat, lon, alt float64) ReferenceSpec {
	return ReferenceSpec{
		Mode:  ModeExplicit,
		Point: geodesy.Geodetic{Lat: lat, Lon: lon, Alt: alt},
	}
}

// Resolve produces the single reference for a batch. ModeFirst on an empty
// stream returns ErrEmptyStream; a non-finite sample or explicit point is
// rejected before any row transform starts.
func (s ReferenceSpec) Resolve(stream []geodesy.Geodetic) (geodesy.Reference, error) {
	switch s.Mode {
	case ModeFirst:
		if len(stream) == 0 {
			return geodesy.Reference{}, ErrEmptyStream
		}
		p := stream[0]
		if !p.Finite() {
			return geodesy.Reference{}, &InvalidSampleError{Index: 0, Field: "position", Reason: "not finite"}
		}
		return geodesy.NewReference(p), nil
	case ModeExplicit:
		if !s.Point.Finite() {
			return geodesy.Reference{}, &ConfigError{Reason: "explicit point is not finite"}
		}
		return geodesy.NewReference(s.Point), nil
	default:
		return geodesy.Reference{}, &ConfigError{Reason: "unknown reference mode"}
	}
}
