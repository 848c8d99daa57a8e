// Package mapping describes how an arbitrary source CSV maps onto the
// Vector Space schema: column renames, default fills, entity identity,
// input coordinate system and the NED reference specification. Configs load
// from YAML or JSON files (YAML is a superset) and individual settings can
// be overridden from command-line arguments.
package mapping

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bybunni/vector-space/internal/ned"
)

// Coordinate systems accepted for the input position columns.
const (
	CoordNED      = "ned"      // pos_north/pos_east/pos_down pass through
	CoordLLA      = "lla"      // pos_lat/pos_lon/pos_alt, radians/meters
	CoordECEF     = "ecef"     // pos_x/pos_y/pos_z, meters
	CoordInertial = "eci"      // pos_x/pos_y/pos_z, kilometers, per-row GMST rotation
)

// Angle unit settings for roll/pitch/yaw and mount angles.
const (
	AnglesDegrees = "degrees"
	AnglesRadians = "radians"
)

// Config is a full mapping description for one conversion.
type Config struct {
	// HeaderRows is the number of header rows in the source CSV: 1
	// (default) or 2. With 2, source column names are "Top/Sub" composites.
	HeaderRows int `yaml:"header_rows"`

	// CoordinateSystem selects how input positions are interpreted.
	// Empty means CoordNED.
	CoordinateSystem string `yaml:"coordinate_system"`

	// AngleUnits is the unit of input orientation angles. Empty means
	// AnglesDegrees (no conversion).
	AngleUnits string `yaml:"angle_units"`

	// ColumnMapping renames source columns to target columns.
	ColumnMapping map[string]string `yaml:"column_mapping"`

	// Reference specifies the NED frame origin for lla/ecef/eci input.
	Reference *Reference `yaml:"reference"`

	// EntityID configures where entity identifiers come from.
	EntityID EntityID `yaml:"entity_id"`

	// Defaults fill target columns that are missing or have empty cells.
	// Values may be numbers or strings.
	Defaults map[string]any `yaml:"defaults"`
}

// EntityID selects the entity identifier source: a column of the mapped
// input, or one fixed value for all rows. Column wins when both are set.
type EntityID struct {
	Column string `yaml:"column"`
	Fixed  string `yaml:"fixed"`
}

// Reference is the NED origin specification: the literal string "first"
// (anchor at the first data row) or a complete {lat, lon, alt} point in
// radians/meters.
type Reference struct {
	First bool
	Lat   float64
	Lon   float64
	Alt   float64
}

// UnmarshalYAML accepts either the scalar "first" or a lat/lon/alt mapping.
func (r *Reference) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value == "first" {
			*r = Reference{First: true}
			return nil
		}
		return fmt.Errorf("reference must be \"first\" or a lat/lon/alt mapping, got %q", value.Value)
	}

	var fields map[string]float64
	if err := value.Decode(&fields); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	for _, key := range []string{"lat", "lon", "alt"} {
		if _, ok := fields[key]; !ok {
			return fmt.Errorf("reference: missing %q", key)
		}
	}
	*r = Reference{Lat: fields["lat"], Lon: fields["lon"], Alt: fields["alt"]}
	return nil
}

// Spec converts the configured reference into the core specification.
// A nil reference is an error for coordinate systems that need one.
func (c *Config) Spec() (ned.ReferenceSpec, error) {
	if c.Reference == nil {
		return ned.ReferenceSpec{}, &ned.ConfigError{Reason: "no reference configured"}
	}
	if c.Reference.First {
		return ned.First(), nil
	}
	return ned.Explicit(c.Reference.Lat, c.Reference.Lon, c.Reference.Alt), nil
}

// Load reads a YAML or JSON config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML or JSON config document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail mid-conversion.
func (c *Config) Validate() error {
	switch c.HeaderRows {
	case 0, 1, 2:
	default:
		return fmt.Errorf("header_rows must be 1 or 2, got %d", c.HeaderRows)
	}

	switch c.CoordinateSystem {
	case "", CoordNED:
	case CoordLLA, CoordECEF, CoordInertial:
		if c.Reference == nil {
			return &ned.ConfigError{Reason: fmt.Sprintf("coordinate_system %q requires a reference", c.CoordinateSystem)}
		}
	default:
		return fmt.Errorf("unknown coordinate_system %q", c.CoordinateSystem)
	}

	switch c.AngleUnits {
	case "", AnglesDegrees, AnglesRadians:
	default:
		return fmt.Errorf("unknown angle_units %q", c.AngleUnits)
	}

	return nil
}

// FormatDefault renders a default value the way it should appear in a CSV
// cell. YAML numbers arrive as int or float64.
func FormatDefault(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ParseMappingArg parses an inline "src:dst,src:dst" mapping argument.
func ParseMappingArg(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		src, dst, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(src)] = strings.TrimSpace(dst)
	}
	return out
}

// ParseDefaultsArg parses an inline "col:value,col:value" defaults
// argument. Values that parse as numbers become numbers, matching the
// config-file form.
func ParseDefaultsArg(s string) map[string]any {
	out := make(map[string]any)
	for _, pair := range strings.Split(s, ",") {
		col, val, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		col = strings.TrimSpace(col)
		val = strings.TrimSpace(val)
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			out[col] = f
		} else {
			out[col] = val
		}
	}
	return out
}

// ParseReferenceArg parses a command-line reference argument: "first" or
// "lat,lon,alt" in radians/meters.
func ParseReferenceArg(s string) (*Reference, error) {
	if s == "first" {
		return &Reference{First: true}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("reference must be 'first' or 'lat,lon,alt', got %q", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("reference must be 'first' or 'lat,lon,alt', got %q", s)
		}
		vals[i] = v
	}
	return &Reference{Lat: vals[0], Lon: vals[1], Alt: vals[2]}, nil
}
