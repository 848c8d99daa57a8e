// Package schema defines the fixed Vector Space output format: the ordered
// column set every converted file must carry, which of those columns hold
// angles, and the canonical timestamp representation.
package schema

// OutputColumns is the required column order of the Vector Space CSV
// format. Columns with no source data are emitted empty.
var OutputColumns = []string{
	"timestamp",
	"entity_type",
	"entity_id",
	"platform_id",
	"pos_north",
	"pos_east",
	"pos_down",
	"vel_north",
	"vel_east",
	"vel_down",
	"roll",
	"pitch",
	"yaw",
	"sensor_type",
	"azimuth_fov",
	"elevation_fov",
	"range_min",
	"range_max",
	"mount_roll",
	"mount_pitch",
	"mount_yaw",
	"mount_type",
}

// AngleColumns are the output columns expressed in degrees. When the input
// carries radians these are the columns that get converted.
var AngleColumns = []string{
	"roll", "pitch", "yaw",
	"mount_roll", "mount_pitch", "mount_yaw",
}

// Intermediate position columns consumed by coordinate conversion and
// removed before output.
const (
	ColLat = "pos_lat"
	ColLon = "pos_lon"
	ColAlt = "pos_alt"
	ColX   = "pos_x"
	ColY   = "pos_y"
	ColZ   = "pos_z"
)

// DefaultEntityID is used when no entity ID column or fixed value is
// configured, or when the configured column is missing from the input.
const DefaultEntityID = "p1"

// EntityTypePlatform is the entity_type emitted for every converted row.
const EntityTypePlatform = "platform"
