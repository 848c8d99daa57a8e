package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/bybunni/vector-space/internal/mapping"
	"github.com/bybunni/vector-space/internal/ned"
	"github.com/bybunni/vector-space/internal/schema"
)

const (
	refLat = 0.6981317  // ~40°N
	refLon = -1.2217305 // ~70°W
)

// runConvert is a test harness around Convert with an in-memory output.
func runConvert(t *testing.T, input string, cfg *mapping.Config) ([]string, [][]string) {
	t.Helper()

	var out bytes.Buffer
	result, err := Convert(context.Background(), strings.NewReader(input), &out, Options{Config: cfg})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if result == nil {
		t.Fatal("convert returned nil result without error")
	}

	records, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("parsing output csv: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("output csv is empty")
	}
	return records[0], records[1:]
}

func cell(t *testing.T, header []string, row []string, name string) string {
	t.Helper()
	for i, c := range header {
		if c == name {
			return row[i]
		}
	}
	t.Fatalf("output has no column %q", name)
	return ""
}

func cellFloat(t *testing.T, header []string, row []string, name string) float64 {
	t.Helper()
	s := cell(t, header, row, name)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.Fatalf("column %q = %q is not a number", name, s)
	}
	return v
}

func TestConvert_LLAFirstReference(t *testing.T) {
	input := "ts,lat,lon,alt\n" +
		"1700000000,0.6981317,-1.2217305,100\n" +
		"1700000001,0.6981417,-1.2217305,100\n" +
		"1700000002,0.6981317,-1.2217205,100\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordLLA,
		ColumnMapping: map[string]string{
			"ts": "timestamp", "lat": "pos_lat", "lon": "pos_lon", "alt": "pos_alt",
		},
		Reference: &mapping.Reference{First: true},
	}

	header, rows := runConvert(t, input, cfg)

	// The output header is the fixed schema, in order.
	if len(header) != len(schema.OutputColumns) {
		t.Fatalf("output has %d columns, want %d", len(header), len(schema.OutputColumns))
	}
	for i, want := range schema.OutputColumns {
		if header[i] != want {
			t.Errorf("column %d = %q, want %q", i, header[i], want)
		}
	}

	if len(rows) != 3 {
		t.Fatalf("output has %d rows, want 3", len(rows))
	}

	// First row is the reference: NED origin.
	for _, col := range []string{"pos_north", "pos_east", "pos_down"} {
		if v := cellFloat(t, header, rows[0], col); math.Abs(v) > 1e-6 {
			t.Errorf("row 0 %s = %v, want 0", col, v)
		}
	}

	if v := cellFloat(t, header, rows[1], "pos_north"); v <= 0 {
		t.Errorf("row 1 pos_north = %v, want > 0", v)
	}
	if v := cellFloat(t, header, rows[2], "pos_east"); v <= 0 {
		t.Errorf("row 2 pos_east = %v, want > 0", v)
	}

	// The LLA intermediate columns must not leak into the output.
	for _, col := range header {
		if col == "pos_lat" || col == "pos_lon" || col == "pos_alt" {
			t.Errorf("intermediate column %q leaked into output", col)
		}
	}
}

func TestConvert_LLAExplicitReference(t *testing.T) {
	// With an explicit reference equal to the first sample, the first row
	// still lands at the origin.
	input := "timestamp,pos_lat,pos_lon,pos_alt\n" +
		"1700000000,0.6981317,-1.2217305,100\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordLLA,
		Reference:        &mapping.Reference{Lat: refLat, Lon: refLon, Alt: 100},
	}

	header, rows := runConvert(t, input, cfg)
	for _, col := range []string{"pos_north", "pos_east", "pos_down"} {
		if v := cellFloat(t, header, rows[0], col); math.Abs(v) > 1e-6 {
			t.Errorf("%s = %v, want 0", col, v)
		}
	}
}

func TestConvert_AltitudeAboveReference(t *testing.T) {
	// A sample 1000 m above the reference has Down = -1000.
	input := "timestamp,pos_lat,pos_lon,pos_alt\n" +
		"1700000000,0.6981317,-1.2217305,1100\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordLLA,
		Reference:        &mapping.Reference{Lat: refLat, Lon: refLon, Alt: 100},
	}

	header, rows := runConvert(t, input, cfg)
	if v := cellFloat(t, header, rows[0], "pos_down"); math.Abs(v-(-1000.0)) > 1e-3 {
		t.Errorf("pos_down = %v, want -1000", v)
	}
}

func TestConvert_NEDPassthrough(t *testing.T) {
	// Already-NED input needs no reference and passes through unchanged.
	input := "timestamp,pos_north,pos_east,pos_down\n" +
		"1700000000,10.5,-3.25,0\n"

	header, rows := runConvert(t, input, &mapping.Config{})
	if got := cell(t, header, rows[0], "pos_north"); got != "10.5" {
		t.Errorf("pos_north = %q, want 10.5", got)
	}
	if got := cell(t, header, rows[0], "pos_east"); got != "-3.25" {
		t.Errorf("pos_east = %q, want -3.25", got)
	}
}

func TestConvert_DoubleHeader(t *testing.T) {
	input := "Position,Position,Position,Meta\n" +
		"Lat,Lon,Alt,Time\n" +
		"0.6981317,-1.2217305,100,1700000000\n"

	cfg := &mapping.Config{
		HeaderRows:       2,
		CoordinateSystem: mapping.CoordLLA,
		ColumnMapping: map[string]string{
			"Position/Lat": "pos_lat",
			"Position/Lon": "pos_lon",
			"Position/Alt": "pos_alt",
			"Meta/Time":    "timestamp",
		},
		Reference: &mapping.Reference{First: true},
	}

	header, rows := runConvert(t, input, cfg)
	if len(rows) != 1 {
		t.Fatalf("output has %d rows, want 1", len(rows))
	}
	if v := cellFloat(t, header, rows[0], "pos_north"); math.Abs(v) > 1e-6 {
		t.Errorf("pos_north = %v, want 0", v)
	}
	if got := cell(t, header, rows[0], "timestamp"); got != "2023-11-14T22:13:20.000Z" {
		t.Errorf("timestamp = %q, want normalized form", got)
	}
}

func TestConvert_ECEF(t *testing.T) {
	// ECEF of the equator/prime-meridian surface point, then the same
	// point 1000 m higher along X.
	input := "timestamp,pos_x,pos_y,pos_z\n" +
		"1,6378137,0,0\n" +
		"2,6379137,0,0\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordECEF,
		Reference:        &mapping.Reference{First: true},
	}

	header, rows := runConvert(t, input, cfg)
	if v := cellFloat(t, header, rows[0], "pos_down"); math.Abs(v) > 1e-3 {
		t.Errorf("row 0 pos_down = %v, want 0", v)
	}
	if v := cellFloat(t, header, rows[1], "pos_down"); math.Abs(v-(-1000.0)) > 1e-3 {
		t.Errorf("row 1 pos_down = %v, want -1000", v)
	}
}

func TestConvert_AnglesRadiansToDegrees(t *testing.T) {
	input := "timestamp,pos_north,pos_east,pos_down,yaw,roll\n" +
		"1700000000,0,0,0,1.5707963267948966,\n"

	cfg := &mapping.Config{AngleUnits: mapping.AnglesRadians}

	header, rows := runConvert(t, input, cfg)
	if v := cellFloat(t, header, rows[0], "yaw"); math.Abs(v-90.0) > 1e-9 {
		t.Errorf("yaw = %v, want 90", v)
	}
	// Empty angle cells stay empty.
	if got := cell(t, header, rows[0], "roll"); got != "" {
		t.Errorf("roll = %q, want empty", got)
	}
}

func TestConvert_EntityIdentity(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		id     mapping.EntityID
		wantID string
	}{
		{
			name:   "from column",
			input:  "timestamp,vehicle,pos_north,pos_east,pos_down\n1,car7,0,0,0\n",
			id:     mapping.EntityID{Column: "vehicle"},
			wantID: "car7",
		},
		{
			name:   "missing column falls back to default",
			input:  "timestamp,pos_north,pos_east,pos_down\n1,0,0,0\n",
			id:     mapping.EntityID{Column: "vehicle"},
			wantID: "p1",
		},
		{
			name:   "fixed value",
			input:  "timestamp,pos_north,pos_east,pos_down\n1,0,0,0\n",
			id:     mapping.EntityID{Fixed: "uav-3"},
			wantID: "uav-3",
		},
		{
			name:   "default",
			input:  "timestamp,pos_north,pos_east,pos_down\n1,0,0,0\n",
			id:     mapping.EntityID{},
			wantID: "p1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, rows := runConvert(t, tt.input, &mapping.Config{EntityID: tt.id})

			if got := cell(t, header, rows[0], "entity_id"); got != tt.wantID {
				t.Errorf("entity_id = %q, want %q", got, tt.wantID)
			}
			// platform_id mirrors entity_id, entity_type is fixed.
			if got := cell(t, header, rows[0], "platform_id"); got != tt.wantID {
				t.Errorf("platform_id = %q, want %q", got, tt.wantID)
			}
			if got := cell(t, header, rows[0], "entity_type"); got != "platform" {
				t.Errorf("entity_type = %q, want platform", got)
			}
		})
	}
}

func TestConvert_TimestampPassthroughOnParseFailure(t *testing.T) {
	input := "timestamp,pos_north,pos_east,pos_down\n" +
		"around noonish,0,0,0\n"

	header, rows := runConvert(t, input, &mapping.Config{})
	if got := cell(t, header, rows[0], "timestamp"); got != "around noonish" {
		t.Errorf("timestamp = %q, want unparseable value passed through", got)
	}
}

func TestConvert_Defaults(t *testing.T) {
	input := "timestamp,pos_north,pos_east,pos_down,sensor_type\n" +
		"1,0,0,0,radar\n" +
		"2,0,0,0,\n"

	cfg := &mapping.Config{
		Defaults: map[string]any{"sensor_type": "EO", "range_max": 5000},
	}

	header, rows := runConvert(t, input, cfg)
	// Existing cells win; only empty cells and missing columns are filled.
	if got := cell(t, header, rows[0], "sensor_type"); got != "radar" {
		t.Errorf("row 0 sensor_type = %q, want radar", got)
	}
	if got := cell(t, header, rows[1], "sensor_type"); got != "EO" {
		t.Errorf("row 1 sensor_type = %q, want EO", got)
	}
	if got := cell(t, header, rows[0], "range_max"); got != "5000" {
		t.Errorf("range_max = %q, want 5000", got)
	}
}

func TestConvert_EmptyStreamFirstReference(t *testing.T) {
	input := "timestamp,pos_lat,pos_lon,pos_alt\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordLLA,
		Reference:        &mapping.Reference{First: true},
	}

	var out bytes.Buffer
	_, err := Convert(context.Background(), strings.NewReader(input), &out, Options{Config: cfg})
	if !errors.Is(err, ned.ErrEmptyStream) {
		t.Fatalf("err = %v, want ErrEmptyStream", err)
	}
	if out.Len() != 0 {
		t.Errorf("failed batch wrote %d bytes of output, want none", out.Len())
	}
}

func TestConvert_InvalidCoordinateFailsBatch(t *testing.T) {
	input := "timestamp,pos_lat,pos_lon,pos_alt\n" +
		"1,0.6981317,-1.2217305,100\n" +
		"2,abc,-1.2217305,100\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordLLA,
		Reference:        &mapping.Reference{First: true},
	}

	var out bytes.Buffer
	_, err := Convert(context.Background(), strings.NewReader(input), &out, Options{Config: cfg})

	var invalid *ned.InvalidSampleError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidSampleError", err)
	}
	if invalid.Index != 1 {
		t.Errorf("index = %d, want 1", invalid.Index)
	}
	if out.Len() != 0 {
		t.Errorf("failed batch wrote %d bytes of output, want none", out.Len())
	}
}

func TestConvert_MissingPositionColumns(t *testing.T) {
	input := "timestamp,pos_lat,pos_lon\n1,0.5,1.0\n"

	cfg := &mapping.Config{
		CoordinateSystem: mapping.CoordLLA,
		Reference:        &mapping.Reference{First: true},
	}

	var out bytes.Buffer
	_, err := Convert(context.Background(), strings.NewReader(input), &out, Options{Config: cfg})

	var cfgErr *ned.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
}

func TestConvert_MissingColumnsEmitEmpty(t *testing.T) {
	// A minimal input still produces the full schema with empty cells.
	input := "timestamp,pos_north,pos_east,pos_down\n1,0,0,0\n"

	header, rows := runConvert(t, input, &mapping.Config{})
	if got := cell(t, header, rows[0], "mount_type"); got != "" {
		t.Errorf("mount_type = %q, want empty", got)
	}
	if got := cell(t, header, rows[0], "vel_north"); got != "" {
		t.Errorf("vel_north = %q, want empty", got)
	}
}
