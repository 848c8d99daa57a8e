package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bybunni/vector-space/internal/geodesy"
	"github.com/bybunni/vector-space/internal/mapping"
	"github.com/bybunni/vector-space/internal/ned"
	"github.com/bybunni/vector-space/internal/schema"
	"github.com/bybunni/vector-space/internal/table"
)

// convertCoordinates rewrites the position columns into the NED frame.
// For "ned" input there is nothing to do; the other systems parse their
// source columns, resolve the batch reference once, run the parallel
// driver, and replace the source columns with pos_north/pos_east/pos_down.
func convertCoordinates(ctx context.Context, tbl *table.Table, cfg *mapping.Config, workers int, logger *slog.Logger) error {
	switch cfg.CoordinateSystem {
	case "", mapping.CoordNED:
		return nil
	case mapping.CoordLLA:
		return convertLLA(ctx, tbl, cfg, workers, logger)
	case mapping.CoordECEF:
		return convertECEF(ctx, tbl, cfg, workers, logger, false)
	case mapping.CoordInertial:
		return convertECEF(ctx, tbl, cfg, workers, logger, true)
	default:
		return fmt.Errorf("unknown coordinate_system %q", cfg.CoordinateSystem)
	}
}

func convertLLA(ctx context.Context, tbl *table.Table, cfg *mapping.Config, workers int, logger *slog.Logger) error {
	if err := requireColumns(tbl, schema.ColLat, schema.ColLon, schema.ColAlt); err != nil {
		return err
	}

	stream := make([]geodesy.Geodetic, tbl.Len())
	for r := range tbl.Rows {
		lat, err := parseCoord(tbl, r, schema.ColLat)
		if err != nil {
			return err
		}
		lon, err := parseCoord(tbl, r, schema.ColLon)
		if err != nil {
			return err
		}
		alt, err := parseCoord(tbl, r, schema.ColAlt)
		if err != nil {
			return err
		}
		stream[r] = geodesy.Geodetic{Lat: lat, Lon: lon, Alt: alt}
	}

	spec, err := cfg.Spec()
	if err != nil {
		return err
	}
	ref, err := spec.Resolve(stream)
	if err != nil {
		return err
	}

	conv := ned.NewConverter(workers, logger)
	out, err := conv.ConvertStream(ctx, stream, ref)
	if err != nil {
		return err
	}

	writeNED(tbl, out)
	tbl.DropColumns(schema.ColLat, schema.ColLon, schema.ColAlt)
	return nil
}

// convertECEF handles both ECEF meters and inertial-frame kilometers. For
// the inertial frame each row is first rotated into ECEF using its own
// timestamp. When the reference mode is "first", the geodetic reference is
// recovered from the first row's ECEF position.
func convertECEF(ctx context.Context, tbl *table.Table, cfg *mapping.Config, workers int, logger *slog.Logger, inertial bool) error {
	if err := requireColumns(tbl, schema.ColX, schema.ColY, schema.ColZ); err != nil {
		return err
	}

	stream := make([]geodesy.ECEF, tbl.Len())
	for r := range tbl.Rows {
		x, err := parseCoord(tbl, r, schema.ColX)
		if err != nil {
			return err
		}
		y, err := parseCoord(tbl, r, schema.ColY)
		if err != nil {
			return err
		}
		z, err := parseCoord(tbl, r, schema.ColZ)
		if err != nil {
			return err
		}

		if inertial {
			t, err := rowTime(tbl, r)
			if err != nil {
				return err
			}
			stream[r] = geodesy.InertialToECEF(x, y, z, t)
		} else {
			stream[r] = geodesy.ECEF{X: x, Y: y, Z: z}
		}
	}

	spec, err := cfg.Spec()
	if err != nil {
		return err
	}

	var ref geodesy.Reference
	if spec.Mode == ned.ModeFirst {
		if len(stream) == 0 {
			return ned.ErrEmptyStream
		}
		if !stream[0].Finite() {
			return &ned.InvalidSampleError{Index: 0, Field: "position", Reason: "not finite"}
		}
		ref = geodesy.NewReference(geodesy.ECEFToGeodetic(stream[0]))
	} else {
		ref, err = spec.Resolve(nil)
		if err != nil {
			return err
		}
	}

	conv := ned.NewConverter(workers, logger)
	out, err := conv.ConvertECEF(ctx, stream, ref)
	if err != nil {
		return err
	}

	writeNED(tbl, out)
	tbl.DropColumns(schema.ColX, schema.ColY, schema.ColZ)
	return nil
}

func requireColumns(tbl *table.Table, names ...string) error {
	for _, n := range names {
		if !tbl.Has(n) {
			return &ned.ConfigError{Reason: fmt.Sprintf("input is missing column %q", n)}
		}
	}
	return nil
}

func parseCoord(tbl *table.Table, row int, col string) (float64, error) {
	cell := tbl.Get(row, col)
	v, err := parseFloat(cell)
	if err != nil {
		return 0, &ned.InvalidSampleError{Index: row, Field: col, Reason: fmt.Sprintf("%q is not a number", cell)}
	}
	return v, nil
}

func rowTime(tbl *table.Table, row int) (time.Time, error) {
	cell := tbl.Get(row, "timestamp")
	t, ok := schema.ParseTimestamp(cell)
	if !ok {
		return time.Time{}, &ned.InvalidSampleError{Index: row, Field: "timestamp", Reason: fmt.Sprintf("%q is not a timestamp", cell)}
	}
	return t, nil
}

func writeNED(tbl *table.Table, out []geodesy.NED) {
	tbl.AddColumn("pos_north", "")
	tbl.AddColumn("pos_east", "")
	tbl.AddColumn("pos_down", "")
	n := tbl.Index("pos_north")
	e := tbl.Index("pos_east")
	d := tbl.Index("pos_down")
	for r, row := range tbl.Rows {
		row[n] = formatFloat(out[r].North)
		row[e] = formatFloat(out[r].East)
		row[d] = formatFloat(out[r].Down)
	}
}
