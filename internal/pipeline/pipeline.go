// Package pipeline runs a complete conversion: source CSV in, Vector Space
// CSV out. The stages mirror the data's journey: read, rename columns, fill
// defaults, convert coordinates into the NED frame, normalize angles and
// timestamps, stamp entity identity, and emit the fixed schema.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/bybunni/vector-space/internal/mapping"
	"github.com/bybunni/vector-space/internal/schema"
	"github.com/bybunni/vector-space/internal/table"
)

// Options configure one conversion run.
type Options struct {
	Config  *mapping.Config
	Workers int // NED batch driver workers; <= 0 means NumCPU
	Logger  *slog.Logger
}

// Result reports what a conversion produced. Table is the final output
// table in schema order, retained so callers can compute summaries or
// plots without re-parsing the written CSV.
type Result struct {
	Table *table.Table
	Rows  int
}

// Convert reads a source CSV from r, applies the mapping config, and
// writes the converted Vector Space CSV to w. The batch either fully
// succeeds or fails with no partial output written.
func Convert(ctx context.Context, r io.Reader, w io.Writer, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &mapping.Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tbl, err := readCSV(r, cfg.HeaderRows)
	if err != nil {
		return nil, err
	}
	logger.Debug("csv loaded", "rows", tbl.Len(), "columns", len(tbl.Columns))

	tbl.Rename(cfg.ColumnMapping)
	applyDefaults(tbl, cfg.Defaults)

	if err := convertCoordinates(ctx, tbl, cfg, opts.Workers, logger); err != nil {
		return nil, err
	}

	if cfg.AngleUnits == mapping.AnglesRadians {
		if err := anglesToDegrees(tbl); err != nil {
			return nil, err
		}
	}

	applyEntity(tbl, cfg.EntityID)
	normalizeTimestamps(tbl)

	out := tbl.Select(schema.OutputColumns)
	if err := writeCSV(w, out); err != nil {
		return nil, err
	}

	logger.Info("conversion complete", "rows", out.Len(), "coordinate_system", coordSystem(cfg))
	return &Result{Table: out, Rows: out.Len()}, nil
}

func coordSystem(cfg *mapping.Config) string {
	if cfg.CoordinateSystem == "" {
		return mapping.CoordNED
	}
	return cfg.CoordinateSystem
}

// applyDefaults fills missing columns and empty cells with configured
// default values.
func applyDefaults(tbl *table.Table, defaults map[string]any) {
	for col, val := range defaults {
		tbl.AddColumn(col, mapping.FormatDefault(val))
	}
}

// applyEntity stamps entity_id, entity_type and platform_id. A configured
// column takes precedence; a missing column falls back to the default ID.
func applyEntity(tbl *table.Table, id mapping.EntityID) {
	switch {
	case id.Column != "" && tbl.Has(id.Column):
		tbl.AddColumn("entity_id", "")
		src := tbl.Index(id.Column)
		dst := tbl.Index("entity_id")
		for _, row := range tbl.Rows {
			row[dst] = row[src]
		}
	case id.Column != "":
		tbl.DropColumns("entity_id")
		tbl.AddColumn("entity_id", schema.DefaultEntityID)
	case id.Fixed != "":
		tbl.DropColumns("entity_id")
		tbl.AddColumn("entity_id", id.Fixed)
	default:
		tbl.AddColumn("entity_id", schema.DefaultEntityID)
	}

	tbl.DropColumns("entity_type", "platform_id")
	tbl.AddColumn("entity_type", schema.EntityTypePlatform)
	tbl.AddColumn("platform_id", "")

	src := tbl.Index("entity_id")
	dst := tbl.Index("platform_id")
	for _, row := range tbl.Rows {
		row[dst] = row[src]
	}
}

// normalizeTimestamps rewrites the timestamp column in the canonical
// format. Cells that cannot be parsed pass through unchanged.
func normalizeTimestamps(tbl *table.Table) {
	i := tbl.Index("timestamp")
	if i < 0 {
		return
	}
	for _, row := range tbl.Rows {
		if row[i] != "" {
			row[i] = schema.NormalizeTimestamp(row[i])
		}
	}
}

// anglesToDegrees converts every present angle column from radians to
// degrees. Empty cells are preserved.
func anglesToDegrees(tbl *table.Table) error {
	for _, col := range schema.AngleColumns {
		i := tbl.Index(col)
		if i < 0 {
			continue
		}
		for r, row := range tbl.Rows {
			cell := row[i]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf("row %d: column %s: %q is not a number", r, col, cell)
			}
			row[i] = formatFloat(v * 180.0 / math.Pi)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
