// Package stats computes a per-batch track summary from a converted table:
// extent of the NED track, total path length, and speed statistics over the
// per-segment velocities when timestamps are available.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bybunni/vector-space/internal/schema"
	"github.com/bybunni/vector-space/internal/table"
)

// Bounds is a closed interval over one NED axis, in meters.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Summary describes one converted track.
type Summary struct {
	Rows            int     `json:"rows"`
	DurationSeconds float64 `json:"duration_seconds"`
	North           Bounds  `json:"north"`
	East            Bounds  `json:"east"`
	Down            Bounds  `json:"down"`
	PathLengthM     float64 `json:"path_length_m"`
	SpeedMeanMS     float64 `json:"speed_mean_ms"`
	SpeedMaxMS      float64 `json:"speed_max_ms"`
	SpeedP95MS      float64 `json:"speed_p95_ms"`
}

// Summarize computes a Summary from a table in output-schema form. Rows
// with empty position cells are skipped; speed statistics require
// parseable timestamps and are zero otherwise.
func Summarize(tbl *table.Table) (*Summary, error) {
	north, east, down, times, err := trackSeries(tbl)
	if err != nil {
		return nil, err
	}
	if len(north) == 0 {
		return nil, fmt.Errorf("no position data to summarize")
	}

	s := &Summary{
		Rows:  tbl.Len(),
		North: Bounds{Min: floats.Min(north), Max: floats.Max(north)},
		East:  Bounds{Min: floats.Min(east), Max: floats.Max(east)},
		Down:  Bounds{Min: floats.Min(down), Max: floats.Max(down)},
	}

	var speeds []float64
	for i := 1; i < len(north); i++ {
		dn := north[i] - north[i-1]
		de := east[i] - east[i-1]
		dd := down[i] - down[i-1]
		seg := math.Sqrt(dn*dn + de*de + dd*dd)
		s.PathLengthM += seg

		if times != nil {
			dt := times[i].Sub(times[i-1]).Seconds()
			if dt > 0 {
				speeds = append(speeds, seg/dt)
			}
		}
	}

	if times != nil && len(times) > 1 {
		s.DurationSeconds = times[len(times)-1].Sub(times[0]).Seconds()
	}

	if len(speeds) > 0 {
		s.SpeedMeanMS = stat.Mean(speeds, nil)
		s.SpeedMaxMS = floats.Max(speeds)
		sorted := append([]float64(nil), speeds...)
		sort.Float64s(sorted)
		s.SpeedP95MS = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	}

	return s, nil
}

// trackSeries extracts the NED position columns and, when every row's
// timestamp parses, the matching time series.
func trackSeries(tbl *table.Table) (north, east, down []float64, times []time.Time, err error) {
	ni := tbl.Index("pos_north")
	ei := tbl.Index("pos_east")
	di := tbl.Index("pos_down")
	if ni < 0 || ei < 0 || di < 0 {
		return nil, nil, nil, nil, fmt.Errorf("table has no NED position columns")
	}
	ti := tbl.Index("timestamp")

	haveTimes := ti >= 0
	for _, row := range tbl.Rows {
		if row[ni] == "" || row[ei] == "" || row[di] == "" {
			continue
		}
		n, err1 := strconv.ParseFloat(row[ni], 64)
		e, err2 := strconv.ParseFloat(row[ei], 64)
		d, err3 := strconv.ParseFloat(row[di], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		north = append(north, n)
		east = append(east, e)
		down = append(down, d)

		if haveTimes {
			t, ok := schema.ParseTimestamp(row[ti])
			if !ok {
				haveTimes = false
			} else {
				times = append(times, t)
			}
		}
	}

	if !haveTimes {
		times = nil
	}
	return north, east, down, times, nil
}
