// Package plot renders a converted track as a standalone HTML chart:
// east on X, north on Y, so the page reads like a map of the local frame.
package plot

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/bybunni/vector-space/internal/table"
)

// WriteTrackHTML renders the table's NED ground track to w as HTML.
func WriteTrackHTML(w io.Writer, tbl *table.Table, title string) error {
	ni := tbl.Index("pos_north")
	ei := tbl.Index("pos_east")
	if ni < 0 || ei < 0 {
		return fmt.Errorf("table has no NED position columns")
	}

	data := make([]opts.ScatterData, 0, tbl.Len())
	maxAbs := 1.0
	for _, row := range tbl.Rows {
		n, err1 := strconv.ParseFloat(row[ni], 64)
		e, err2 := strconv.ParseFloat(row[ei], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if math.Abs(n) > maxAbs {
			maxAbs = math.Abs(n)
		}
		if math.Abs(e) > maxAbs {
			maxAbs = math.Abs(e)
		}
		data = append(data, opts.ScatterData{Value: []interface{}{e, n}})
	}
	if len(data) == 0 {
		return fmt.Errorf("no plottable rows")
	}

	// Symmetric axes keep the track's aspect ratio honest.
	pad := maxAbs * 1.05

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d points", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "East (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "North (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("track", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	return scatter.Render(w)
}
