// Command vsconvert converts a tabular motion-tracking CSV into the Vector
// Space schema. Mapping settings come from an optional YAML/JSON config
// file; individual flags override the file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bybunni/vector-space/internal/mapping"
	"github.com/bybunni/vector-space/internal/pipeline"
	"github.com/bybunni/vector-space/internal/plot"
	"github.com/bybunni/vector-space/internal/stats"
)

func main() {
	var (
		output         = flag.String("o", "", "output CSV path (default stdout)")
		configPath     = flag.String("c", "", "mapping config file (YAML or JSON)")
		mappingArg     = flag.String("m", "", "inline column mapping, e.g. \"lat:pos_lat,lon:pos_lon\"")
		defaultsArg    = flag.String("d", "", "inline defaults, e.g. \"pos_down:0,entity_id:p1\"")
		entityColumn   = flag.String("entity-id-column", "", "source column holding entity identifiers")
		entityFixed    = flag.String("entity-id-fixed", "", "fixed entity identifier for all rows")
		referenceArg   = flag.String("reference", "", "NED reference: 'first' or 'lat,lon,alt' (radians, meters)")
		coordSystem    = flag.String("coordinate-system", "", "input coordinate system: ned, lla, ecef or eci")
		headerRows     = flag.Int("header-rows", 0, "number of header rows in the input (1 or 2)")
		anglesRadians  = flag.Bool("angles-in-radians", false, "treat orientation angles as radians and convert to degrees")
		summaryFlag    = flag.Bool("summary", false, "print a JSON track summary to stderr")
		plotPath       = flag.String("plot", "", "write an HTML track plot to this path")
		workers        = flag.Int("workers", 0, "conversion workers (default NumCPU)")
		verbose        = flag.Bool("v", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] input.csv\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	inputPath := flag.Arg(0)

	cfg := &mapping.Config{}
	if *configPath != "" {
		loaded, err := mapping.Load(*configPath)
		if err != nil {
			logger.Error("invalid config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if *mappingArg != "" {
		if cfg.ColumnMapping == nil {
			cfg.ColumnMapping = make(map[string]string)
		}
		for src, dst := range mapping.ParseMappingArg(*mappingArg) {
			cfg.ColumnMapping[src] = dst
		}
	}
	if *defaultsArg != "" {
		if cfg.Defaults == nil {
			cfg.Defaults = make(map[string]any)
		}
		for col, val := range mapping.ParseDefaultsArg(*defaultsArg) {
			cfg.Defaults[col] = val
		}
	}
	if *entityColumn != "" {
		cfg.EntityID.Column = *entityColumn
	}
	if *entityFixed != "" {
		cfg.EntityID.Fixed = *entityFixed
	}
	if *referenceArg != "" {
		ref, err := mapping.ParseReferenceArg(*referenceArg)
		if err != nil {
			logger.Error("invalid reference", "error", err)
			os.Exit(1)
		}
		cfg.Reference = ref
	}
	if *coordSystem != "" {
		cfg.CoordinateSystem = *coordSystem
	}
	if *headerRows != 0 {
		cfg.HeaderRows = *headerRows
	}
	if *anglesRadians {
		cfg.AngleUnits = mapping.AnglesRadians
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, inputPath, *output, cfg, *workers, *summaryFlag, *plotPath); err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, inputPath, outputPath string, cfg *mapping.Config, workers int, summary bool, plotPath string) error {
	var in io.Reader
	if inputPath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var out io.Writer
	if outputPath == "" {
		out = os.Stdout
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	result, err := pipeline.Convert(ctx, in, out, pipeline.Options{
		Config:  cfg,
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if summary {
		sum, err := stats.Summarize(result.Table)
		if err != nil {
			logger.Warn("no summary available", "error", err)
		} else {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			if err := enc.Encode(sum); err != nil {
				return err
			}
		}
	}

	if plotPath != "" {
		f, err := os.Create(plotPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := plot.WriteTrackHTML(f, result.Table, inputPath); err != nil {
			return err
		}
		logger.Info("track plot written", "path", plotPath)
	}

	return nil
}
