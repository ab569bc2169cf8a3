package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"satfilter/internal/models"
	"satfilter/pkg/config"
	"satfilter/pkg/query"
	"satfilter/pkg/sat"
	"satfilter/pkg/satio"
	"satfilter/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "satfilter.yaml", "YAML configuration file")
	inputs := flag.String("input", "", "Comma separated list of PNG, JPEG or TIFF slices")
	asLayers := flag.Bool("layers", false, "Stack inputs as array layers instead of depth slices")
	integer := flag.Bool("integer", false, "Treat 8 and 16 bit inputs as unsigned integers")
	mode := flag.String("mode", "", "Override the configured mode (inclusive or exclusive)")
	origin := flag.String("origin", "", "Override the configured origin (top-left or bottom-left)")
	normalize := flag.Bool("normalize", false, "Divide the table by the slice totals")
	dumpFile := flag.String("dump", "", "Override the configured dump file")
	previewDir := flag.String("preview", "", "Override the configured preview directory")
	verbose := flag.Bool("v", false, "Enable debug logging")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputs == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *mode != "" {
		cfg.Filter.Mode = *mode
	}
	if *origin != "" {
		cfg.Filter.Origin = *origin
	}
	if *normalize {
		cfg.Filter.Normalize = true
	}
	if *dumpFile != "" {
		cfg.Output.DumpFile = *dumpFile
	}
	if *previewDir != "" {
		cfg.Output.PreviewDir = *previewDir
	}
	if *verbose {
		cfg.Output.Verbose = true
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	sat.SetLogger(logger)

	filter, err := cfg.NewFilter()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var images []image.Image
	for _, path := range strings.Split(*inputs, ",") {
		img, err := loadImage(strings.TrimSpace(path))
		if err != nil {
			log.Fatalf("Failed to load input: %v", err)
		}
		images = append(images, img)
	}
	input, err := buildImage(images, *integer, *asLayers)
	if err != nil {
		log.Fatalf("Failed to build input image: %v", err)
	}

	outFormat, err := cfg.OutputFormatFor(input.Format)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	output := models.NewImage(outFormat, input.Extent, input.ArrayLayers)

	st := &sat.State{
		Scratch:   sat.NewScratch(input),
		Normalize: cfg.Filter.Normalize,
	}
	st.Input = input
	st.Output = output

	logger.Info("computing summed-area table",
		"input", input.Format.String(),
		"output", outFormat.String(),
		"extent", fmt.Sprintf("%dx%dx%d", input.Extent.Width, input.Extent.Height, input.Extent.Depth),
		"layers", input.ArrayLayers,
		"mode", filter.Mode.String(),
		"origin", filter.Origin.String())

	startTime := time.Now()
	res, err := filter.Execute(st)
	if err != nil {
		log.Fatalf("Summed-area table failed: %v", err)
	}
	logger.Info("table computed", "elapsed", time.Since(startTime))

	queryable := filter.Mode == sat.Inclusive && !(cfg.Filter.Normalize && !input.Format.IsNormalized())
	for layer := range res.Totals[0] {
		for z, total := range res.Totals[0][layer] {
			fmt.Printf("layer %d slice %d total: %v\n", layer, z, total.Float64())
			if !queryable {
				continue
			}
			table, err := query.FromImage(output, 0, layer, z, 0, filter.Origin)
			if err != nil {
				log.Fatalf("Failed to read table: %v", err)
			}
			s := query.SliceStats(table)
			fmt.Printf("  channel 0: mean %.4f stddev %.4f range [%.4f, %.4f]\n", s.Mean, s.StdDev, s.Min, s.Max)
		}
	}

	if cfg.Output.DumpFile != "" {
		if err := writeDump(cfg.Output.DumpFile, satio.NewDump(filter, output, res)); err != nil {
			log.Fatalf("Failed to write dump: %v", err)
		}
		logger.Info("dump written", "path", cfg.Output.DumpFile)
	}

	if cfg.Output.PreviewDir != "" {
		if err := writePreviews(cfg, filter, output, queryable); err != nil {
			log.Printf("Warning: Failed to write previews: %v", err)
		}
	}
}

func writeDump(path string, d *satio.Dump) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := satio.Write(file, d); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writePreviews renders every slice of every layer, and the box filtered
// image when a radius is configured and the table holds plain inclusive sums
func writePreviews(cfg *config.Config, filter *sat.Filter, output *models.Image, queryable bool) error {
	for layer := 0; layer < output.ArrayLayers; layer++ {
		viewer, err := visualization.NewViewerFromImage(output, 0, layer, 0)
		if err != nil {
			return err
		}
		dir := filepath.Join(cfg.Output.PreviewDir, fmt.Sprintf("layer_%02d", layer))
		if err := viewer.SaveSliceSequence("z", dir, ".png"); err != nil {
			return err
		}

		if cfg.Output.BoxRadius <= 0 {
			continue
		}
		if !queryable {
			sat.Logger().Warn("box filter needs an inclusive, unnormalized table; skipped")
			continue
		}
		for z := 0; z < output.Extent.Depth; z++ {
			table, err := query.FromImage(output, 0, layer, z, 0, filter.Origin)
			if err != nil {
				return err
			}
			box := visualization.NewViewer(table.BoxFilter(cfg.Output.BoxRadius), table.Width, table.Height, 1)
			img, err := box.ExtractSlice("z", 0)
			if err != nil {
				return err
			}
			name := filepath.Join(dir, fmt.Sprintf("box_r%d_%03d.png", cfg.Output.BoxRadius, z))
			if err := box.SaveSlice(img, name); err != nil {
				return err
			}
		}
	}
	return nil
}
