// Command negconv converts scanned film negatives into positive 16-bit TIFFs.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"film-negative-converter/internal/batch"
	"film-negative-converter/internal/config"
	"film-negative-converter/internal/decode"
	"film-negative-converter/internal/imageio"
	"film-negative-converter/internal/negative"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	verbose    bool
	dryRun     bool
	debug      bool
	outputDir  string
	overwrite  bool
	configPath string
	dcraw      string
	jobs       int

	aspect     float64
	crop       float64
	autoOrient bool
	workers    int
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("negconv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.verbose, "verbose", false, "Print debug information")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Do not write output images")
	fs.BoolVar(&opts.debug, "debug", false, "Save intermediate stages as <file>.<stage>.jpeg")
	fs.StringVar(&opts.outputDir, "output-dir", "", "Output directory for converted images")
	fs.BoolVar(&opts.overwrite, "overwrite", false, "Replace existing output images")
	fs.StringVar(&opts.configPath, "config", "", "TOML file overriding pipeline defaults")
	fs.StringVar(&opts.dcraw, "dcraw", decode.DefaultDcraw, "RAW decoder executable (dcraw compatible)")
	fs.IntVar(&opts.jobs, "jobs", 1, "Files converted concurrently")
	fs.Float64Var(&opts.aspect, "aspect", config.Default().AspectRatio, "Target crop aspect ratio (width/height)")
	fs.Float64Var(&opts.crop, "crop", config.Default().CropPercentage, "Extra inset per side, fraction of the image size")
	fs.BoolVar(&opts.autoOrient, "auto-orient", false, "Use 1/aspect for portrait frames")
	fs.IntVar(&opts.workers, "workers", 0, "Pixel workers per file (0 = one per CPU)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: negconv [options] files_or_folders...\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		return 1
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	if batch.HasDir(inputs) && !opts.overwrite && opts.outputDir == "" && !opts.dryRun {
		fmt.Fprintf(stderr, "ERROR: When passing a folder, provide -output-dir or -overwrite\n")
		return 2
	}
	files, err := batch.Expand(inputs)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
	}

	var logger *log.Logger
	if opts.verbose {
		logger = log.New(stderr, "", log.LstdFlags|log.Lshortfile)
	}
	var convOpts []negative.Option
	if logger != nil {
		convOpts = append(convOpts, negative.WithLogger(logger))
	}

	c := &converter{
		conv:   negative.New(cfg, convOpts...),
		out:    imageio.Output{Dir: opts.outputDir, Overwrite: opts.overwrite},
		opts:   opts,
		logger: logger,
	}

	total := len(files)
	results := batch.Run(files, opts.jobs, c.convert, func(n int, r batch.Result[report]) {
		status := fmt.Sprintf("[%d/%d] ", n, total)
		if r.Err != nil {
			fmt.Fprintf(stderr, "%sWARNING: Skipping '%s': %v\n", status, r.Path, r.Err)
			return
		}
		pct := int(math.Round(r.Value.retained * 100))
		if opts.dryRun {
			fmt.Fprintf(stdout, "%swould convert, keeping %d%% (%s)\n", status, pct, filepath.Base(r.Path))
			return
		}
		fmt.Fprintf(stdout, "%sconverted, kept %d%% -> %s\n", status, pct, r.Value.output)
	})

	if failed := batch.Failed(results); failed > 0 || err != nil {
		fmt.Fprintf(stderr, "%d of %d files failed\n", failed, total)
		return 1
	}
	return 0
}

// loadConfig starts from the defaults or the -config file and applies the
// pipeline flags that were set explicitly.
func loadConfig(fs *flag.FlagSet, opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return config.Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "aspect":
			cfg.AspectRatio = opts.aspect
		case "crop":
			cfg.CropPercentage = opts.crop
		case "auto-orient":
			cfg.AutoOrient = opts.autoOrient
		case "workers":
			cfg.Workers = opts.workers
		}
	})
	return cfg, cfg.Validate()
}

type report struct {
	output   string
	retained float64
}

type converter struct {
	conv   *negative.Converter
	out    imageio.Output
	opts   options
	logger *log.Logger
}

func (c *converter) convert(path string) (report, error) {
	dec, err := decode.ForPath(path)
	if err != nil {
		return report{}, err
	}
	if d, ok := dec.(decode.Dcraw); ok {
		d.Command = c.opts.dcraw
		dec = d
	}

	var outPath string
	if !c.opts.dryRun {
		if outPath, err = c.out.Resolve(path); err != nil {
			return report{}, err
		}
	}

	img, err := dec.Decode(path)
	if err != nil {
		return report{}, err
	}
	c.logf("file= %s size= %dx%d", path, img.Width, img.Height)

	var sink negative.DebugSink
	if c.opts.debug {
		sink = imageio.DebugFiles{Path: path, Logger: c.logger}
	}

	cfg := c.conv.Config()
	res, err := c.conv.Process(img, cfg.AspectRatio, cfg.CropPercentage, sink)
	if err != nil {
		return report{}, err
	}
	rep := report{output: outPath, retained: negative.RetainedFraction(res.Crop, img.Bounds().Size())}

	if c.opts.dryRun {
		return rep, nil
	}
	if err := imageio.WriteTIFF(outPath, res.Image); err != nil {
		return report{}, err
	}
	c.logf("wrote %s", outPath)
	return rep, nil
}

func (c *converter) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
