package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/svgdots"
	"github.com/benoitkugler/worlddots/svgopt"
	"github.com/benoitkugler/worlddots/svgpdf"
	"github.com/benoitkugler/worlddots/svgraster"
	"github.com/benoitkugler/worlddots/workflow"
)

type renderOptions struct {
	mask          string
	cfg           dotgrid.Config
	width, height float64
	ratio         float64
	optimize      bool
	svgOut        string
	pngOut        string
	pdfOut        string
	logLevel      string
}

func parseRenderFlags(args []string, stderr io.Writer) (renderOptions, error) {
	def := dotgrid.DefaultConfig()
	var o renderOptions
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.mask, "mask", "", "Mask image (default: embedded world map)")
	fs.IntVar(&o.cfg.Density, "density", def.Density, "Grid density, 1 to 15")
	fs.Float64Var(&o.cfg.DotSize, "size", def.DotSize, "Dot diameter, 1 to 8")
	fs.StringVar(&o.cfg.Color, "color", def.Color, "Dot color")
	fs.Float64Var(&o.width, "width", 1280, "Container width")
	fs.Float64Var(&o.height, "height", 720, "Container height")
	fs.Float64Var(&o.ratio, "ratio", 1, "Device pixel ratio of the PNG preview")
	fs.BoolVar(&o.optimize, "optimize", false, "Optimize the SVG output")
	fs.StringVar(&o.svgOut, "o", "world-dots.svg", "SVG output file")
	fs.StringVar(&o.pngOut, "png", "", "PNG preview output file")
	fs.StringVar(&o.pdfOut, "pdf", "", "PDF output file")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if err := workflow.ValidateConfig(o.cfg); err != nil {
		return o, err
	}
	if o.width <= 0 || o.height <= 0 || o.ratio <= 0 {
		return o, fmt.Errorf("width, height and ratio must be positive")
	}
	return o, nil
}

// render runs one render pass and writes the requested outputs.
func render(args []string, stdout, stderr io.Writer) error {
	o, err := parseRenderFlags(args, stderr)
	if err != nil {
		return err
	}
	setupLogging(stderr, o.logLevel)

	src := mask.DefaultSource()
	if o.mask != "" {
		if src, err = mask.FileSource(o.mask); err != nil {
			return err
		}
	}
	m, err := src.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode mask: %w", err)
	}

	surface := dotgrid.Fit(m.Width(), m.Height(), o.width, o.height, o.ratio)
	grid := dotgrid.Generate(m.IsLand, surface.Width, surface.Height, o.cfg.Density)
	doc := svgdots.NewDocument(grid.Points, o.cfg.DotSize, o.cfg.Color, surface.Width, surface.Height)
	original := doc.String()
	fmt.Fprintf(stdout, "checked %d positions, rendered %d dots\n", grid.Checked, len(grid.Points))
	fmt.Fprintf(stdout, "original: %s\n", svgdots.FormatSize(svgdots.SizeKB(original)))

	out := original
	if o.optimize {
		res := svgopt.New().Optimize(original)
		out = res.Text
		line := fmt.Sprintf("optimized: %s", svgdots.FormatSize(svgdots.SizeKB(out)))
		if kb, percent, ok := svgdots.Savings(svgdots.SizeKB(original), svgdots.SizeKB(out)); ok {
			line += fmt.Sprintf(" (saved %.1f KB, %.1f%%)", kb, percent)
		}
		if res.Fallback {
			line += " (optimizer failed, original kept)"
		}
		fmt.Fprintln(stdout, line)
	}
	if err := os.WriteFile(o.svgOut, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write SVG: %w", err)
	}

	if o.pngOut == "" && o.pdfOut == "" {
		return nil
	}
	icon, err := doc.Icon()
	if err != nil {
		return err
	}
	if o.pngOut != "" {
		img := svgraster.Paint(icon, surface, o.width, o.height, svgraster.Options{})
		if err := writeFile(o.pngOut, func(w io.Writer) error { return svgraster.EncodePNG(w, img) }); err != nil {
			return fmt.Errorf("failed to write PNG: %w", err)
		}
	}
	if o.pdfOut != "" {
		if err := writeFile(o.pdfOut, func(w io.Writer) error { return svgpdf.Write(icon, w) }); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
