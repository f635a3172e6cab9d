// Package svgopt shrinks serialized dot maps with a preset of safe
// transforms, falling back to the input when anything goes wrong.
package svgopt

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/svg"

	"github.com/benoitkugler/worlddots/logging"
	"github.com/benoitkugler/worlddots/svgdots"
)

// Pass is one transform of the optimization pipeline.
type Pass struct {
	Name  string
	Apply func(text string) (string, error)
}

// Result is the outcome of an optimization. When Fallback is true, Text
// is the unchanged input and Err holds the reason.
type Result struct {
	Text     string
	Fallback bool
	Err      error
}

// Optimizer runs its passes in order, then checks that the output still
// reads as the same dot map.
type Optimizer struct {
	Passes []Pass
}

// New returns an optimizer with the default preset.
func New() *Optimizer {
	return &Optimizer{Passes: DefaultPasses()}
}

// DefaultPasses hoists the shared fill then minifies.
func DefaultPasses() []Pass {
	return []Pass{HoistFill(), Minify(0)}
}

// Minify wraps the tdewolff SVG minifier. precision is the number of
// significant digits kept in numbers, 0 keeping them all.
func Minify(precision int) Pass {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.Add(svgdots.MediaType, &svg.Minifier{Precision: precision})
	return Pass{
		Name: "minify",
		Apply: func(text string) (string, error) {
			return m.String(svgdots.MediaType, text)
		},
	}
}

var errLostCircles = errors.New("optimized document lost circles")

// Optimize never fails: on error the original text is returned with
// Fallback set.
func (o *Optimizer) Optimize(text string) Result {
	out, err := o.run(text)
	if err != nil {
		logging.Logger().Warn("svg optimization failed, keeping original", slog.Any("err", err))
		return Result{Text: text, Fallback: true, Err: err}
	}
	logging.Logger().Debug("svg optimized",
		slog.Int("original", len(text)), slog.Int("optimized", len(out)))
	return Result{Text: out}
}

func (o *Optimizer) run(text string) (string, error) {
	out := text
	for _, pass := range o.Passes {
		var err error
		out, err = apply(pass, out)
		if err != nil {
			return "", err
		}
	}
	if err := validate(text, out); err != nil {
		return "", err
	}
	return out, nil
}

// apply runs one pass, turning panics into errors.
func apply(pass Pass, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pass %s: panic: %v", pass.Name, r)
		}
	}()
	out, err = pass.Apply(text)
	if err != nil {
		return "", fmt.Errorf("pass %s: %w", pass.Name, err)
	}
	return out, nil
}

// validate reads the output back strictly. When the input is itself a
// readable dot map, the circle count must be preserved.
func validate(original, optimized string) error {
	got, err := svgdots.ReadString(optimized, svgdots.StrictErrorMode)
	if err != nil {
		return fmt.Errorf("invalid optimized document: %w", err)
	}
	want, err := svgdots.ReadString(original, svgdots.IgnoreErrorMode)
	if err != nil {
		return nil
	}
	if len(got.Circles) != len(want.Circles) {
		return fmt.Errorf("%w: %d of %d", errLostCircles, len(got.Circles), len(want.Circles))
	}
	return nil
}
