package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/logging"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/svgdots"
	"github.com/benoitkugler/worlddots/svgopt"
)

type optimizeResult struct {
	artifact Artifact
	err      error
}

// loop is the state owned by the Run goroutine. Its methods must only be
// called from requests.
type loop struct {
	ctx context.Context
	s   *Session

	cfg                    dotgrid.Config
	containerW, containerH float64
	ratio                  float64

	maskName string
	maskGen  uint64

	state    State
	progress int
	artifact *Artifact

	optGen    uint64
	optCancel context.CancelFunc
	optReply  chan optimizeResult // nil when no optimization is in flight
}

func newLoop(ctx context.Context, s *Session) *loop {
	return &loop{
		ctx:        ctx,
		s:          s,
		cfg:        s.opts.Config,
		containerW: s.opts.ContainerWidth,
		containerH: s.opts.ContainerHeight,
		ratio:      s.opts.PixelRatio,
	}
}

func (l *loop) surface() dotgrid.Surface {
	var mw, mh int
	if m := l.s.sampler.Mask(); m != nil {
		mw, mh = m.Width(), m.Height()
	}
	return dotgrid.Fit(mw, mh, l.containerW, l.containerH, l.ratio)
}

// render runs one synchronous render pass. Without a decoded mask there
// is nothing to render and the artifact is dropped.
func (l *loop) render() {
	l.supersedeOptimization(ErrSuperseded)
	l.state, l.progress = Rendering, 0

	if !l.s.sampler.Ready() {
		l.artifact = nil
		l.state = Idle
		return
	}

	surface := l.surface()
	grid := dotgrid.Generate(l.s.sampler.IsLand, surface.Width, surface.Height, l.cfg.Density)
	doc := svgdots.NewDocument(grid.Points, l.cfg.DotSize, l.cfg.Color, surface.Width, surface.Height)
	l.artifact = &Artifact{
		ID:              uuid.NewString(),
		Document:        doc,
		Original:        doc.String(),
		Config:          l.cfg,
		Surface:         surface,
		ContainerWidth:  l.containerW,
		ContainerHeight: l.containerH,
		Spacing:         grid.Spacing,
		Checked:         grid.Checked,
	}
	l.state = Idle

	logging.Logger().Debug("render pass",
		slog.String("artifact", l.artifact.ID),
		slog.Int("checked", grid.Checked), slog.Int("dots", len(grid.Points)))
	l.s.publish(Event{Kind: EventRendered, Status: l.status()})
}

// loadMask starts decoding src. loaded, if not nil, receives the outcome
// once the loop has handled it.
func (l *loop) loadMask(src mask.Source, loaded chan<- error) {
	l.maskGen++
	gen := l.maskGen
	l.maskName = src.Name
	decoded := l.s.sampler.Load(l.ctx, src)
	l.render()

	go func() {
		err := <-decoded
		posted := l.s.post(l.ctx, func(l *loop) { l.maskDone(gen, err, loaded) })
		if !posted && loaded != nil {
			loaded <- ErrClosed
		}
	}()
}

func (l *loop) maskDone(gen uint64, err error, loaded chan<- error) {
	if gen != l.maskGen {
		err = mask.ErrSuperseded
	} else if err != nil {
		l.s.publish(Event{Kind: EventMaskFailed, Error: err.Error(), Status: l.status()})
	} else {
		l.s.publish(Event{Kind: EventMaskLoaded, Status: l.status()})
		l.render()
	}
	if loaded != nil {
		loaded <- err
	}
}

// supersedeOptimization discards the in-flight optimization, if any.
func (l *loop) supersedeOptimization(reason error) {
	if l.optReply == nil {
		return
	}
	l.optCancel()
	l.optReply <- optimizeResult{err: reason}
	l.optReply, l.optCancel = nil, nil
	l.optGen++
}

func (l *loop) startOptimization() (<-chan optimizeResult, error) {
	if l.artifact == nil {
		return nil, ErrNoArtifact
	}
	l.supersedeOptimization(ErrSuperseded)

	l.optGen++
	gen := l.optGen
	ctx, cancel := context.WithCancel(l.ctx)
	reply := make(chan optimizeResult, 1)
	l.optCancel, l.optReply = cancel, reply
	l.state, l.progress = Optimizing, 0

	go l.s.optimize(ctx, gen, l.artifact.Original)
	return reply, nil
}

func (l *loop) setProgress(gen uint64, progress int) {
	if gen != l.optGen || l.optReply == nil {
		return
	}
	l.progress = progress
	l.s.publish(Event{Kind: EventProgress, Progress: progress, Status: l.status()})
}

func (l *loop) finishOptimization(gen uint64, res svgopt.Result) {
	if gen != l.optGen || l.optReply == nil {
		return // stale
	}
	optimized := *l.artifact
	optimized.Optimized = res.Text
	optimized.Fallback = res.Fallback
	l.artifact = &optimized
	l.state, l.progress = Optimized, 100

	l.optCancel()
	l.optReply <- optimizeResult{artifact: optimized}
	l.optReply, l.optCancel = nil, nil

	logging.Logger().Info("svg optimized",
		slog.String("artifact", optimized.ID),
		slog.String("original", svgdots.FormatSize(optimized.OriginalKB())),
		slog.String("optimized", svgdots.FormatSize(optimized.OptimizedKB())),
		slog.Bool("fallback", res.Fallback))
	l.s.publish(Event{Kind: EventOptimized, Progress: 100, Status: l.status()})
}

// optimize runs in its own goroutine. Progress is staged at 25, 50 and 75
// around the optimizer call, then 100 with the result.
func (s *Session) optimize(ctx context.Context, gen uint64, text string) {
	stage := func(progress int) bool {
		return s.post(ctx, func(l *loop) { l.setProgress(gen, progress) })
	}
	if !stage(25) || !s.pause(ctx) || !stage(50) {
		return
	}
	res := s.opts.Optimizer.Optimize(text)
	if !stage(75) || !s.pause(ctx) {
		return
	}
	s.post(ctx, func(l *loop) { l.finishOptimization(gen, res) })
}

func (s *Session) pause(ctx context.Context) bool {
	if s.opts.ProgressDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.opts.ProgressDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (l *loop) status() Status {
	st := Status{
		State:           l.state,
		Progress:        l.progress,
		Config:          l.cfg,
		Mask:            l.maskName,
		MaskReady:       l.s.sampler.Ready(),
		Surface:         l.surface(),
		ContainerWidth:  l.containerW,
		ContainerHeight: l.containerH,
	}
	a := l.artifact
	if a == nil {
		return st
	}
	st.ArtifactID = a.ID
	st.Spacing, st.Checked, st.Dots = a.Spacing, a.Checked, a.Dots()
	st.OriginalKB = a.OriginalKB()
	st.OriginalSize = svgdots.FormatSize(st.OriginalKB)
	st.Fallback = a.Fallback
	if a.IsOptimized() {
		st.OptimizedKB = a.OptimizedKB()
		st.OptimizedSize = svgdots.FormatSize(st.OptimizedKB)
		st.SavingsKB, st.SavingsPercent, _ = svgdots.Savings(st.OriginalKB, st.OptimizedKB)
	}
	return st
}
