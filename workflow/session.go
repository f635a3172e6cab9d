// Package workflow drives render and optimization passes for one user.
//
// A Session owns its state in a single goroutine started with Run.
// Public methods send requests to that goroutine and wait for the
// result; mask decoding and optimization run in worker goroutines which
// report back to the loop, and stale reports are dropped.
package workflow

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/logging"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/svgdots"
	"github.com/benoitkugler/worlddots/svgopt"
)

var (
	// ErrNoArtifact is returned when no render pass produced a document yet.
	ErrNoArtifact = errors.New("workflow: nothing rendered yet")
	// ErrSuperseded is returned to an optimization caller whose result was
	// discarded by a later render or optimization.
	ErrSuperseded = errors.New("workflow: superseded by a newer request")
	// ErrClosed is returned once Run has exited.
	ErrClosed = errors.New("workflow: session closed")

	errRunning = errors.New("workflow: session already running")
)

// DefaultProgressDelay paces the optimization progress stages.
const DefaultProgressDelay = 50 * time.Millisecond

// subscriberBuffer is the capacity of subscriber channels. Events are
// dropped for subscribers lagging further behind.
const subscriberBuffer = 32

// Options configures a new Session.
type Options struct {
	Config dotgrid.Config
	Mask   mask.Source // zero value uses the embedded world map

	ContainerWidth, ContainerHeight float64
	PixelRatio                      float64

	ProgressDelay time.Duration // between progress stages, may be 0
	Optimizer     *svgopt.Optimizer
}

type request func(l *loop)

// Session is a render/optimize workflow.
type Session struct {
	opts Options

	sampler  mask.Sampler
	requests chan request
	done     chan struct{}
	running  atomic.Bool

	subscriberMu sync.Mutex
	subscribers  map[string]chan Event
}

// New returns a session; call Run to start it.
func New(opts Options) *Session {
	if opts.Optimizer == nil {
		opts.Optimizer = svgopt.New()
	}
	if opts.Mask.Data == nil {
		opts.Mask = mask.DefaultSource()
	}
	opts.Config = opts.Config.Clamp()
	if _, err := svgdots.ParseColor(opts.Config.Color); err != nil {
		logging.Logger().Warn("ignoring invalid color", slog.String("color", opts.Config.Color), slog.Any("err", err))
		opts.Config.Color = dotgrid.DefaultConfig().Color
	}
	return &Session{
		opts:        opts,
		requests:    make(chan request),
		done:        make(chan struct{}),
		subscribers: make(map[string]chan Event),
	}
}

// Run processes requests until ctx is done. It loads the initial mask
// and renders as soon as it is decoded.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errRunning
	}
	defer s.closeSubscribers()
	defer close(s.done)

	l := newLoop(ctx, s)
	l.loadMask(s.opts.Mask, nil)
	for {
		select {
		case <-ctx.Done():
			l.supersedeOptimization(ErrClosed)
			return ctx.Err()
		case req := <-s.requests:
			req(l)
		}
	}
}

// post hands req to the loop. It reports false when the session or ctx
// is done first.
func (s *Session) post(ctx context.Context, req request) bool {
	select {
	case s.requests <- req:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// call runs fn in the loop and waits for it to complete.
func (s *Session) call(ctx context.Context, fn func(l *loop)) error {
	finished := make(chan struct{})
	if !s.post(ctx, func(l *loop) { fn(l); close(finished) }) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrClosed
	}
	<-finished
	return nil
}

// ValidateConfig checks the parameter ranges and that the color can be
// painted by the preview and export drivers.
func ValidateConfig(cfg dotgrid.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := svgdots.ParseColor(cfg.Color); err != nil {
		return fmt.Errorf("%w: %v", dotgrid.ErrInvalidConfig, err)
	}
	return nil
}

// SetConfig validates cfg, then renders with it.
func (s *Session) SetConfig(ctx context.Context, cfg dotgrid.Config) (Status, error) {
	if err := ValidateConfig(cfg); err != nil {
		return Status{}, err
	}
	var st Status
	err := s.call(ctx, func(l *loop) {
		l.cfg = cfg
		l.render()
		st = l.status()
	})
	return st, err
}

// SetMask starts loading src. The current mask is dropped at once, so
// the next render has no land until the decode completes. The returned
// channel receives nil after the session rendered with the new mask,
// the decode error, or mask.ErrSuperseded when another mask won.
func (s *Session) SetMask(ctx context.Context, src mask.Source) (<-chan error, error) {
	loaded := make(chan error, 1)
	err := s.call(ctx, func(l *loop) { l.loadMask(src, loaded) })
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

// Resize changes the container the mask is fitted in, then renders.
func (s *Session) Resize(ctx context.Context, width, height, pixelRatio float64) (Status, error) {
	if !(width >= 0 && height >= 0) {
		return Status{}, fmt.Errorf("workflow: invalid container size %vx%v", width, height)
	}
	var st Status
	err := s.call(ctx, func(l *loop) {
		l.containerW, l.containerH, l.ratio = width, height, pixelRatio
		l.render()
		st = l.status()
	})
	return st, err
}

// Status returns a snapshot of the session.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.call(ctx, func(l *loop) { st = l.status() })
	return st, err
}

// Artifact returns the last render, with its optimized text when
// available.
func (s *Session) Artifact(ctx context.Context) (Artifact, error) {
	var (
		a   *Artifact
		err error
	)
	if err = s.call(ctx, func(l *loop) { a = l.artifact }); err != nil {
		return Artifact{}, err
	}
	if a == nil {
		return Artifact{}, ErrNoArtifact
	}
	return *a, nil
}

// Optimize optimizes the current render and waits for the outcome.
// A later render or Optimize call discards this one with ErrSuperseded.
func (s *Session) Optimize(ctx context.Context) (Artifact, error) {
	var (
		reply <-chan optimizeResult
		err   error
	)
	callErr := s.call(ctx, func(l *loop) { reply, err = l.startOptimization() })
	if callErr != nil {
		return Artifact{}, callErr
	}
	if err != nil {
		return Artifact{}, err
	}
	select {
	case res := <-reply:
		return res.artifact, res.err
	case <-s.done:
		return Artifact{}, ErrClosed
	case <-ctx.Done():
		return Artifact{}, ctx.Err()
	}
}

// Mask returns the decoded mask, nil while none is ready.
func (s *Session) Mask() *mask.Mask { return s.sampler.Mask() }

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a channel receiving the session events. The channel
// ID is used to identify the unique channel when unsubscribing.
func (s *Session) Subscribe() (string, <-chan Event) {
	id := randomID()
	ch := make(chan Event, subscriberBuffer)
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.subscribers == nil { // closed
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *Session) publish(ev Event) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// if the channel is full skip so as not to block the loop
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.subscribers = nil
}
