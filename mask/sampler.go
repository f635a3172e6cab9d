package mask

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/benoitkugler/worlddots/logging"
)

// ErrSuperseded is reported by a load replaced by a later one before
// it finished decoding.
var ErrSuperseded = errors.New("mask: load superseded by a newer source")

// Sampler holds the mask currently in use and loads new ones
// asynchronously. Until a load completes every query reports water,
// so callers never wait on image decoding.
//
// The zero value is ready to use.
type Sampler struct {
	current atomic.Pointer[Mask]

	mu  sync.Mutex // guards gen and the store of current
	gen uint64
}

// Load discards the current mask and decodes src in the background.
// The returned channel receives the outcome and is then closed:
// nil once the mask is in use, the decode error, ErrSuperseded when
// a later Load won, or the context error.
func (s *Sampler) Load(ctx context.Context, src Source) <-chan error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.current.Store(nil)
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.decode(ctx, gen, src)
	}()
	return done
}

func (s *Sampler) decode(ctx context.Context, gen uint64, src Source) error {
	m, err := src.Decode()
	if err != nil {
		logging.Logger().Warn("mask decode failed", "source", src.Name, "err", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return ErrSuperseded
	}
	s.current.Store(m)
	logging.Logger().Info("mask loaded", "source", src.Name, "width", m.width, "height", m.height)
	return nil
}

// Mask returns the mask in use, or nil before the first load completes.
func (s *Sampler) Mask() *Mask { return s.current.Load() }

// Ready reports whether a mask is in use.
func (s *Sampler) Ready() bool { return s.current.Load() != nil }

// IsLand queries the mask in use. It reports false while no mask is ready.
func (s *Sampler) IsLand(x, y, surfaceWidth, surfaceHeight float64) bool {
	return s.current.Load().IsLand(x, y, surfaceWidth, surfaceHeight)
}
