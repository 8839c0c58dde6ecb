package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/bild/pkg/scene"
)

// DefaultEvalTimeout bounds a single evaluation unless SetTimeout says
// otherwise.
const DefaultEvalTimeout = 5 * time.Second

var (
	// ErrEvalTimeout is returned when a scene takes too long to evaluate.
	ErrEvalTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to an evaluation whose result arrived
	// after a newer Evaluate call on the same engine started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

type evalResult struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// awaitResult blocks until the sandbox goroutine reports, the timeout
// fires or ctx ends. A goroutine that is abandoned keeps running; its
// result lands in the buffered channel and is dropped. stale is asked
// once a result arrives.
func awaitResult(ctx context.Context, ch <-chan evalResult, timeout time.Duration, stale func() bool) (*scene.Scene, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if stale() {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrEvalTimeout, timeout)

	case <-ctx.Done():
		return nil, nil, fmt.Errorf("evaluation canceled: %w", ctx.Err())
	}
}
