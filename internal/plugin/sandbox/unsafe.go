package sandbox

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/mnemo-app/mnemo/internal/algorithm"
)

// Unsafe fallback: when the executor is unavailable, the plugin manager may
// load algorithm source directly in-process. These runners execute on a Lua
// state with the full standard library and no isolation boundary. They exist
// so the review and diff features keep working when the sandbox cannot
// start; every use must be loudly logged by the caller.

// unsafeRunner executes source in-process, one call at a time.
type unsafeRunner struct {
	mu     sync.Mutex
	source string
}

func (r *unsafeRunner) call(ctx context.Context, fn string, args []any) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	if err := L.DoString(r.source); err != nil {
		return nil, fmt.Errorf("sandbox: algorithm source failed: %w", err)
	}

	f := L.GetGlobal(fn)
	if f == lua.LNil || f.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q", ErrMissingExport, fn)
	}

	L.Push(f)
	for _, arg := range args {
		L.Push(toLua(L, arg))
	}
	if err := L.PCall(len(args), 1, nil); err != nil {
		return nil, fmt.Errorf("sandbox: %q failed: %w", fn, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	return toGo(ret), nil
}

// unsafeReview runs a review algorithm in-process without isolation.
type unsafeReview struct {
	runner unsafeRunner
}

// UnsafeReviewAlgorithm wraps source as a directly executed review
// algorithm. Only for use when the executor is unavailable.
func UnsafeReviewAlgorithm(source string) algorithm.ReviewAlgorithm {
	return &unsafeReview{runner: unsafeRunner{source: source}}
}

// Calculate implements algorithm.ReviewAlgorithm.
func (u *unsafeReview) Calculate(ctx context.Context, req algorithm.ReviewRequest) (algorithm.ReviewResult, error) {
	args := []any{map[string]any{
		"rating":       int(req.Rating),
		"repetition":   req.Repetition,
		"easeFactor":   req.EaseFactor,
		"intervalDays": req.IntervalDays,
	}}
	value, err := u.runner.call(ctx, reviewExport, args)
	if err != nil {
		return algorithm.ReviewResult{}, err
	}
	return decodeReviewResult(value)
}

// unsafeDiff runs a diff algorithm in-process without isolation.
type unsafeDiff struct {
	runner unsafeRunner
}

// UnsafeDiffAlgorithm wraps source as a directly executed diff algorithm.
// Only for use when the executor is unavailable.
func UnsafeDiffAlgorithm(source string) algorithm.DiffAlgorithm {
	return &unsafeDiff{runner: unsafeRunner{source: source}}
}

// Diff implements algorithm.DiffAlgorithm.
func (u *unsafeDiff) Diff(ctx context.Context, oldText, newText string) ([]algorithm.Change, error) {
	value, err := u.runner.call(ctx, diffExport, []any{oldText, newText})
	if err != nil {
		return nil, err
	}
	return decodeChanges(value)
}
