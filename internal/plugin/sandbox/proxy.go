package sandbox

import (
	"context"
	"fmt"

	"github.com/mnemo-app/mnemo/internal/algorithm"
)

// Exported function names plugin algorithm sources must define.
const (
	reviewExport = "calculate"
	diffExport   = "diff"
)

// reviewProxy forwards Calculate calls through the execution protocol. It is
// what the plugin manager registers into the algorithm registry, so the rest
// of the host never knows the implementation is sandboxed.
type reviewProxy struct {
	exec *Executor
	key  string
}

// ReviewAlgorithm returns a proxy for a registered review algorithm source.
func (e *Executor) ReviewAlgorithm(ownerID, localID string) algorithm.ReviewAlgorithm {
	return &reviewProxy{
		exec: e,
		key:  algorithm.ComposeID(algorithm.KindReview, algorithm.SourcePlugin, ownerID, localID),
	}
}

// Calculate implements algorithm.ReviewAlgorithm.
func (p *reviewProxy) Calculate(ctx context.Context, req algorithm.ReviewRequest) (algorithm.ReviewResult, error) {
	args := []any{map[string]any{
		"rating":       int(req.Rating),
		"repetition":   req.Repetition,
		"easeFactor":   req.EaseFactor,
		"intervalDays": req.IntervalDays,
	}}

	value, err := p.exec.Call(ctx, p.key, reviewExport, args)
	if err != nil {
		return algorithm.ReviewResult{}, err
	}

	return decodeReviewResult(value)
}

// decodeReviewResult validates the plain-data shape a review algorithm must
// return: a table with repetition, easeFactor, and intervalDays fields.
func decodeReviewResult(value any) (algorithm.ReviewResult, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return algorithm.ReviewResult{}, fmt.Errorf("sandbox: review result is %T, want table", value)
	}

	rep, ok := asInt(m["repetition"])
	if !ok {
		return algorithm.ReviewResult{}, fmt.Errorf("sandbox: review result missing numeric repetition")
	}
	ease, ok := asFloat(m["easeFactor"])
	if !ok {
		return algorithm.ReviewResult{}, fmt.Errorf("sandbox: review result missing numeric easeFactor")
	}
	interval, ok := asFloat(m["intervalDays"])
	if !ok {
		return algorithm.ReviewResult{}, fmt.Errorf("sandbox: review result missing numeric intervalDays")
	}

	return algorithm.ReviewResult{
		Repetition:   rep,
		EaseFactor:   ease,
		IntervalDays: interval,
	}, nil
}

// diffProxy forwards Diff calls through the execution protocol.
type diffProxy struct {
	exec *Executor
	key  string
}

// DiffAlgorithm returns a proxy for a registered diff algorithm source.
func (e *Executor) DiffAlgorithm(ownerID, localID string) algorithm.DiffAlgorithm {
	return &diffProxy{
		exec: e,
		key:  algorithm.ComposeID(algorithm.KindDiff, algorithm.SourcePlugin, ownerID, localID),
	}
}

// Diff implements algorithm.DiffAlgorithm.
func (p *diffProxy) Diff(ctx context.Context, oldText, newText string) ([]algorithm.Change, error) {
	value, err := p.exec.Call(ctx, p.key, diffExport, []any{oldText, newText})
	if err != nil {
		return nil, err
	}

	return decodeChanges(value)
}

// decodeChanges validates the plain-data shape a diff algorithm must return:
// an array of {op, text} tables.
func decodeChanges(value any) ([]algorithm.Change, error) {
	if value == nil {
		return nil, nil
	}
	// An empty Lua table decodes as an empty map; treat it as zero changes.
	if m, ok := value.(map[string]any); ok && len(m) == 0 {
		return nil, nil
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("sandbox: diff result is %T, want array", value)
	}

	changes := make([]algorithm.Change, 0, len(arr))
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sandbox: diff change %d is %T, want table", i, item)
		}
		op, _ := m["op"].(string)
		switch algorithm.ChangeOp(op) {
		case algorithm.OpEqual, algorithm.OpAdd, algorithm.OpDelete:
		default:
			return nil, fmt.Errorf("sandbox: diff change %d has invalid op %q", i, op)
		}
		text, _ := m["text"].(string)
		changes = append(changes, algorithm.Change{Op: algorithm.ChangeOp(op), Text: text})
	}
	return changes, nil
}
