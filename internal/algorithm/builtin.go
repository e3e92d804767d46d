package algorithm

import (
	"context"
	"math"
)

// Builtin owner identity. Builtins are always registered and serve as the
// fallback when a plugin-contributed algorithm disappears.
const (
	BuiltinOwnerID   = "core"
	builtinOwnerName = "mnemo"
)

// Builtin local ids.
const (
	BuiltinReviewSM2   = "sm2"
	BuiltinReviewFixed = "fixed"
	BuiltinDiffLine    = "line"
)

// Default current-algorithm ids per kind.
var (
	DefaultReviewID = ComposeID(KindReview, SourceBuiltin, BuiltinOwnerID, BuiltinReviewSM2)
	DefaultDiffID   = ComposeID(KindDiff, SourceBuiltin, BuiltinOwnerID, BuiltinDiffLine)
)

const minEaseFactor = 1.3

// SM2 is the default review scheduler, a variant of the SuperMemo 2
// interval/ease-factor model.
type SM2 struct{}

// Calculate implements ReviewAlgorithm.
func (SM2) Calculate(_ context.Context, req ReviewRequest) (ReviewResult, error) {
	ease := req.EaseFactor
	if ease < minEaseFactor {
		ease = 2.5
	}

	switch req.Rating {
	case RatingAgain:
		return ReviewResult{
			Repetition:   0,
			EaseFactor:   math.Max(minEaseFactor, ease-0.2),
			IntervalDays: 1,
		}, nil
	case RatingHard:
		return ReviewResult{
			Repetition:   req.Repetition + 1,
			EaseFactor:   math.Max(minEaseFactor, ease-0.15),
			IntervalDays: math.Max(1, req.IntervalDays*1.2),
		}, nil
	case RatingEasy:
		return ReviewResult{
			Repetition:   req.Repetition + 1,
			EaseFactor:   ease + 0.15,
			IntervalDays: math.Max(1, req.IntervalDays*ease*1.3),
		}, nil
	default: // RatingGood
		rep := req.Repetition + 1
		var interval float64
		switch rep {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = math.Round(req.IntervalDays * ease)
		}
		return ReviewResult{
			Repetition:   rep,
			EaseFactor:   ease,
			IntervalDays: math.Max(1, interval),
		}, nil
	}
}

// fixedSteps is the ladder used by the fixed-interval scheduler.
var fixedSteps = []float64{1, 3, 7, 14, 30, 60}

// FixedInterval is a simple ladder scheduler: each successful review climbs
// one step, a failed review drops back to the first step. The ease factor
// passes through unchanged.
type FixedInterval struct{}

// Calculate implements ReviewAlgorithm.
func (FixedInterval) Calculate(_ context.Context, req ReviewRequest) (ReviewResult, error) {
	if req.Rating == RatingAgain {
		return ReviewResult{
			Repetition:   0,
			EaseFactor:   req.EaseFactor,
			IntervalDays: fixedSteps[0],
		}, nil
	}

	rep := req.Repetition + 1
	step := rep
	if step >= len(fixedSteps) {
		step = len(fixedSteps) - 1
	}
	return ReviewResult{
		Repetition:   rep,
		EaseFactor:   req.EaseFactor,
		IntervalDays: fixedSteps[step],
	}, nil
}

// LineDiff is the builtin diff algorithm: a longest-common-subsequence diff
// over whole lines.
type LineDiff struct{}

// Diff implements DiffAlgorithm.
func (LineDiff) Diff(_ context.Context, oldText, newText string) ([]Change, error) {
	a := splitLines(oldText)
	b := splitLines(newText)

	// LCS length table.
	m, n := len(a), len(b)
	lcs := make([][]int, m+1)
	for i := range lcs {
		lcs[i] = make([]int, n+1)
	}
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	changes := make([]Change, 0, m+n)
	i, j := 0, 0
	for i < m && j < n {
		switch {
		case a[i] == b[j]:
			changes = append(changes, Change{Op: OpEqual, Text: a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			changes = append(changes, Change{Op: OpDelete, Text: a[i]})
			i++
		default:
			changes = append(changes, Change{Op: OpAdd, Text: b[j]})
			j++
		}
	}
	for ; i < m; i++ {
		changes = append(changes, Change{Op: OpDelete, Text: a[i]})
	}
	for ; j < n; j++ {
		changes = append(changes, Change{Op: OpAdd, Text: b[j]})
	}
	return changes, nil
}

// splitLines splits text into lines without trailing newline artifacts.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
