// Package algorithm tracks the review-scheduling and text-diff algorithm
// implementations available to the host and which one is currently active
// for each kind. It is pure bookkeeping: entries are callable objects handed
// in by the caller (builtins at startup, sandboxed proxies from the plugin
// manager) and the registry never knows how they execute.
package algorithm

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies the category of algorithm.
type Kind string

// Algorithm kinds.
const (
	KindReview Kind = "review"
	KindDiff   Kind = "diff"
)

// Source identifies where an algorithm implementation came from.
type Source string

// Algorithm sources.
const (
	SourceBuiltin Source = "builtin"
	SourcePlugin  Source = "plugin"
)

// ComposeID builds the stable registry identifier for an algorithm.
// The format encodes provenance so that everything belonging to one owner
// can be removed without a secondary index, and so "current" pointers stay
// comparable across a plugin reload that produces new object instances.
func ComposeID(kind Kind, source Source, ownerID, localID string) string {
	return fmt.Sprintf("algo:%s:%s:%s:%s", kind, source, ownerID, localID)
}

// ParsedID is the decomposed form of a registry identifier.
type ParsedID struct {
	Kind    Kind
	Source  Source
	OwnerID string
	LocalID string
}

// ParseID splits a composite identifier. Returns false if the id does not
// follow the algo:{kind}:{source}:{ownerId}:{localId} format.
func ParseID(id string) (ParsedID, bool) {
	parts := strings.Split(id, ":")
	if len(parts) != 5 || parts[0] != "algo" {
		return ParsedID{}, false
	}
	return ParsedID{
		Kind:    Kind(parts[1]),
		Source:  Source(parts[2]),
		OwnerID: parts[3],
		LocalID: parts[4],
	}, true
}

// Rating is the user's answer quality for one review.
type Rating int

// Review ratings, ordered from complete failure to effortless recall.
const (
	RatingAgain Rating = iota
	RatingHard
	RatingGood
	RatingEasy
)

// ReviewRequest carries the scheduling state of a card into an algorithm.
// All state lives in the request; algorithms are stateless between calls.
type ReviewRequest struct {
	Rating       Rating  `json:"rating"`
	Repetition   int     `json:"repetition"`
	EaseFactor   float64 `json:"easeFactor"`
	IntervalDays float64 `json:"intervalDays"`
}

// ReviewResult is the updated scheduling state after one review.
type ReviewResult struct {
	Repetition   int     `json:"repetition"`
	EaseFactor   float64 `json:"easeFactor"`
	IntervalDays float64 `json:"intervalDays"`
}

// ChangeOp classifies one entry in a diff result.
type ChangeOp string

// Diff operations.
const (
	OpEqual  ChangeOp = "equal"
	OpAdd    ChangeOp = "add"
	OpDelete ChangeOp = "delete"
)

// Change is one line-level edit in a diff result.
type Change struct {
	Op   ChangeOp `json:"op"`
	Text string   `json:"text"`
}

// ReviewAlgorithm computes the next scheduling state for a card.
type ReviewAlgorithm interface {
	Calculate(ctx context.Context, req ReviewRequest) (ReviewResult, error)
}

// DiffAlgorithm computes line-level changes between two texts.
type DiffAlgorithm interface {
	Diff(ctx context.Context, oldText, newText string) ([]Change, error)
}

// Registered is one registry entry. Exactly one of Review or Diff is set,
// matching Kind.
type Registered struct {
	ID          string
	Kind        Kind
	Name        string
	Description string
	OwnerID     string
	OwnerName   string
	IsBuiltin   bool

	Review ReviewAlgorithm
	Diff   DiffAlgorithm
}
