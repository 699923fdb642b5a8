// Package match decides which provider search result, if any, corresponds
// to a local track.
//
// Two policies are available. The ratio policy blends every field into one
// string and accepts the best token-set similarity above a floor. The
// affinity policy scores title, artist, album and duration separately and
// reports which fields disagreed, leaving the final call to the caller.
package match

import (
	"errors"
	"fmt"

	"lrcfetch/internal/track"
)

var (
	// ErrNoMatch is returned when no candidate is good enough, or there
	// were no candidates at all.
	ErrNoMatch = errors.New("no match found")
	// ErrInstrumental is returned when the chosen candidate has no vocals.
	ErrInstrumental = errors.New("instrumental track")
)

// DefaultFloor is the minimum rounded similarity accepted by the ratio policy.
const DefaultFloor = 70

// Policy names a selection strategy.
type Policy string

const (
	PolicyRatio    Policy = "ratio"
	PolicyAffinity Policy = "affinity"
)

// ParsePolicy validates a policy name. The empty string selects the ratio policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyRatio:
		return PolicyRatio, nil
	case PolicyAffinity:
		return PolicyAffinity, nil
	}
	return "", fmt.Errorf("unknown match policy %q, valid policies: ratio, affinity", s)
}

// Projection turns a provider record into the string compared against the
// local track's query.
type Projection[C any] interface {
	Project(c C) string
}

// ProjectFunc adapts a function to Projection.
type ProjectFunc[C any] func(c C) string

func (f ProjectFunc[C]) Project(c C) string { return f(c) }

// Profile is what the affinity policy needs to know about a candidate.
type Profile struct {
	track.Track
	Instrumental bool
}

// Description turns a provider record into a Profile.
type Description[C any] interface {
	Describe(c C) Profile
}

// DescribeFunc adapts a function to Description.
type DescribeFunc[C any] func(c C) Profile

func (f DescribeFunc[C]) Describe(c C) Profile { return f(c) }

// Diagnostic records a field whose local and remote values disagreed.
type Diagnostic struct {
	Expected string
	Found    string
}

// Diagnostics maps a field name (title, artist, album, duration) to its
// disagreement.
type Diagnostics map[string]Diagnostic

// Result is the outcome of a selection.
type Result[C any] struct {
	Accepted    bool
	Candidate   C
	Score       float64
	Diagnostics Diagnostics
}

// Strategy picks the candidate that corresponds to local.
type Strategy[C any] interface {
	Resolve(candidates []C, local track.Track) (Result[C], error)
}

// NewStrategy builds the strategy for policy. describe may be nil for the
// ratio policy, in which case instrumental results are not detected.
func NewStrategy[C any](policy Policy, floor float64, project Projection[C], describe Description[C]) Strategy[C] {
	return NewStrategyWith(nil, policy, floor, project, describe)
}

// NewStrategyWith is NewStrategy comparing strings under n.
func NewStrategyWith[C any](n *Normalizer, policy Policy, floor float64, project Projection[C], describe Description[C]) Strategy[C] {
	if policy == PolicyAffinity && describe != nil {
		return Affinity[C]{Describe: describe, Normalizer: n}
	}
	return Ratio[C]{Project: project, Describe: describe, Floor: floor, Normalizer: n}
}
