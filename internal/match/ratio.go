package match

import (
	"sort"

	"lrcfetch/internal/track"
)

// SelectBest ranks candidates by the similarity of their projection to the
// local track's "title artist album" query and returns the best one if it
// clears floor. Ties keep provider order. A floor of zero or less uses
// DefaultFloor.
func SelectBest[C any](candidates []C, project Projection[C], local track.Track, floor float64) (C, bool) {
	best, _, ok := selectBest(defaultNormalizer, candidates, project, local, floor)
	return best, ok
}

func selectBest[C any](n *Normalizer, candidates []C, project Projection[C], local track.Track, floor float64) (C, float64, bool) {
	var zero C
	if len(candidates) == 0 {
		return zero, 0, false
	}
	if floor <= 0 {
		floor = DefaultFloor
	}

	query := local.Query()

	type scored struct {
		candidate C
		score     float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{candidate: c, score: n.Similarity(project.Project(c), query)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	top := ranked[0]
	if !n.Acceptable(query, project.Project(top.candidate), floor) {
		return zero, top.score, false
	}
	return top.candidate, top.score, true
}

// Ratio is the blended-string selection policy. It suits providers whose
// results are pre-filtered and usually right.
type Ratio[C any] struct {
	Project    Projection[C]
	Describe   Description[C] // optional, used to flag instrumentals
	Floor      float64
	Normalizer *Normalizer // nil uses the default
}

func (r Ratio[C]) Resolve(candidates []C, local track.Track) (Result[C], error) {
	best, score, ok := selectBest(r.Normalizer.orDefault(), candidates, r.Project, local, r.Floor)
	if !ok {
		return Result[C]{Score: score}, ErrNoMatch
	}
	if r.Describe != nil && r.Describe.Describe(best).Instrumental {
		return Result[C]{Candidate: best, Score: score}, ErrInstrumental
	}
	return Result[C]{Accepted: true, Candidate: best, Score: score}, nil
}
