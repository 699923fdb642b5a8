package match

import (
	"math"
	"strconv"
	"strings"

	"lrcfetch/internal/track"
)

const (
	titleWeight       = 40
	albumWeight       = 10
	artistCountBonus  = 10
	artistShareWeight = 25
	ambiguousLow      = 40
	ambiguousHigh     = 72
	durationTolerance = 2 // seconds
)

// Resolve scores every candidate field by field and returns the one with
// the highest affinity, along with the fields that disagreed for it.
func Resolve[C any](candidates []C, describe Description[C], local track.Track) (C, float64, Diagnostics, error) {
	return resolve(defaultNormalizer, candidates, describe, local)
}

func resolve[C any](n *Normalizer, candidates []C, describe Description[C], local track.Track) (C, float64, Diagnostics, error) {
	var zero C
	if len(candidates) == 0 {
		return zero, 0, nil, ErrNoMatch
	}

	var (
		best      C
		bestScore float64
		bestDiags Diagnostics
		bestInstr bool
	)
	for i, c := range candidates {
		p := describe.Describe(c)
		score, diags := affinity(n, local, p.Track)
		if i == 0 || score > bestScore {
			best, bestScore, bestDiags, bestInstr = c, score, diags, p.Instrumental
		}
	}

	if bestInstr {
		return best, bestScore, bestDiags, ErrInstrumental
	}
	return best, bestScore, bestDiags, nil
}

func affinity(n *Normalizer, local, found track.Track) (float64, Diagnostics) {
	var score float64
	diags := Diagnostics{}

	if strings.Contains(n.Normalize(found.Title), n.Normalize(local.Title)) {
		score += titleWeight
	} else {
		diags["title"] = Diagnostic{Expected: local.Title, Found: found.Title}
	}

	localArtists := n.splitArtists(local.Artist)
	foundArtists := n.splitArtists(found.Artist)
	if len(localArtists) == len(foundArtists) {
		score += artistCountBonus
	}
	per := artistShareWeight / float64(max(1, min(len(localArtists), len(foundArtists))))
	shared := 0
	for a := range localArtists {
		if foundArtists[a] {
			shared++
		}
	}
	score += per * float64(shared)
	if (score > ambiguousLow && score < ambiguousHigh) || (shared == 0 && len(localArtists) > 0) {
		diags["artist"] = Diagnostic{Expected: local.Artist, Found: found.Artist}
	}

	if strings.Contains(n.Normalize(found.Album), n.Normalize(local.Album)) {
		score += albumWeight
	} else {
		diags["album"] = Diagnostic{Expected: local.Album, Found: found.Album}
	}

	drift := math.Abs(local.Duration - found.Duration)
	score -= drift
	if drift > durationTolerance {
		diags["duration"] = Diagnostic{Expected: seconds(local.Duration), Found: seconds(found.Duration)}
	}

	return score, diags
}

func seconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64) + "s"
}

// Affinity is the field-by-field selection policy. It suits free-text
// search APIs whose result sets are large and noisy. A result is accepted
// only when no field disagreed; otherwise the caller decides.
type Affinity[C any] struct {
	Describe   Description[C]
	Normalizer *Normalizer // nil uses the default
}

func (a Affinity[C]) Resolve(candidates []C, local track.Track) (Result[C], error) {
	best, score, diags, err := resolve(a.Normalizer.orDefault(), candidates, a.Describe, local)
	if err != nil {
		return Result[C]{Candidate: best, Score: score, Diagnostics: diags}, err
	}
	return Result[C]{
		Accepted:    len(diags) == 0,
		Candidate:   best,
		Score:       score,
		Diagnostics: diags,
	}, nil
}
