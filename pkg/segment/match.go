package segment

import (
	"math"
	"sort"
)

// Score returns how well the tags of a and b line up, lower is better.
// The operator supplied offset is returned if one exists.
// Otherwise it is the mean absolute difference between the
// signatures, signatures of different length can't be compared.
func (s *Set) Score(a ID, b ID) (float64, bool) {
	if a == b {
		return 0, false
	}

	segA, segB := s.segments[a], s.segments[b]
	if offset, exist := segA.forced[b]; exist {
		return offset, true
	}

	if len(segA.Signature) != len(segB.Signature) || len(segA.Signature) == 0 {
		return 0, false
	}

	var sum float64
	for i, v := range segA.Signature {
		sum += math.Abs(float64(v - segB.Signature[i]))
	}
	return sum / float64(len(segA.Signature)), true
}

// Match pairs every root segment with the best scoring root segment from
// another camera. The pair is stored on both segments even if the other
// segment's own best match is a third segment. Returns number of pairs.
func (s *Set) Match() int {
	roots := s.Roots()

	var pairs int
	for _, a := range roots {
		segA := s.segments[a]
		if len(segA.Signature) == 0 {
			continue
		}

		best := NoID
		var bestScore float64
		for _, c := range roots {
			// Recordings from one camera never overlap in time, so
			// they can't show the same tags.
			if s.segments[c].Camera == segA.Camera {
				continue
			}
			score, ok := s.Score(a, c)
			if !ok {
				continue
			}
			// First candidate wins a tie.
			if best == NoID || score < bestScore {
				best, bestScore = c, score
			}
		}

		if best != NoID {
			s.addMatch(a, best)
			pairs++
		}
	}
	return pairs
}

// ForceMatch pairs a and b. If offset isn't nil, it is used as the score
// from a to b and its negation from b to a.
func (s *Set) ForceMatch(a ID, b ID, offset *float64) {
	s.addMatch(a, b)
	if offset != nil {
		s.segments[a].forced[b] = *offset
		s.segments[b].forced[a] = -*offset
	}
}

func (s *Set) addMatch(a ID, b ID) {
	s.segments[a].matched[b] = struct{}{}
	s.segments[b].matched[a] = struct{}{}
}

// Matched returns the segments paired with id, sorted.
func (s *Set) Matched(id ID) []ID {
	matched := make([]ID, 0, len(s.segments[id].matched))
	for other := range s.segments[id].matched {
		matched = append(matched, other)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
	return matched
}

// Unmatched returns the root segments without any pairs.
func (s *Set) Unmatched() []ID {
	var unmatched []ID
	for _, id := range s.Roots() {
		if len(s.segments[id].matched) == 0 {
			unmatched = append(unmatched, id)
		}
	}
	return unmatched
}
