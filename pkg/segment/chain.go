package segment

type chainKey struct {
	camera string
	index  string
	part   int
}

// LinkChains links every segment to the next part of its chain, the
// segment from the same camera with the same chain index and the next
// part number. Returns the number of segments that had more than one
// candidate, the last candidate is used for those.
func (s *Set) LinkChains() int {
	parts := make(map[chainKey][]ID)
	for _, seg := range s.segments {
		key := chainKey{camera: seg.Camera, index: seg.ChainIndex, part: seg.Part}
		parts[key] = append(parts[key], seg.ID)
	}

	var duplicates int
	for _, seg := range s.segments {
		key := chainKey{camera: seg.Camera, index: seg.ChainIndex, part: seg.Part + 1}
		candidates := parts[key]
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			duplicates++
		}
		seg.next = candidates[len(candidates)-1]
	}
	return duplicates
}

// Series returns the segment followed by every later part of its chain.
func (s *Set) Series(id ID) []ID {
	visited := make(map[ID]struct{})

	var series []ID
	for id != NoID {
		if _, seen := visited[id]; seen {
			break
		}
		visited[id] = struct{}{}
		series = append(series, id)
		id = s.segments[id].next
	}
	return series
}

// Paths returns the paths of the series starting at id.
func (s *Set) Paths(id ID) []string {
	series := s.Series(id)
	paths := make([]string, 0, len(series))
	for _, part := range series {
		paths = append(paths, s.segments[part].Path)
	}
	return paths
}
