// Copyright 2020-2022 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package session groups matched recordings into time aligned sessions.
package session

import (
	"math"
	"sort"

	"camsync/pkg/segment"
)

// View is the recordings of one camera in a session.
type View struct {
	// Paths of the chain, first part first.
	Paths []string `yaml:"paths"`

	// Milliseconds to skip before the view lines up with the others.
	// Nil if the offset couldn't be resolved.
	Offset *int64 `yaml:"offset,omitempty"`
}

// Session is a set of views believed to show the same event.
type Session struct {
	Views map[string]*View `yaml:"views"`
}

// FirstPath returns the first path of camera's view.
func (s Session) FirstPath(camera string) (string, bool) {
	view, exist := s.Views[camera]
	if !exist || len(view.Paths) == 0 {
		return "", false
	}
	return view.Paths[0], true
}

// Cameras returns the camera names in sorted order.
func (s Session) Cameras() []string {
	cameras := make([]string, 0, len(s.Views))
	for camera := range s.Views {
		cameras = append(cameras, camera)
	}
	sort.Strings(cameras)
	return cameras
}

// Component returns root and every segment it's transitively matched with.
func Component(set *segment.Set, root segment.ID) []segment.ID {
	visited := map[segment.ID]struct{}{root: {}}
	visit(set, root, visited)

	ids := make([]segment.ID, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func visit(set *segment.Set, id segment.ID, visited map[segment.ID]struct{}) {
	for _, other := range set.Matched(id) {
		if _, seen := visited[other]; seen {
			continue
		}
		visited[other] = struct{}{}
		visit(set, other, visited)
	}
}

// Options for Build.
type Options struct {
	// Camera whose first path orders the sessions.
	ReferenceCamera string
}

// Conflict is a matched segment that was left out of a session because
// its camera already had a view there.
type Conflict struct {
	Segment segment.ID
	Start   segment.ID
}

type builder struct {
	set       *segment.Set
	used      map[segment.ID]struct{}
	conflicts []Conflict
}

// Build returns one session per group of matched root segments.
//
// Offsets are relative to the root the session was started from. A root
// without a signature is deferred when another member of its group has
// one. Deferred roots that are still unused after the first pass start
// their own sessions in a second pass. A segment is never placed in more
// than one session.
func Build(set *segment.Set, opts Options) ([]Session, []Conflict) {
	b := &builder{
		set:  set,
		used: make(map[segment.ID]struct{}),
	}

	var sessions []Session
	for pass := 0; pass < 2; pass++ {
		for _, root := range set.Roots() {
			if b.isUsed(root) {
				continue
			}
			members := Component(set, root)
			if pass == 0 && b.deferRoot(root, members) {
				continue
			}
			sessions = append(sessions, b.newSession(root, members))
		}
	}

	Sort(sessions, opts.ReferenceCamera)
	return sessions, b.conflicts
}

func (b *builder) deferRoot(root segment.ID, members []segment.ID) bool {
	if len(members) <= 1 || len(b.set.Get(root).Signature) != 0 {
		return false
	}
	for _, id := range members {
		if id != root && len(b.set.Get(id).Signature) != 0 {
			return true
		}
	}
	return false
}

func (b *builder) newSession(root segment.ID, members []segment.ID) Session {
	start := b.set.Get(root)
	session := Session{Views: make(map[string]*View)}
	zero := int64(0)
	b.addView(session, start, &zero)

	for _, id := range members {
		if id == root || b.isUsed(id) {
			continue
		}
		other := b.set.Get(id)
		if _, exist := session.Views[other.Camera]; exist {
			b.conflicts = append(b.conflicts, Conflict{Segment: id, Start: root})
			continue
		}
		b.addView(session, other, b.offset(root, id))
	}

	Normalize(session)
	return session
}

func (b *builder) addView(session Session, seg *segment.Segment, offset *int64) {
	session.Views[seg.Camera] = &View{
		Paths:  b.set.Paths(seg.ID),
		Offset: offset,
	}
	b.used[seg.ID] = struct{}{}
}

func (b *builder) isUsed(id segment.ID) bool {
	_, used := b.used[id]
	return used
}

// offset returns the offset of other relative to start. The score is
// the magnitude and the first tags decide the direction.
// Nil if either recording has no tags.
func (b *builder) offset(start segment.ID, other segment.ID) *int64 {
	startTags := b.set.Get(start).Tags
	otherTags := b.set.Get(other).Tags
	if len(startTags) == 0 || len(otherTags) == 0 {
		return nil
	}

	score, ok := b.set.Score(start, other)
	if !ok {
		score = 0
	}
	if startTags[0] > otherTags[0] {
		score = -score
	}

	offset := int64(math.Round(score))
	return &offset
}

// Normalize shifts the resolved offsets so a negative minimum becomes
// zero. Offsets that are all non-negative are left as is.
func Normalize(session Session) {
	var min int64
	var found bool
	for _, view := range session.Views {
		if view.Offset == nil {
			continue
		}
		if !found || *view.Offset < min {
			min = *view.Offset
			found = true
		}
	}
	if !found || min >= 0 {
		return
	}

	for _, view := range session.Views {
		if view.Offset != nil {
			shifted := *view.Offset - min
			view.Offset = &shifted
		}
	}
}

// Sort sorts sessions by the first path of the reference camera.
// Sessions without the reference camera use their smallest first path.
func Sort(sessions []Session, referenceCamera string) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sortKey(sessions[i], referenceCamera) < sortKey(sessions[j], referenceCamera)
	})
}

func sortKey(s Session, referenceCamera string) string {
	if path, exist := s.FirstPath(referenceCamera); exist {
		return path
	}

	var key string
	for _, camera := range s.Cameras() {
		path, exist := s.FirstPath(camera)
		if exist && (key == "" || path < key) {
			key = path
		}
	}
	return key
}
