// SPDX-License-Identifier: GPL-2.0-or-later

package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	set := newTestSet(t,
		testSegment{"a", "GOPR0001.MP4", []uint32{1000, 2000, 3000}},
		testSegment{"b", "GOPR0001.MP4", []uint32{5000, 6000, 7000}},
		testSegment{"c", "GOPR0001.MP4", []uint32{0, 1100, 2300}},
		testSegment{"d", "GOPR0001.MP4", []uint32{0, 1000}},
		testSegment{"e", "GOPR0001.MP4", nil},
		testSegment{"f", "GOPR0001.MP4", nil},
	)
	a, b, c, d, e, f := ID(0), ID(1), ID(2), ID(3), ID(4), ID(5)

	cases := []struct {
		name     string
		a, b     ID
		expected float64
		ok       bool
	}{
		{"identical", a, b, 0, true},
		{"mean", a, c, 200, true},
		{"self", a, a, 0, false},
		{"lengthMismatch", a, d, 0, false},
		{"noSignature", e, f, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, ok := set.Score(tc.a, tc.b)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expected, score)
		})
	}

	t.Run("symmetric", func(t *testing.T) {
		for _, x := range []ID{a, b, c, d} {
			for _, y := range []ID{a, b, c, d} {
				s1, ok1 := set.Score(x, y)
				s2, ok2 := set.Score(y, x)
				require.Equal(t, ok1, ok2)
				require.Equal(t, s1, s2)
			}
		}
	})
}

func TestForceMatch(t *testing.T) {
	set := newTestSet(t,
		testSegment{"a", "GOPR0001.MP4", []uint32{1000, 2000, 3000}},
		testSegment{"b", "GOPR0002.MP4", []uint32{0, 5}},
		testSegment{"c", "GOPR0003.MP4", nil},
	)
	a := mustGet(t, set, "GOPR0001.MP4")
	b := mustGet(t, set, "GOPR0002.MP4")
	c := mustGet(t, set, "GOPR0003.MP4")

	offset := 500.0
	set.ForceMatch(a.ID, b.ID, &offset)

	forced, exist := a.ForcedOffset(b.ID)
	require.True(t, exist)
	require.Equal(t, 500.0, forced)

	forced, exist = b.ForcedOffset(a.ID)
	require.True(t, exist)
	require.Equal(t, -500.0, forced)

	score, ok := set.Score(a.ID, b.ID)
	require.True(t, ok)
	require.Equal(t, 500.0, score)

	require.Equal(t, []ID{b.ID}, set.Matched(a.ID))
	require.Equal(t, []ID{a.ID}, set.Matched(b.ID))

	t.Run("withoutOffset", func(t *testing.T) {
		set.ForceMatch(a.ID, c.ID, nil)
		_, exist := a.ForcedOffset(c.ID)
		require.False(t, exist)
		require.Equal(t, []ID{b.ID, c.ID}, set.Matched(a.ID))
		require.Equal(t, []ID{a.ID}, set.Matched(c.ID))
	})
}

func TestMatch(t *testing.T) {
	t.Run("bestScore", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"front", "GOPR0001.MP4", []uint32{1000, 2000, 3000}},
			testSegment{"back", "GOPR0010.MP4", []uint32{5000, 6100, 7100}},
			testSegment{"back", "GOPR0011.MP4", []uint32{5000, 6000, 7000}},
			testSegment{"back", "GP010011.MP4", []uint32{5000, 6000, 7000}},
		)
		front := mustGet(t, set, "GOPR0001.MP4")
		exact := mustGet(t, set, "GOPR0011.MP4")
		near := mustGet(t, set, "GOPR0010.MP4")

		require.Equal(t, 3, set.Match())

		// Front nominates the exact match, both back roots nominate front.
		require.Equal(t, []ID{near.ID, exact.ID}, set.Matched(front.ID))
		require.Equal(t, []ID{front.ID}, set.Matched(near.ID))
		require.Equal(t, []ID{front.ID}, set.Matched(exact.ID))
		require.Empty(t, set.Unmatched())
	})
	t.Run("nonMutual", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"a", "GOPR0001.MP4", []uint32{0, 1000}},
			testSegment{"b", "GOPR0001.MP4", []uint32{0, 1100}},
			testSegment{"c", "GOPR0001.MP4", []uint32{0, 1150}},
		)
		// a->b (100), b->c (50), c->b (50).
		set.Match()
		require.Equal(t, []ID{1}, set.Matched(0))
		require.Equal(t, []ID{0, 2}, set.Matched(1))
		require.Equal(t, []ID{1}, set.Matched(2))
	})
	t.Run("tie", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"a", "GOPR0001.MP4", []uint32{0, 1000}},
			testSegment{"b", "GOPR0001.MP4", []uint32{0, 1100}},
			testSegment{"c", "GOPR0001.MP4", []uint32{0, 900}},
			testSegment{"d", "GOPR0001.MP4", []uint32{0, 890}},
		)
		// a scores 100 against both b and c, c and d pair up.
		set.Match()
		require.Equal(t, []ID{1}, set.Matched(0))
		require.Equal(t, []ID{3}, set.Matched(2))
	})
	t.Run("sameCamera", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"a", "GOPR0001.MP4", []uint32{0, 1000}},
			testSegment{"a", "GOPR0002.MP4", []uint32{0, 1000}},
		)
		require.Equal(t, 0, set.Match())
		require.Len(t, set.Unmatched(), 2)
	})
	t.Run("distinctLengths", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"a", "GOPR0001.MP4", []uint32{0, 1000}},
			testSegment{"b", "GOPR0001.MP4", []uint32{0, 1000, 2000}},
			testSegment{"c", "GOPR0001.MP4", []uint32{0, 1000, 2000, 3000}},
		)
		require.Equal(t, 0, set.Match())
		require.Equal(t, []ID{0, 1, 2}, set.Unmatched())
	})
	t.Run("noSignature", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"a", "GOPR0001.MP4", nil},
			testSegment{"b", "GOPR0001.MP4", []uint32{0}},
		)
		require.Equal(t, 0, set.Match())
	})
	t.Run("symmetric", func(t *testing.T) {
		set := newTestSet(t,
			testSegment{"a", "GOPR0001.MP4", []uint32{0, 1000}},
			testSegment{"b", "GOPR0001.MP4", []uint32{0, 1100}},
			testSegment{"c", "GOPR0001.MP4", []uint32{0, 1150}},
			testSegment{"d", "GOPR0001.MP4", []uint32{0, 900}},
		)
		set.Match()
		for _, seg := range set.All() {
			for _, other := range set.Matched(seg.ID) {
				require.Contains(t, set.Matched(other), seg.ID)
			}
		}
	})
}
