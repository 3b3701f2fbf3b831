package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testSegment struct {
	camera string
	file   string
	tags   []uint32
}

func newTestSet(t *testing.T, segments ...testSegment) *Set {
	t.Helper()
	var segs []*Segment
	for _, ts := range segments {
		seg, err := New("/rec/"+ts.camera+"/"+ts.file, ts.camera, ts.tags)
		require.NoError(t, err)
		segs = append(segs, seg)
	}
	return NewSet(segs)
}

func mustGet(t *testing.T, set *Set, name string) *Segment {
	t.Helper()
	seg, err := set.ByFilename(name)
	require.NoError(t, err)
	return seg
}

func TestMakeSignature(t *testing.T) {
	cases := []struct {
		name     string
		tags     []uint32
		expected []int64
	}{
		{"nil", nil, []int64{}},
		{"single", []uint32{1000}, []int64{}},
		{"two", []uint32{1000, 2500}, []int64{1500}},
		{"three", []uint32{1000, 2000, 3000}, []int64{1000, 2000}},
		{"shifted", []uint32{5000, 6000, 7000}, []int64{1000, 2000}},
		{"unordered", []uint32{3000, 1000}, []int64{-2000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signature := MakeSignature(tc.tags)
			require.Equal(t, tc.expected, signature)
			if len(tc.tags) >= 2 {
				require.Len(t, signature, len(tc.tags)-1)
			}
		})
	}
}

func TestParseFilename(t *testing.T) {
	cases := []struct {
		input  string
		prefix string
		index  string
		part   int
	}{
		{"GOPR0042.MP4", "GOPR", "0042", 0},
		{"GP010042.MP4", "GP01", "0042", 1},
		{"GP120042.MP4", "GP12", "0042", 12},
		{"GOPR12AB.MP4", "GOPR", "12AB", 0},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			prefix, index, part, err := ParseFilename(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.prefix, prefix)
			require.Equal(t, tc.index, index)
			require.Equal(t, tc.part, part)
		})
	}

	for _, input := range []string{"GOPR.MP4", "GPxx0042.MP4", "GP000042.MP4", "video.mp4"} {
		t.Run(input, func(t *testing.T) {
			_, _, _, err := ParseFilename(input)
			require.ErrorIs(t, err, ErrMalformedFilename)
		})
	}
}

func TestNew(t *testing.T) {
	seg, err := New("/rec/front/GP020042.MP4", "front", []uint32{10, 20})
	require.NoError(t, err)
	require.Equal(t, "GP020042.MP4", seg.Filename)
	require.Equal(t, 2, seg.Part)
	require.False(t, seg.IsRoot())
	require.Equal(t, []int64{10}, seg.Signature)
	require.Equal(t, "front/GP020042.MP4", seg.String())

	_, hasNext := seg.Next()
	require.False(t, hasNext)

	_, err = New("/rec/front/x.MP4", "front", nil)
	require.ErrorIs(t, err, ErrMalformedFilename)
}

func TestSet(t *testing.T) {
	set := newTestSet(t,
		testSegment{"front", "GOPR0002.MP4", nil},
		testSegment{"back", "GOPR0001.MP4", nil},
		testSegment{"front", "GOPR0001.MP4", nil},
		testSegment{"front", "GP010001.MP4", nil},
	)

	t.Run("order", func(t *testing.T) {
		var names []string
		for i, seg := range set.All() {
			require.Equal(t, ID(i), seg.ID)
			names = append(names, seg.String())
		}
		require.Equal(t, []string{
			"back/GOPR0001.MP4",
			"front/GOPR0001.MP4",
			"front/GOPR0002.MP4",
			"front/GP010001.MP4",
		}, names)
	})
	t.Run("roots", func(t *testing.T) {
		require.Equal(t, []ID{0, 1, 2}, set.Roots())
	})
	t.Run("byFilename", func(t *testing.T) {
		require.Equal(t, ID(2), mustGet(t, set, "GOPR0002.MP4").ID)
		require.Equal(t, ID(0), mustGet(t, set, "back/GOPR0001.MP4").ID)

		_, err := set.ByFilename("GOPR0001.MP4")
		require.ErrorIs(t, err, ErrAmbiguousFilename)

		_, err = set.ByFilename("GOPR9999.MP4")
		require.ErrorIs(t, err, ErrSegmentNotFound)

		_, err = set.ByFilename("side/GOPR0002.MP4")
		require.ErrorIs(t, err, ErrSegmentNotFound)
	})
}
