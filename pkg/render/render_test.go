package render

import (
	"context"
	"encoding/xml"
	"errors"
	"testing"

	"camsync/pkg/ffmpeg"
	"camsync/pkg/ffmpeg/ffmock"
	"camsync/pkg/session"

	"github.com/stretchr/testify/require"
)

type mltProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type mltDocument struct {
	Producers []struct {
		ID         string        `xml:"id,attr"`
		Properties []mltProperty `xml:"property"`
	} `xml:"producer"`
	Playlists []struct {
		ID    string `xml:"id,attr"`
		Blank *struct {
			Length int `xml:"length,attr"`
		} `xml:"blank"`
		Entries []struct {
			Producer string `xml:"producer,attr"`
			In       int    `xml:"in,attr"`
			Out      int    `xml:"out,attr"`
		} `xml:"entry"`
	} `xml:"playlist"`
	Tractor struct {
		Tracks []struct {
			Producer string `xml:"producer,attr"`
		} `xml:"multitrack>track"`
		Transitions []struct {
			Out        int           `xml:"out,attr"`
			Properties []mltProperty `xml:"property"`
		} `xml:"transition"`
	} `xml:"tractor"`
}

func parseDocument(t *testing.T, raw []byte) mltDocument {
	t.Helper()
	var doc mltDocument
	require.NoError(t, xml.Unmarshal(raw, &doc))
	return doc
}

func property(props []mltProperty, name string) string {
	for _, p := range props {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func ms(v int64) *int64 {
	return &v
}

func TestParseLayout(t *testing.T) {
	layout, err := ParseLayout("front:inside:back")
	require.NoError(t, err)
	require.Equal(t, Layout{"front", "inside", "back"}, layout)

	for _, input := range []string{"", "front::back", "front:front"} {
		_, err := ParseLayout(input)
		require.ErrorIs(t, err, ErrInvalidLayout, input)
	}
}

func testSession() session.Session {
	return session.Session{Views: map[string]*session.View{
		"front": {
			Paths:  []string{"/rec/front/GOPR0001.MP4", "/rec/front/GP010001.MP4"},
			Offset: ms(0),
		},
		"back": {
			Paths:  []string{"/rec/back/GOPR0001.MP4"},
			Offset: ms(1000),
		},
		"inside": {
			Paths: []string{"/rec/inside/GOPR0001.MP4"},
		},
	}}
}

var testDetails = map[string]ffmpeg.VideoDetails{
	"/rec/front/GOPR0001.MP4":  {Frames: 100, FPS: 30},
	"/rec/front/GP010001.MP4":  {Frames: 50, FPS: 30},
	"/rec/back/GOPR0001.MP4":   {Frames: 200, FPS: 25},
	"/rec/inside/GOPR0001.MP4": {Frames: 80, FPS: 30},
}

func TestDocument(t *testing.T) {
	layout := Layout{"front", "inside", "back"}

	t.Run("unlimited", func(t *testing.T) {
		raw, err := Document(testSession(), testDetails, Options{Layout: layout})
		require.NoError(t, err)
		doc := parseDocument(t, raw)

		require.Len(t, doc.Producers, 4)
		require.Equal(t, "back:/rec/back/GOPR0001.MP4", doc.Producers[0].ID)
		require.Equal(t, "/rec/back/GOPR0001.MP4", property(doc.Producers[0].Properties, "resource"))

		require.Len(t, doc.Playlists, 3)
		back, front, inside := doc.Playlists[0], doc.Playlists[1], doc.Playlists[2]

		require.Equal(t, "back", back.ID)
		require.NotNil(t, back.Blank)
		require.Equal(t, 25, back.Blank.Length)
		require.Len(t, back.Entries, 1)
		require.Equal(t, 199, back.Entries[0].Out)

		require.Equal(t, "front", front.ID)
		require.Nil(t, front.Blank)
		require.Len(t, front.Entries, 2)
		require.Equal(t, "front:/rec/front/GP010001.MP4", front.Entries[1].Producer)
		require.Equal(t, 99, front.Entries[0].Out)
		require.Equal(t, 49, front.Entries[1].Out)

		require.Equal(t, "inside", inside.ID)
		require.Nil(t, inside.Blank)

		var tracks []string
		for _, track := range doc.Tractor.Tracks {
			tracks = append(tracks, track.Producer)
		}
		require.Equal(t, []string{"front", "inside", "back"}, tracks)

		transitions := doc.Tractor.Transitions
		require.Len(t, transitions, 4)
		require.Equal(t, "composite", property(transitions[0].Properties, "mlt_service"))
		require.Equal(t, "1", property(transitions[0].Properties, "b_track"))
		require.Equal(t, "mix", property(transitions[1].Properties, "mlt_service"))
		require.Equal(t, "2", property(transitions[3].Properties, "b_track"))

		// Back is the longest playlist, 25 blank and 200 frames.
		require.Equal(t, 225, transitions[0].Out)
	})
	t.Run("length", func(t *testing.T) {
		raw, err := Document(testSession(), testDetails, Options{Length: 120, Layout: layout})
		require.NoError(t, err)
		doc := parseDocument(t, raw)

		back, front := doc.Playlists[0], doc.Playlists[1]
		require.Equal(t, 94, back.Entries[0].Out)
		require.Len(t, front.Entries, 2)
		require.Equal(t, 99, front.Entries[0].Out)
		require.Equal(t, 19, front.Entries[1].Out)
		require.Equal(t, 120, doc.Tractor.Transitions[0].Out)
	})
	t.Run("lengthSkipsEntries", func(t *testing.T) {
		raw, err := Document(testSession(), testDetails, Options{Length: 100, Layout: layout})
		require.NoError(t, err)
		doc := parseDocument(t, raw)
		require.Len(t, doc.Playlists[1].Entries, 1)
	})
	t.Run("singleTrack", func(t *testing.T) {
		raw, err := Document(testSession(), testDetails, Options{Layout: Layout{"back"}})
		require.NoError(t, err)
		doc := parseDocument(t, raw)
		require.Len(t, doc.Tractor.Tracks, 1)
		require.Empty(t, doc.Tractor.Transitions)
	})
	t.Run("escape", func(t *testing.T) {
		s := session.Session{Views: map[string]*session.View{
			"a&b": {Paths: []string{"/rec/<a&b>/GOPR0001.MP4"}},
		}}
		details := map[string]ffmpeg.VideoDetails{
			"/rec/<a&b>/GOPR0001.MP4": {Frames: 10, FPS: 30},
		}
		raw, err := Document(s, details, Options{Layout: Layout{"a&b"}})
		require.NoError(t, err)
		doc := parseDocument(t, raw)
		require.Equal(t, "/rec/<a&b>/GOPR0001.MP4", property(doc.Producers[0].Properties, "resource"))
		require.Equal(t, "a&b", doc.Tractor.Tracks[0].Producer)
	})
	t.Run("missingDetails", func(t *testing.T) {
		_, err := Document(testSession(), map[string]ffmpeg.VideoDetails{}, Options{Layout: layout})
		require.ErrorIs(t, err, ErrMissingDetails)
	})
}

func TestDetails(t *testing.T) {
	details, err := Details(context.Background(), testSession(), ffmock.NewProbe(testDetails))
	require.NoError(t, err)
	require.Equal(t, testDetails, details)

	t.Run("error", func(t *testing.T) {
		_, err := Details(context.Background(), testSession(), ffmock.NewProbe(nil))
		require.True(t, errors.Is(err, ffmock.ErrNotProbed))
	})
}
