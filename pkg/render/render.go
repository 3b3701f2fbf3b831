// SPDX-License-Identifier: GPL-2.0-or-later

// Package render turns a session into an MLT document where the views
// are stacked as picture in picture.
package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"

	"camsync/pkg/ffmpeg"
	"camsync/pkg/session"
)

// Layout is the camera order from background to foreground.
type Layout []string

// ErrInvalidLayout invalid layout.
var ErrInvalidLayout = errors.New("invalid layout")

// ParseLayout parses layouts like "front:inside:back".
func ParseLayout(s string) (Layout, error) {
	cameras := strings.Split(s, ":")
	seen := make(map[string]struct{})
	for _, camera := range cameras {
		if camera == "" {
			return nil, fmt.Errorf("%w: empty camera: %q", ErrInvalidLayout, s)
		}
		if _, exist := seen[camera]; exist {
			return nil, fmt.Errorf("%w: duplicate camera %v: %q", ErrInvalidLayout, camera, s)
		}
		seen[camera] = struct{}{}
	}
	return cameras, nil
}

// Options render options.
type Options struct {
	// Maximum number of frames per track, 0 is unlimited.
	Length int
	Layout Layout
}

// ErrMissingDetails no video details for path.
var ErrMissingDetails = errors.New("missing video details")

// Details probes every file in the session.
func Details(
	ctx context.Context,
	s session.Session,
	probe ffmpeg.ProbeFunc,
) (map[string]ffmpeg.VideoDetails, error) {
	details := make(map[string]ffmpeg.VideoDetails)
	for _, camera := range s.Cameras() {
		for _, path := range s.Views[camera].Paths {
			d, err := probe(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", camera, err)
			}
			details[path] = d
		}
	}
	return details, nil
}

type producer struct {
	ID       string
	Resource string
}

type entry struct {
	Producer string
	Out      int
}

type playlist struct {
	ID      string
	Blank   int
	Entries []entry
}

type transition struct {
	Track    int
	Geometry string
}

type document struct {
	Producers   []producer
	Playlists   []playlist
	Tracks      []string
	Transitions []transition
	LastFrame   int
}

// Picture in picture positions of the second and third track.
var geometries = []string{
	"0=70%,70%:30%x30%:70; -1=70%,70%:30%x30%:70; ",
	"0=0%,70%:30%x30%:70; -1=0%,70%:30%x30%:70; ",
}

// Document returns the MLT document of s.
func Document(s session.Session, details map[string]ffmpeg.VideoDetails, opts Options) ([]byte, error) {
	var doc document
	var longest int
	for _, camera := range s.Cameras() {
		view := s.Views[camera]
		p, frames, err := newPlaylist(camera, view, details, opts.Length)
		if err != nil {
			return nil, err
		}
		for _, path := range view.Paths {
			doc.Producers = append(doc.Producers, producer{
				ID:       producerID(camera, path),
				Resource: path,
			})
		}
		doc.Playlists = append(doc.Playlists, p)
		if frames > longest {
			longest = frames
		}
	}

	for _, camera := range opts.Layout {
		if _, exist := s.Views[camera]; exist {
			doc.Tracks = append(doc.Tracks, camera)
		}
	}
	for i := 1; i < len(doc.Tracks) && i <= len(geometries); i++ {
		doc.Transitions = append(doc.Transitions, transition{
			Track:    i,
			Geometry: geometries[i-1],
		})
	}

	doc.LastFrame = opts.Length
	if doc.LastFrame == 0 {
		doc.LastFrame = longest
	}

	var b bytes.Buffer
	if err := documentTemplate.Execute(&b, doc); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}
	return b.Bytes(), nil
}

// newPlaylist returns the playlist and its length in frames.
func newPlaylist(
	camera string,
	view *session.View,
	details map[string]ffmpeg.VideoDetails,
	length int,
) (playlist, int, error) {
	p := playlist{ID: camera}
	if len(view.Paths) == 0 {
		return p, 0, nil
	}

	// The frame rate doesn't change within a chain.
	first, exist := details[view.Paths[0]]
	if !exist {
		return playlist{}, 0, fmt.Errorf("%w: %v", ErrMissingDetails, view.Paths[0])
	}
	if view.Offset != nil && *view.Offset > 0 && first.FPS > 0 {
		p.Blank = int(math.Round(float64(*view.Offset) / first.FrameDuration()))
	}

	frames := p.Blank
	for _, path := range view.Paths {
		d, exist := details[path]
		if !exist {
			return playlist{}, 0, fmt.Errorf("%w: %v", ErrMissingDetails, path)
		}
		n := d.Frames
		if length > 0 && n > length-frames {
			n = length - frames
		}
		if n <= 0 {
			continue
		}
		p.Entries = append(p.Entries, entry{
			Producer: producerID(camera, path),
			Out:      n - 1,
		})
		frames += n
	}
	return p, frames, nil
}

func producerID(camera string, path string) string {
	return camera + ":" + path
}

func escape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

var documentTemplate = template.Must(template.New("mlt").
	Funcs(template.FuncMap{"x": escape}).
	Parse(`<?xml version="1.0" ?>
<mlt>
{{- range .Producers }}
    <producer id="{{ x .ID }}">
        <property name="resource">{{ x .Resource }}</property>
    </producer>
{{- end }}
{{ range .Playlists }}
    <playlist id="{{ x .ID }}">
    {{- if .Blank }}
        <blank length="{{ .Blank }}"/>
    {{- end }}
    {{- range .Entries }}
        <entry producer="{{ x .Producer }}" in="0" out="{{ .Out }}"/>
    {{- end }}
    </playlist>
{{- end }}

    <tractor id="tractor0">
        <multitrack>
        {{- range .Tracks }}
            <track producer="{{ x . }}"/>
        {{- end }}
        </multitrack>
    {{- $last := .LastFrame }}
    {{- range .Transitions }}
        <transition in="0" out="{{ $last }}">
            <property name="mlt_service">composite</property>
            <property name="a_track">0</property>
            <property name="b_track">{{ .Track }}</property>
            <property name="progressive">1</property>
            <property name="geometry">{{ .Geometry }}</property>
            <property name="halign">centre</property>
            <property name="valign">centre</property>
            <property name="distort">0</property>
            <property name="fill">1</property>
        </transition>
        <transition in="0" out="{{ $last }}">
            <property name="mlt_service">mix</property>
            <property name="a_track">0</property>
            <property name="b_track">{{ .Track }}</property>
            <property name="combine">1</property>
            <property name="always_active">1</property>
        </transition>
    {{- end }}
    </tractor>
</mlt>
`))
