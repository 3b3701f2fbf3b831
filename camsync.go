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

package camsync

import (
	"context"
	"errors"
	"fmt"
	"io"

	"camsync/pkg/correction"
	"camsync/pkg/ffmpeg"
	"camsync/pkg/hilight"
	"camsync/pkg/log"
	"camsync/pkg/render"
	"camsync/pkg/segment"
	"camsync/pkg/session"
	"camsync/pkg/storage"

	"gopkg.in/yaml.v2"
)

// App ties the pipeline together.
type App struct {
	Env    *storage.ConfigEnv
	Logger *log.Logger

	readTags storage.ReadTagsFunc
	probe    ffmpeg.ProbeFunc
}

// NewApp returns a new app.
func NewApp(env *storage.ConfigEnv, logger *log.Logger) *App {
	return &App{
		Env:      env,
		Logger:   logger,
		readTags: hilight.ReadFile,
		probe:    ffmpeg.New(env.FFprobeBin).Probe,
	}
}

// ErrNoCameras no camera directories.
var ErrNoCameras = errors.New("no camera directories")

// Assemble finds the recordings of every camera, groups them into
// sessions and saves the sessions.
func (a *App) Assemble(ctx context.Context) ([]session.Session, error) {
	if len(a.Env.Cameras) == 0 {
		return nil, ErrNoCameras
	}

	recordings, err := storage.Crawl(a.Env.Cameras, a.Env.Pattern)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}
	a.Logger.Info().Src("assemble").Msgf("found %d recordings (%v)",
		len(recordings), storage.FormatSize(storage.TotalSize(recordings)))

	readTags, closeCache, err := a.tagReader()
	if err != nil {
		return nil, err
	}
	defer closeCache()

	segments := make([]*segment.Segment, 0, len(recordings))
	for _, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tags := a.recordingTags(rec, readTags)
		if tags == nil {
			tags = []uint32{}
		}

		seg, err := segment.New(rec.Path, rec.Camera, tags)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	set := segment.NewSet(segments)
	if duplicates := set.LinkChains(); duplicates != 0 {
		a.Logger.Warn().Src("chain").
			Msgf("%d segments have more than one next part, using the last", duplicates)
	}

	pairs := set.Match()
	a.Logger.Info().Src("match").Msgf("%d matches", pairs)

	corrections, err := correction.Load(a.Env.Corrections)
	if err != nil {
		return nil, err
	}
	if err := correction.Apply(set, corrections); err != nil {
		return nil, err
	}
	if len(corrections) != 0 {
		a.Logger.Info().Src("match").Msgf("applied %d corrections", len(corrections))
	}

	for _, id := range set.Unmatched() {
		seg := set.Get(id)
		a.Logger.Warn().Src("match").Camera(seg.Camera).Msgf("%v: no synced matches", seg.Filename)
	}

	sessions, conflicts := session.Build(set, session.Options{
		ReferenceCamera: a.Env.ReferenceCamera,
	})
	for _, c := range conflicts {
		seg := set.Get(c.Segment)
		a.Logger.Warn().Src("session").Camera(seg.Camera).
			Msgf("%v: camera already in the session of %v", seg.Filename, set.Get(c.Start))
	}
	a.logUnresolved(sessions)

	if err := session.Save(a.Env.Sessions, sessions); err != nil {
		return nil, err
	}
	a.Logger.Info().Src("assemble").Msgf("saved %d sessions to %v", len(sessions), a.Env.Sessions)

	return sessions, nil
}

// tagReader returns the cached reader if the cache is enabled.
func (a *App) tagReader() (storage.ReadTagsFunc, func(), error) {
	if a.Env.CacheFile == storage.Disabled {
		return a.readTags, func() {}, nil
	}

	cache := storage.NewTagCache(a.Env.CacheFile, a.readTags)
	if err := cache.Init(); err != nil {
		return nil, nil, err
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			a.Logger.Error().Src("cache").Msgf("close: %v", err)
		}
	}

	readTags := func(path string) ([]uint32, error) {
		tags, hit, err := cache.Tags(path)
		if hit {
			a.Logger.Debug().Src("cache").Msgf("%v: cached", path)
		}
		return tags, err
	}
	return readTags, closeCache, nil
}

// recordingTags logs read errors and returns nil tags for them.
func (a *App) recordingTags(rec storage.Recording, readTags storage.ReadTagsFunc) []uint32 {
	tags, err := readTags(rec.Path)
	if err != nil {
		a.Logger.Warn().Src("tags").Camera(rec.Camera).Msgf("%v: %v", rec.Path, err)
		return nil
	}
	if len(tags) == 0 {
		a.Logger.Debug().Src("tags").Camera(rec.Camera).Msgf("%v: no tags", rec.Path)
		return tags
	}
	a.Logger.Debug().Src("tags").Camera(rec.Camera).Msgf("%v: %d tags", rec.Path, len(tags))
	return tags
}

func (a *App) logUnresolved(sessions []session.Session) {
	for i, s := range sessions {
		if len(s.Views) < 2 {
			continue
		}
		for _, camera := range s.Cameras() {
			if s.Views[camera].Offset == nil {
				a.Logger.Warn().Src("session").Camera(camera).
					Msgf("session %d: no tags, offset unresolved", i)
			}
		}
	}
}

// Session returns the saved session at index.
func (a *App) Session(index int) (session.Session, error) {
	sessions, err := session.Load(a.Env.Sessions)
	if err != nil {
		return session.Session{}, err
	}
	return session.Index(sessions, index)
}

// Show writes the saved session at index to w as YAML.
func (a *App) Show(index int, w io.Writer) error {
	s, err := a.Session(index)
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

// Render writes the MLT document of the saved session at index to w.
// The configured layout is used if opts has none.
func (a *App) Render(ctx context.Context, index int, opts render.Options, w io.Writer) error {
	s, err := a.Session(index)
	if err != nil {
		return err
	}

	if len(opts.Layout) == 0 {
		layout, err := render.ParseLayout(a.Env.Layout)
		if err != nil {
			return err
		}
		opts.Layout = layout
	}

	details, err := render.Details(ctx, s, a.probe)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	doc, err := render.Document(s, details, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(doc); err != nil {
		return err
	}

	a.Logger.Info().Src("render").Msgf("rendered session %d", index)
	return nil
}

// Logs queries the log database.
func (a *App) Logs(q log.Query) ([]log.Log, error) {
	if a.Env.LogDB == storage.Disabled {
		return nil, ErrLogDBDisabled
	}

	logDB := log.NewDB(a.Env.LogDB)
	if err := logDB.Init(); err != nil {
		return nil, err
	}
	defer logDB.Close()

	return logDB.Query(q)
}

// ErrLogDBDisabled log database is disabled.
var ErrLogDBDisabled = errors.New("log database is disabled")
