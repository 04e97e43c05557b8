/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package track

import (
	"errors"
	"testing"
)

func TestPick(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Track
		typ        Type
		prefs      func(*Prefs)
		wantID     int
	}{
		{
			name: "language match outranks default flag",
			candidates: []Track{
				{Type: Audio, ID: 1, Lang: "en"},
				{Type: Audio, ID: 2, Lang: "fr", Default: true},
			},
			typ:    Audio,
			prefs:  func(p *Prefs) { p.Langs = []string{"fr", "en"} },
			wantID: 2,
		},
		{
			name: "earlier language wins",
			candidates: []Track{
				{Type: Audio, ID: 1, Lang: "fr", Default: true},
				{Type: Audio, ID: 2, Lang: "en"},
			},
			typ:    Audio,
			prefs:  func(p *Prefs) { p.Langs = []string{"en", "fr"} },
			wantID: 2,
		},
		{
			name:       "audio falls back to any track",
			candidates: []Track{{Type: Audio, ID: 5}},
			typ:        Audio,
			wantID:     5,
		},
		{
			name:       "subtitles are not picked just because they exist",
			candidates: []Track{{Type: Sub, ID: 1, Lang: "de"}},
			typ:        Sub,
			wantID:     0,
		},
		{
			name:       "default subtitle is picked",
			candidates: []Track{{Type: Sub, ID: 1}, {Type: Sub, ID: 2, Default: true}},
			typ:        Sub,
			wantID:     2,
		},
		{
			name: "external subtitle beats embedded",
			candidates: []Track{
				{Type: Sub, ID: 1, Default: true},
				{Type: Sub, ID: 2, External: true},
			},
			typ:    Sub,
			wantID: 2,
		},
		{
			name: "external no-default subtitle needs another reason",
			candidates: []Track{
				{Type: Sub, ID: 1, External: true, NoDefault: true},
			},
			typ:    Sub,
			wantID: 0,
		},
		{
			name: "explicit beats auto loaded",
			candidates: []Track{
				{Type: Audio, ID: 1, AutoLoaded: true, Default: true},
				{Type: Audio, ID: 2},
			},
			typ:    Audio,
			wantID: 2,
		},
		{
			name: "requested id wins outright",
			candidates: []Track{
				{Type: Video, ID: 1, Default: true},
				{Type: Video, ID: 2},
			},
			typ:    Video,
			prefs:  func(p *Prefs) { p.RequestedID = 2 },
			wantID: 2,
		},
		{
			name: "ff index overrides requested id",
			candidates: []Track{
				{Type: Video, ID: 1, FFIndex: 0},
				{Type: Video, ID: 2, FFIndex: 3},
			},
			typ:    Video,
			prefs:  func(p *Prefs) { p.RequestedID = 1; p.RequestedFFID = 3 },
			wantID: 2,
		},
		{
			name:       "off selects nothing",
			candidates: []Track{{Type: Audio, ID: 1}},
			typ:        Audio,
			prefs:      func(p *Prefs) { p.RequestedID = Off },
			wantID:     0,
		},
		{
			name: "cover art loses to real video",
			candidates: []Track{
				{Type: Video, ID: 1, AttachedPicture: true},
				{Type: Video, ID: 2},
			},
			typ:    Video,
			wantID: 2,
		},
		{
			name:       "cover art dropped without audio display",
			candidates: []Track{{Type: Video, ID: 1, AttachedPicture: true}},
			typ:        Video,
			prefs:      func(p *Prefs) { p.AudioDisplay = false },
			wantID:     0,
		},
		{
			name: "highest bitrate",
			candidates: []Track{
				{Type: Video, ID: 1, Bitrate: 800},
				{Type: Video, ID: 2, Bitrate: 3000},
			},
			typ:    Video,
			prefs:  func(p *Prefs) { p.Bitrate = BitrateHighest },
			wantID: 2,
		},
		{
			name: "lowest id breaks ties",
			candidates: []Track{
				{Type: Audio, ID: 3},
				{Type: Audio, ID: 1},
				{Type: Video, ID: 1},
			},
			typ:    Audio,
			wantID: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPrefs()
			if tt.prefs != nil {
				tt.prefs(&p)
			}
			idx := Pick(tt.candidates, tt.typ, p)
			got := 0
			if idx >= 0 {
				got = tt.candidates[idx].ID
			}
			if got != tt.wantID {
				t.Fatalf("picked id %d, want %d", got, tt.wantID)
			}

			// Same input, same answer.
			if again := Pick(tt.candidates, tt.typ, p); again != idx {
				t.Fatalf("second pick = %d, first = %d", again, idx)
			}
		})
	}
}

func TestSetSwitch(t *testing.T) {
	s := NewSet()
	a := s.Add(Track{Type: Sub, Lang: "en"})
	b := s.Add(Track{Type: Sub, Lang: "de"})
	v := s.Add(Track{Type: Video})

	if s.Get(a).ID != 1 || s.Get(b).ID != 2 || s.Get(v).ID != 1 {
		t.Fatal("ids are assigned per type")
	}

	if err := s.Switch(0, Sub, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Switch(1, Sub, a); !errors.Is(err, ErrTrackInUse) {
		t.Fatalf("double selection err = %v", err)
	}
	if err := s.Switch(1, Video, a); !errors.Is(err, ErrInvalidTrack) {
		t.Fatalf("type mismatch err = %v", err)
	}
	if err := s.Switch(1, Sub, b); err != nil {
		t.Fatal(err)
	}
	if !s.Get(a).Selected || !s.Get(b).Selected {
		t.Fatal("selected flags not set")
	}

	if err := s.Switch(0, Sub, NoTrack); err != nil {
		t.Fatal(err)
	}
	if s.Get(a).Selected {
		t.Fatal("deselected track keeps its flag")
	}

	// The secondary slot never offers the primary's track.
	if err := s.Switch(0, Sub, a); err != nil {
		t.Fatal(err)
	}
	if got := s.Select(1, Sub, Prefs{RequestedID: 1, RequestedFFID: Auto}); got != NoTrack {
		t.Fatalf("secondary slot picked in-use track %d", got)
	}

	s.Deselect(b)
	if s.Current(1, Sub) != NoTrack || s.Get(b).Selected {
		t.Fatal("Deselect left the slot populated")
	}

	s.Clear()
	if s.Len() != 0 || s.Current(0, Sub) != NoTrack {
		t.Fatal("Clear left state behind")
	}
}
