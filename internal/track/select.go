/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package track

import "math"

// Special values for Prefs.RequestedID and Prefs.RequestedFFID.
const (
	Auto = -1
	Off  = -2
)

// BitratePref orders otherwise equal tracks by bitrate.
type BitratePref int

const (
	BitrateNone BitratePref = iota
	BitrateLowest
	BitrateHighest
)

// ParseBitratePref parses "none", "lowest" or "highest".
func ParseBitratePref(s string) (BitratePref, bool) {
	switch s {
	case "", "none":
		return BitrateNone, true
	case "lowest":
		return BitrateLowest, true
	case "highest":
		return BitrateHighest, true
	}
	return BitrateNone, false
}

// Prefs are the user preferences for one slot.
type Prefs struct {
	RequestedID   int
	RequestedFFID int
	Langs         []string
	AudioDisplay  bool
	Bitrate       BitratePref
}

// DefaultPrefs selects automatically with no language preference.
func DefaultPrefs() Prefs {
	return Prefs{RequestedID: Auto, RequestedFFID: Auto, AudioDisplay: true}
}

func matchLang(langs []string, lang string) int {
	if lang == "" {
		return 0
	}
	for i, l := range langs {
		if l == lang {
			return math.MaxInt32 - i
		}
	}
	return 0
}

// better reports whether a should be preferred over b.
func better(a, b *Track, p Prefs) bool {
	extA := a.External && !a.NoDefault
	extB := b.External && !b.NoDefault
	if extA != extB {
		return extA
	}
	if a.AutoLoaded != b.AutoLoaded {
		return !a.AutoLoaded
	}
	if la, lb := matchLang(p.Langs, a.Lang), matchLang(p.Langs, b.Lang); la != lb {
		return la > lb
	}
	if a.Default != b.Default {
		return a.Default
	}
	if a.AttachedPicture != b.AttachedPicture {
		return !a.AttachedPicture
	}
	if p.Bitrate != BitrateNone && a.Bitrate > 0 && b.Bitrate > 0 && a.Bitrate != b.Bitrate {
		if p.Bitrate == BitrateLowest {
			return a.Bitrate < b.Bitrate
		}
		return a.Bitrate > b.Bitrate
	}
	return a.ID <= b.ID
}

// Pick returns the index in candidates of the best track of typ, or -1.
// Candidates of other types are ignored. The result depends only on the
// arguments.
func Pick(candidates []Track, typ Type, p Prefs) int {
	tid, ffid := p.RequestedID, p.RequestedFFID
	if ffid != Auto {
		tid = Auto
	}
	if tid == Off || ffid == Off {
		return -1
	}

	pick := -1
	for i := range candidates {
		t := &candidates[i]
		if t.Type != typ {
			continue
		}
		if ffid >= 0 && t.FFIndex == ffid {
			return i
		}
		if tid >= 0 && t.ID == tid {
			return i
		}
		if pick < 0 || better(t, &candidates[pick], p) {
			pick = i
		}
	}
	if pick < 0 {
		return -1
	}

	t := &candidates[pick]
	fallback := typ == Video || typ == Audio
	if !fallback && !(t.External && !t.NoDefault) && matchLang(p.Langs, t.Lang) == 0 && !t.Default {
		return -1
	}
	if t.AttachedPicture && !p.AudioDisplay {
		return -1
	}
	return pick
}

// Select picks a track for slot (order, typ), skipping tracks already
// selected in another slot. It does not change the selection.
func (s *Set) Select(order int, typ Type, p Prefs) Ref {
	candidates := make([]Track, 0, len(s.tracks))
	refs := make([]Ref, 0, len(s.tracks))
	for i, t := range s.tracks {
		if t.Type != typ {
			continue
		}
		r := Ref(i)
		inOther := false
		for o := 0; o < NumOrders; o++ {
			if o != order && s.current[o][typ] == r {
				inOther = true
			}
		}
		if inOther {
			continue
		}
		candidates = append(candidates, t)
		refs = append(refs, r)
	}
	idx := Pick(candidates, typ, p)
	if idx < 0 {
		return NoTrack
	}
	return refs[idx]
}
