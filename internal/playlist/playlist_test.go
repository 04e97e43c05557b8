/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import "testing"

func urls(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.URL
	}
	return out
}

func TestInsertAfter(t *testing.T) {
	p := New()
	a := p.Append("a")
	p.Append("d")

	added := p.InsertAfter(a, []string{"b", "c"})
	if len(added) != 2 || added[0].ID == added[1].ID {
		t.Fatalf("added = %+v", added)
	}
	got := urls(p.Entries())
	want := []string{"a", "b", "c", "d"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entries = %v, want %v", got, want)
		}
	}

	p.InsertAfter(nil, []string{"z"})
	if p.First().URL != "z" {
		t.Fatalf("insert at front failed: %v", urls(p.Entries()))
	}
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name      string
		loop      int
		current   int
		direction int
		short     []int
		failed    []int
		want      string
	}{
		{name: "forward", loop: 1, current: 0, direction: 1, want: "b"},
		{name: "end without loop", loop: 1, current: 2, direction: 1, want: ""},
		{name: "end with loop wraps", loop: LoopInfinite, current: 2, direction: 1, want: "a"},
		{name: "back skips short entries", loop: 1, current: 2, direction: -1, short: []int{1}, want: "a"},
		{name: "back from first goes first when all short", loop: 1, current: 1, direction: -1, short: []int{0}, want: "a"},
		{name: "back with loop wraps to last", loop: LoopInfinite, current: 0, direction: -1, want: "c"},
		{name: "loop stops when all failed", loop: LoopInfinite, current: 2, direction: 1, failed: []int{0, 1, 2}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.Loop = tt.loop
			for _, u := range []string{"a", "b", "c"} {
				p.Append(u)
			}
			for _, i := range tt.short {
				p.At(i).PlaybackShort = true
			}
			for _, i := range tt.failed {
				p.At(i).InitFailed = true
			}
			p.SetCurrent(p.At(tt.current))

			got := ""
			if e := p.Advance(tt.direction, false); e != nil {
				got = e.URL
			}
			if got != tt.want {
				t.Fatalf("Advance = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdvanceConsumesLoopCount(t *testing.T) {
	p := New()
	p.Loop = 2
	p.Append("a")
	p.SetCurrent(p.First())

	if e := p.Advance(1, false); e == nil || e.URL != "a" {
		t.Fatal("second pass should start")
	}
	if p.Loop != 1 {
		t.Fatalf("Loop = %d", p.Loop)
	}
	if e := p.Advance(1, false); e != nil {
		t.Fatal("no third pass")
	}
}

func TestClearExceptCurrent(t *testing.T) {
	p := New()
	p.Append("a")
	b := p.Append("b")
	p.Append("c")
	p.SetCurrent(b)

	p.ClearExceptCurrent()
	if p.Len() != 1 || p.Current() != b {
		t.Fatalf("entries = %v", urls(p.Entries()))
	}
	p.Remove(b)
	if p.Current() != nil || p.Len() != 0 {
		t.Fatal("Remove left the current entry")
	}
}
