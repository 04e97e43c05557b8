/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/playcore/internal/apierr"
	"github.com/friendsincode/playcore/internal/client"
	"github.com/friendsincode/playcore/internal/decoder"
	"github.com/friendsincode/playcore/internal/demux"
	"github.com/friendsincode/playcore/internal/events"
	"github.com/friendsincode/playcore/internal/stream"
	"github.com/friendsincode/playcore/internal/track"
)

const avManifest = `
duration: 1
tracks:
  - type: video
    codec: h264
  - type: audio
    codec: aac
    lang: en
`

type memStreams struct {
	mu    sync.Mutex
	files map[string]string
	opens int
}

func (m *memStreams) Open(_ context.Context, url string) (*stream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.files[url]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", url)
	}
	m.opens++
	return stream.New(url, "", []byte(body)), nil
}

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type chainLog struct {
	mu        sync.Mutex
	inits     map[string]int
	teardowns int
	live      int
}

func (l *chainLog) initsFor(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inits[source]
}

func (l *chainLog) liveChains() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.live
}

// testChain rejects codec "broken" the way a failing output would.
type testChain struct {
	log  *chainLog
	typ  track.Type
	ref  track.Ref
	live bool
}

func (c *testChain) Init(ref track.Ref, t track.Track) error {
	if t.Codec == "broken" {
		if c.typ == track.Audio {
			return fmt.Errorf("audio: %w", apierr.AOInitFailed)
		}
		return fmt.Errorf("video: %w", apierr.VOInitFailed)
	}
	c.log.mu.Lock()
	if c.log.inits == nil {
		c.log.inits = make(map[string]int)
	}
	c.log.inits[t.Source]++
	c.log.live++
	c.log.mu.Unlock()
	c.ref = ref
	c.live = true
	return nil
}

func (c *testChain) Teardown() {
	if !c.live {
		return
	}
	c.log.mu.Lock()
	c.log.teardowns++
	c.log.live--
	c.log.mu.Unlock()
	c.live = false
	c.ref = track.NoTrack
}

func (c *testChain) Ref() track.Ref {
	if !c.live {
		return track.NoTrack
	}
	return c.ref
}

func (l *chainLog) factory() decoder.Factory {
	return func(_ int, typ track.Type) decoder.Chain {
		return &testChain{log: l, typ: typ}
	}
}

type memResume struct {
	mu  sync.Mutex
	pos map[string]float64
}

func (m *memResume) Load(_ context.Context, url string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pos[url]
	return p, ok, nil
}

func (m *memResume) Save(_ context.Context, url string, pos float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos[url] = pos
	return nil
}

func (m *memResume) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pos, url)
	return nil
}

type harness struct {
	core    *Core
	client  *client.Handle
	streams *memStreams
	chains  *chainLog
}

func newHarness(t *testing.T, opts Options, files map[string]string, resume ResumeStore) *harness {
	t.Helper()
	opts.TickInterval = time.Millisecond
	streams := &memStreams{files: files}
	chains := &chainLog{}
	clock := &stepClock{now: time.Unix(1700000000, 0), step: 100 * time.Millisecond}
	c := New(opts, Deps{
		Streams:  streams,
		Demuxers: demux.NewOpener(zerolog.Nop()),
		Chains:   chains.factory(),
		Resume:   resume,
		Now:      clock.Now,
	}, zerolog.Nop())
	h, err := c.Clients().Register("test")
	if err != nil {
		t.Fatal(err)
	}
	return &harness{core: c, client: h, streams: streams, chains: chains}
}

// start runs the core in the background and stops it when the test ends.
func (hs *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hs.core.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// do runs fn on the core goroutine.
func (hs *harness) do(t *testing.T, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.core.Dispatch().Run(ctx, fn); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
}

func (hs *harness) command(t *testing.T, argv ...string) {
	t.Helper()
	var err error
	hs.do(t, func() { _, err = hs.core.Command(hs.client, argv) })
	if err != nil {
		t.Fatalf("%v: %v", argv, err)
	}
}

// waitFor returns the first event of kind, failing after a few seconds.
func waitFor(t *testing.T, h *client.Handle, kind events.Kind) events.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ev := h.WaitEvent(100 * time.Millisecond)
		if ev.Kind == kind {
			return ev
		}
		if ev.Kind == events.Shutdown {
			t.Fatalf("shutdown while waiting for %s", kind)
		}
	}
	t.Fatalf("timed out waiting for %s", kind)
	return events.Event{}
}

// drain returns every queued event up to and including shutdown.
func drain(h *client.Handle) []events.Event {
	var out []events.Event
	for {
		ev := h.WaitEvent(0)
		if ev.Kind == events.None {
			return out
		}
		out = append(out, ev)
		if ev.Kind == events.Shutdown {
			return out
		}
	}
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

// hasSequence reports whether want appears in got in order.
func hasSequence(got []events.Kind, want ...events.Kind) bool {
	i := 0
	for _, k := range got {
		if i < len(want) && k == want[i] {
			i++
		}
	}
	return i == len(want)
}

func endFiles(evs []events.Event) []events.EndFileData {
	var out []events.EndFileData
	for _, ev := range evs {
		if data, ok := ev.Data.(events.EndFileData); ok {
			out = append(out, data)
		}
	}
	return out
}
