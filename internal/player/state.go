/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package player

import (
	"errors"
	"fmt"

	"github.com/friendsincode/playcore/internal/telemetry"
)

// ErrInvalidTransition indicates an invalid lifecycle transition was attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// State is the per-file lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunningLoadHooks
	StateOpeningStream
	StateOpeningDemuxer
	StateLoadingTimeline
	StateSelectingTracks
	StateInitializingDecoders
	StatePlaying
	StateRunningUnloadHooks
	StateTerminated
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateRunningLoadHooks:     "running-load-hooks",
	StateOpeningStream:        "opening-stream",
	StateOpeningDemuxer:       "opening-demuxer",
	StateLoadingTimeline:      "loading-timeline",
	StateSelectingTracks:      "selecting-tracks",
	StateInitializingDecoders: "initializing-decoders",
	StatePlaying:              "playing",
	StateRunningUnloadHooks:   "running-unload-hooks",
	StateTerminated:           "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Every failing step moves to RunningUnloadHooks; load hooks asking to stop
// skip straight to Terminated.
var validTransitions = map[State][]State{
	StateIdle:                 {StateRunningLoadHooks},
	StateRunningLoadHooks:     {StateOpeningStream, StateTerminated},
	StateOpeningStream:        {StateOpeningDemuxer, StateRunningUnloadHooks},
	StateOpeningDemuxer:       {StateLoadingTimeline, StateRunningUnloadHooks},
	StateLoadingTimeline:      {StateSelectingTracks, StateRunningUnloadHooks},
	StateSelectingTracks:      {StateInitializingDecoders, StateRunningUnloadHooks},
	StateInitializingDecoders: {StatePlaying, StateRunningUnloadHooks},
	StatePlaying:              {StateRunningUnloadHooks, StateOpeningDemuxer},
	StateRunningUnloadHooks:   {StateTerminated},
	StateTerminated:           {StateIdle},
}

func isValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// transition moves the lifecycle to next. An invalid transition is a
// programming error; it panics in strict mode and is logged otherwise.
func (c *Core) transition(next State) error {
	from := c.state
	if !isValidTransition(from, next) {
		err := fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
		c.logger.Error().Err(err).Msg("lifecycle")
		if c.opts.Strict {
			panic(err)
		}
		return err
	}
	c.state = next
	telemetry.LifecycleTransitions.WithLabelValues(from.String(), next.String()).Inc()
	c.logger.Debug().Str("from", from.String()).Str("to", next.String()).Msg("state transition")
	c.propertyChanged("lifecycle-state")
	return nil
}
