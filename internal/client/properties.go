/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package client

import (
	"reflect"

	"github.com/friendsincode/playcore/internal/events"
)

// observedProperty tracks one observe_property registration.
//
// changeTS is bumped whenever the property may have changed, valueTS is the
// changeTS the cached value was read at, and retTS is the valueTS last
// returned to the client. A change event is due when
// valueTS == changeTS && retTS != valueTS.
type observedProperty struct {
	name     string
	userdata uint64
	mask     events.Mask

	changeTS uint64
	valueTS  uint64
	retTS    uint64

	value          any
	valid          bool
	waitingForHook bool
	removed        bool
}

func newObservedProperty(name string, userdata uint64, mask events.Mask) *observedProperty {
	// changeTS starts ahead so the first refresh always yields an event.
	return &observedProperty{name: name, userdata: userdata, mask: mask, changeTS: 1}
}

func (p *observedProperty) due() bool {
	return p.valueTS == p.changeTS && p.retTS != p.valueTS
}

// update stores a freshly read value taken at snapshot ts and reports
// whether a change event must be produced.
func (p *observedProperty) update(ts uint64, value any, valid bool) bool {
	changed := p.valueTS == 0 || p.valid != valid || (valid && !reflect.DeepEqual(p.value, value))
	if valid {
		p.value = value
	} else {
		p.value = nil
	}
	p.valid = valid

	produce := true
	if !changed && p.retTS == p.valueTS {
		// Nothing new since the last returned value.
		p.retTS = ts
		p.waitingForHook = false
		produce = false
	}
	p.valueTS = ts
	return produce
}

func (p *observedProperty) event() events.Event {
	p.retTS = p.valueTS
	p.waitingForHook = false
	return events.Event{
		Kind:          events.PropertyChange,
		ReplyUserdata: p.userdata,
		Data:          events.PropertyData{Name: p.name, Value: p.value, Valid: p.valid},
	}
}
