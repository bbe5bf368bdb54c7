package app

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrInboxFull      = errors.New("control inbox is full")
	ErrUnknownControl = errors.New("unknown control event")
)

// ControlType names a UI control event.
type ControlType string

const (
	// ControlFocus reports the cursor lock state of the client window.
	ControlFocus  ControlType = "focus"
	ControlPause  ControlType = "pause"
	ControlResume ControlType = "resume"
)

// ControlEvent is one message from an external UI.
type ControlEvent struct {
	Type   ControlType `json:"type"`
	Locked bool        `json:"locked,omitempty"`
}

func (e ControlEvent) Validate() error {
	switch e.Type {
	case ControlFocus, ControlPause, ControlResume:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, e.Type)
	}
}

// Inbox is the bounded queue between UI producers and the tick loop. Push
// never blocks; the control system drains it once per tick.
type Inbox struct {
	ch      chan ControlEvent
	dropped atomic.Uint64
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = 1
	}
	return &Inbox{ch: make(chan ControlEvent, size)}
}

func (i *Inbox) Push(ev ControlEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	select {
	case i.ch <- ev:
		return nil
	default:
		i.dropped.Add(1)
		return ErrInboxFull
	}
}

// Drain returns every queued event without waiting for more.
func (i *Inbox) Drain() []ControlEvent {
	var out []ControlEvent
	for {
		select {
		case ev := <-i.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (i *Inbox) Len() int { return len(i.ch) }

// Dropped counts events rejected because the inbox was full.
func (i *Inbox) Dropped() uint64 { return i.dropped.Load() }
