// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType identifies a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventScroll
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	Scroll float64 // pixels; positive scrolls down the page
}

// Scroll distances in pixels.
type Scroll struct {
	Wheel float64 // per wheel notch
	Line  float64 // arrow keys
}

// DefaultScroll matches typical browser wheel and arrow-key steps.
var DefaultScroll = Scroll{Wheel: 120, Line: 40}

// Input handles all input processing.
type Input struct {
	scroll Scroll
	events []Event
}

// New creates a new input handler.
func New(scroll Scroll) *Input {
	if scroll.Wheel <= 0 {
		scroll.Wheel = DefaultScroll.Wheel
	}
	if scroll.Line <= 0 {
		scroll.Line = DefaultScroll.Line
	}
	return &Input{
		scroll: scroll,
		events: make([]Event, 0, 16),
	}
}

// Update polls SDL events and converts them to viewer events.
// Returns true if the application should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if i.translate(event) {
			return true
		}
	}
	return false
}

func (i *Input) translate(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.events = append(i.events, Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			})
		}

	case *sdl.MouseWheelEvent:
		dy := float64(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			dy = -dy
		}
		if dy != 0 {
			// wheel up is negative scroll (towards the top)
			i.events = append(i.events, Event{Type: EventScroll, Scroll: -dy * i.scroll.Wheel})
		}

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN {
			break
		}
		if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
			i.events = append(i.events, Event{Type: EventQuit})
			return true
		}
		i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// Action is a scroll request derived from a key.
type Action int

const (
	ActionNone Action = iota
	ActionBy          // relative, see KeyScroll's delta
	ActionTop
	ActionBottom
)

// KeyScroll maps navigation keys to scroll actions. page is the height of
// one page in pixels.
func (i *Input) KeyScroll(key sdl.Scancode, page float64) (Action, float64) {
	switch key {
	case sdl.SCANCODE_DOWN:
		return ActionBy, i.scroll.Line
	case sdl.SCANCODE_UP:
		return ActionBy, -i.scroll.Line
	case sdl.SCANCODE_PAGEDOWN, sdl.SCANCODE_SPACE:
		return ActionBy, page
	case sdl.SCANCODE_PAGEUP:
		return ActionBy, -page
	case sdl.SCANCODE_HOME:
		return ActionTop, 0
	case sdl.SCANCODE_END:
		return ActionBottom, 0
	}
	return ActionNone, 0
}
