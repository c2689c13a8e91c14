// Package nav carries a confirmed selection to the screen that consumes it.
package nav

import (
	"errors"
	"strings"
	"sync"
)

// RoutePoints is the collection points screen that receives the selection.
const RoutePoints = "Points"

// Params is the payload handed to the destination.
type Params struct {
	UF   string `json:"uf"`
	City string `json:"city"`
}

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(route string, params Params) error
}

// Transition is a recorded navigation.
type Transition struct {
	Route  string `json:"route"`
	Params Params `json:"params"`
}

// Handoff records the last navigation so the caller can forward it once the
// terminal UI has exited.
type Handoff struct {
	mu   sync.Mutex
	last Transition
	done bool
}

func NewHandoff() *Handoff {
	return &Handoff{}
}

func (h *Handoff) Navigate(route string, params Params) error {
	route = strings.TrimSpace(route)
	if route == "" {
		return errors.New("navigation route is required")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = Transition{Route: route, Params: params}
	h.done = true
	return nil
}

// Result returns the last navigation and whether one happened.
func (h *Handoff) Result() (Transition, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.done
}
