package graph

import (
	"errors"
	"fmt"
)

// ErrUnknownParameter is returned for float parameters an Animator does not
// declare.
var ErrUnknownParameter = errors.New("graph: unknown float parameter")

// Mover is the navigation carrier: movement speed, acceleration and turn
// rate in degrees per second.
type Mover struct {
	Speed        float64
	Acceleration float64
	TurnRate     float64
}

// Animator is the animation-playback carrier: a global playback speed plus
// a set of declared named float parameters.
type Animator struct {
	PlaybackSpeed float64

	order  []string
	params map[string]float64
}

// NewAnimator returns an Animator with the given playback speed.
func NewAnimator(playbackSpeed float64) *Animator {
	return &Animator{PlaybackSpeed: playbackSpeed, params: make(map[string]float64)}
}

// DeclareFloat adds (or resets) a named float parameter.
func (a *Animator) DeclareFloat(name string, v float64) {
	if a.params == nil {
		a.params = make(map[string]float64)
	}
	if _, ok := a.params[name]; !ok {
		a.order = append(a.order, name)
	}
	a.params[name] = v
}

// FloatParameters lists the declared float parameter names in declaration
// order.
func (a *Animator) FloatParameters() []string {
	return append([]string(nil), a.order...)
}

// Float returns the named parameter value.
func (a *Animator) Float(name string) (float64, error) {
	v, ok := a.params[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownParameter, name)
	}
	return v, nil
}

// SetFloat overwrites a declared parameter. Undeclared names fail.
func (a *Animator) SetFloat(name string, v float64) error {
	if _, ok := a.params[name]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownParameter, name)
	}
	a.params[name] = v
	return nil
}
