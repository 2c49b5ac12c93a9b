// Package truestate models the simulator's shared hidden ground-truth
// state as a context with snapshot/restore, per the re-architecture
// guidance, rather than a process-wide singleton.
package truestate

import "gonum.org/v1/gonum/mat"

// State is the mutable hidden true state shared by the particle loop in
// chooseAction and every controller invocation it samples.
type State struct {
	value *mat.VecDense
}

// New constructs a State holding v (not cloned; callers that need to keep
// v independent should clone before calling New).
func New(v *mat.VecDense) *State {
	return &State{value: v}
}

// Get returns the current hidden state.
func (s *State) Get() *mat.VecDense {
	return s.value
}

// Set installs v as the current hidden state.
func (s *State) Set(v *mat.VecDense) {
	s.value = v
}

// Snapshot returns a deep copy of the current hidden state, to be passed to
// Restore later. chooseAction calls this once on entry.
func (s *State) Snapshot() *mat.VecDense {
	clone := mat.NewVecDense(s.value.Len(), nil)
	clone.CloneFromVec(s.value)
	return clone
}

// Restore reinstates a previously captured snapshot. chooseAction calls
// this on every exit path, normal or exceptional.
func (s *State) Restore(snapshot *mat.VecDense) {
	s.value = snapshot
}
