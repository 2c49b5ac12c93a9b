package model

import "errors"

// Sentinel errors for the error kinds named in the error handling design.
// Packages wrap these with fmt.Errorf("...: %w", ...) rather than inventing
// ad hoc string-matched error kinds.
var (
	ErrCollision           = errors.New("collision: true state invalid after step")
	ErrDeviation           = errors.New("deviation: belief mean drifted beyond threshold")
	ErrHorizonExhausted    = errors.New("horizon exhausted before reaching target")
	ErrActionInfeasible    = errors.New("action infeasible: no legal neighbor")
	ErrCostToGoUnavailable = errors.New("cost-to-go unavailable: no baseline feedback")
	ErrConfigMissing       = errors.New("required configuration missing or invalid")
)
