package services

import (
	"errors"
	"fmt"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/guard"
)

var ErrPriorityTableIsNotConstructed = errors.New(
	"PriorityTable must be created via NewPriorityTable or DefaultPriorityTable")

// PriorityTable holds the two per-priority factors used by route planning:
//   - ETA multiplier: scales travel minutes (urgent work queues less)
//   - selection weight: scales distance when choosing the next stop
//
// Both are heuristics. Neither changes reported distances.
type PriorityTable struct {
	etaMultipliers   map[delivery.Priority]float64
	selectionWeights map[delivery.Priority]float64
	guard            guard.ConstructorGuard
}

// DefaultETAMultipliers returns LOW=1.5, NORMAL=1.0, HIGH=0.7, CRITICAL=0.5.
func DefaultETAMultipliers() map[delivery.Priority]float64 {
	return map[delivery.Priority]float64{
		delivery.PriorityLow:      1.5,
		delivery.PriorityNormal:   1.0,
		delivery.PriorityHigh:     0.7,
		delivery.PriorityCritical: 0.5,
	}
}

// DefaultSelectionWeights returns CRITICAL=0.5, HIGH=0.75, NORMAL=LOW=1.0.
func DefaultSelectionWeights() map[delivery.Priority]float64 {
	return map[delivery.Priority]float64{
		delivery.PriorityLow:      1.0,
		delivery.PriorityNormal:   1.0,
		delivery.PriorityHigh:     0.75,
		delivery.PriorityCritical: 0.5,
	}
}

// DefaultPriorityTable combines the default multipliers and weights.
func DefaultPriorityTable() PriorityTable {
	table, err := NewPriorityTable(DefaultETAMultipliers(), DefaultSelectionWeights())
	if err != nil {
		panic(fmt.Sprintf("default priority table is inconsistent: %v", err))
	}
	return table
}

// NewPriorityTable copies both maps. Every known priority must be present
// with a positive factor.
func NewPriorityTable(etaMultipliers, selectionWeights map[delivery.Priority]float64) (PriorityTable, error) {
	eta, etaErr := copyFactors("eta multiplier", etaMultipliers)
	weights, weightErr := copyFactors("selection weight", selectionWeights)
	if err := errors.Join(etaErr, weightErr); err != nil {
		return PriorityTable{}, err
	}
	return PriorityTable{
		etaMultipliers:   eta,
		selectionWeights: weights,
		guard:            guard.NewConstructorGuard(),
	}, nil
}

func (t PriorityTable) Validate() error {
	return t.guard.Validate(ErrPriorityTableIsNotConstructed)
}

// ETAMultiplier returns the factor for p, or 1.0 for unknown priorities.
func (t PriorityTable) ETAMultiplier(p delivery.Priority) float64 {
	if m, ok := t.etaMultipliers[p]; ok {
		return m
	}
	return 1.0
}

// SelectionWeight returns the factor for p, or 1.0 for unknown priorities.
func (t PriorityTable) SelectionWeight(p delivery.Priority) float64 {
	if w, ok := t.selectionWeights[p]; ok {
		return w
	}
	return 1.0
}

func copyFactors(name string, in map[delivery.Priority]float64) (map[delivery.Priority]float64, error) {
	out := make(map[delivery.Priority]float64, len(in))
	var problems []error
	for _, p := range delivery.AllPriorities() {
		v, ok := in[p]
		switch {
		case !ok:
			problems = append(problems, errs.NewValueIsRequiredError(fmt.Sprintf("%s for %s", name, p)))
		case !(v > 0):
			problems = append(problems, errs.NewValueIsOutOfRangeError(fmt.Sprintf("%s for %s", name, p), v, "> 0", "+Inf"))
		default:
			out[p] = v
		}
	}
	for p := range in {
		if !p.IsValid() {
			problems = append(problems, errs.NewValueIsInvalidErrorWithCause(name, fmt.Errorf("%d is not a valid priority", p)))
		}
	}
	return out, errors.Join(problems...)
}
