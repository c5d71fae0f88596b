// Package guard provides ConstructorGuard, a marker embedded in value objects,
// entities and commands to tell constructed instances apart from zero values.
package guard

import "errors"

// ErrDefaultConstructorGuard is returned by Validate when no specific error is supplied.
var ErrDefaultConstructorGuard = errors.New("object must be created via its constructor")

// ConstructorGuard is true only for values built through NewConstructorGuard.
//
// Example usage:
//
//	type TimeWindow struct {
//	    start, end time.Time
//	    guard      guard.ConstructorGuard
//	}
//
//	func (w TimeWindow) Validate() error {
//	    return w.guard.Validate(ErrTimeWindowIsNotConstructed)
//	}
type ConstructorGuard struct {
	isConstructed bool
}

// NewConstructorGuard marks the enclosing object as constructed.
func NewConstructorGuard() ConstructorGuard {
	return ConstructorGuard{isConstructed: true}
}

// Validate returns validationError (or ErrDefaultConstructorGuard when it is nil)
// if the guard is a zero value, and nil otherwise.
func (g ConstructorGuard) Validate(validationError error) error {
	if validationError == nil {
		validationError = ErrDefaultConstructorGuard
	}
	if !g.isConstructed {
		return validationError
	}
	return nil
}
