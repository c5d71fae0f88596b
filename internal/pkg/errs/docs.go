// Package errs holds the typed errors shared by the domain, use cases and
// adapters of the last-mile delivery service.
//
//   - ValueIsRequiredError   a mandatory value is missing
//   - ValueIsInvalidError    a value is malformed
//   - ValueIsOutOfRangeError a value falls outside its bounds
//   - ObjectNotFoundError    a lookup found nothing
//   - WriteConflictError     another writer changed the aggregate first
//
// Every type pairs a struct carrying the details with a sentinel returned by
// Unwrap, so callers classify with errors.Is(err, ErrValueIsInvalid) and read
// details with errors.As. Constructors come in a plain and a WithCause form;
// the cause is printed but not unwrapped.
package errs
