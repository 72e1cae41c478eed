// Package partial implements the accumulate-while-continuing pattern used
// throughout the build and load paths: rather than failing a whole batch
// on the first error, collect every value that succeeded alongside every
// error that occurred, and let the caller decide what "good enough" means.
package partial

import "errors"

// Partial accumulates successful values of type T and the errors
// encountered while producing the rest of the batch.
type Partial[T any] struct {
	Values []T
	Errors []error
}

// New returns an empty Partial, optionally pre-sizing Values for n
// expected successes.
func New[T any](n int) *Partial[T] {
	return &Partial[T]{Values: make([]T, 0, n)}
}

// Add records a successful value.
func (p *Partial[T]) Add(v T) {
	p.Values = append(p.Values, v)
}

// AddErr records a failure. err must not be nil.
func (p *Partial[T]) AddErr(err error) {
	if err == nil {
		return
	}
	p.Errors = append(p.Errors, err)
}

// Ok reports whether no errors were recorded.
func (p *Partial[T]) Ok() bool {
	return len(p.Errors) == 0
}

// Err folds Errors into a single error via errors.Join, or nil if there
// were none.
func (p *Partial[T]) Err() error {
	if len(p.Errors) == 0 {
		return nil
	}
	return errors.Join(p.Errors...)
}
