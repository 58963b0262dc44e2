package domain

import "net/http"

// Failure describes why a use case did not succeed.
type Failure struct {
	Kind    ErrorKind
	Message string
	Status  int
}

// Result is the outcome of a use case: either a value or a Failure, never both.
// The zero value is not a valid Result; build one with Ok, Created, Fail or FailWith.
type Result[T any] struct {
	value   T
	failure *Failure
	status  int
}

// Ok wraps a successful value with HTTP status 200.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value, status: http.StatusOK}
}

// Created wraps a successful value with HTTP status 201.
func Created[T any](value T) Result[T] {
	return Result[T]{value: value, status: http.StatusCreated}
}

// Fail builds a failed result whose status is derived from kind.
func Fail[T any](kind ErrorKind, message string) Result[T] {
	return FailWith[T](Failure{Kind: kind, Message: message})
}

// FailWith builds a failed result from an explicit Failure.
func FailWith[T any](f Failure) Result[T] {
	if f.Status == 0 {
		f.Status = f.Kind.Status()
	}
	if f.Kind == "" {
		f.Kind = KindInternal
	}
	return Result[T]{failure: &f, status: f.Status}
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool {
	return r.failure == nil
}

// Value returns the success value; it is the zero T for failures.
func (r Result[T]) Value() T {
	return r.value
}

// Failure returns the failure descriptor and true when the result failed.
func (r Result[T]) Failure() (Failure, bool) {
	if r.failure == nil {
		return Failure{}, false
	}
	return *r.failure, true
}

// Status returns the HTTP status hint for either branch.
func (r Result[T]) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Match dispatches on the result branch. Both handlers are required.
func Match[T, U any](r Result[T], onOk func(T) U, onFail func(Failure) U) U {
	if f, failed := r.Failure(); failed {
		return onFail(f)
	}
	return onOk(r.value)
}

// MapResult transforms the success value, forwarding failures unchanged.
func MapResult[T, U any](r Result[T], fn func(T) U) Result[U] {
	if f, failed := r.Failure(); failed {
		return FailWith[U](f)
	}
	return Result[U]{value: fn(r.value), status: r.Status()}
}
