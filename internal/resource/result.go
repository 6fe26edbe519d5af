// Package resource holds the three-state Result that every repository
// operation publishes to the presentation layer.
package resource

import (
	"encoding/json"

	"myshop/internal/apperr"
)

type State int

const (
	StateLoading State = iota
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "invalid"
	}
}

// Unit is the payload of operations that only report completion.
type Unit struct{}

// Result is exactly one of Loading, Success(value) or Failure(err).
// The zero value is Loading.
type Result[T any] struct {
	state State
	value T
	err   error
}

func Loading[T any]() Result[T] {
	return Result[T]{state: StateLoading}
}

func Success[T any](value T) Result[T] {
	return Result[T]{state: StateSuccess, value: value}
}

// Failure wraps err. A nil err is replaced with an unknown-kind error so a
// failure always carries a descriptor.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = apperr.New(apperr.KindUnknown, "failure without error")
	}
	return Result[T]{state: StateFailure, err: err}
}

func FromPair[T any](value T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(value)
}

func (r Result[T]) State() State {
	return r.state
}

func (r Result[T]) Value() (T, bool) {
	return r.value, r.state == StateSuccess
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) IsLoading() bool { return r.state == StateLoading }
func (r Result[T]) IsSuccess() bool { return r.state == StateSuccess }
func (r Result[T]) IsFailure() bool { return r.state == StateFailure }

// Match hands r to exactly one of the three handlers. All handlers are
// required; a nil handler panics.
func Match[T, R any](r Result[T], onLoading func() R, onSuccess func(T) R, onFailure func(error) R) R {
	switch r.state {
	case StateSuccess:
		return onSuccess(r.value)
	case StateFailure:
		return onFailure(r.err)
	default:
		return onLoading()
	}
}

func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch r.state {
	case StateSuccess:
		return Success(fn(r.value))
	case StateFailure:
		return Failure[U](r.err)
	default:
		return Loading[U]()
	}
}

type errorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

type envelope[T any] struct {
	State string     `json:"state"`
	Data  *T         `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	env := envelope[T]{State: r.state.String()}
	switch r.state {
	case StateSuccess:
		v := r.value
		env.Data = &v
	case StateFailure:
		e := apperr.Classify(r.err)
		env.Error = &errorBody{Kind: e.Kind, Message: e.Error()}
	}
	return json.Marshal(env)
}
