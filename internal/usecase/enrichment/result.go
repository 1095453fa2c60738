package enrichment

import "fmt"

// Failure describes why an enricher fell back to its empty output.
type Failure struct {
	Stage  string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Stage, f.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", f.Stage, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is an enricher output. Data is always usable; Failure is set when Data
// is the degraded fallback rather than a real answer.
type Result[T any] struct {
	Data    T
	Failure *Failure
}

func (r Result[T]) Degraded() bool { return r.Failure != nil }

func ok[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

func degraded[T any](data T, stage string, reason string, err error) Result[T] {
	return Result[T]{Data: data, Failure: &Failure{Stage: stage, Reason: reason, Err: err}}
}
