package autherr

// Error is the failure half of a Result.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Status returns the HTTP status for e.Code.
func (e *Error) Status() int {
	if e == nil {
		return Status(InternalError)
	}
	return Status(e.Code)
}

// Result holds either a value or an *Error, never both.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok wraps a successful value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err builds a failed Result.
func Err[T any](code Code, message string) Result[T] {
	return Result[T]{err: &Error{Code: code, Message: message}}
}

// Internal builds an InternalError Result with a caller-safe message.
func Internal[T any](message string) Result[T] {
	return Err[T](InternalError, message)
}

// From converts the failure of another Result, keeping code and message.
// It panics when r is successful.
func From[T, U any](r Result[U]) Result[T] {
	if r.err == nil {
		panic("autherr: From called on a successful result")
	}
	return Result[T]{err: r.err}
}

// OK reports whether r holds a value.
func (r Result[T]) OK() bool { return r.err == nil }

// Value returns the wrapped value, the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure, nil on success.
func (r Result[T]) Err() *Error { return r.err }

// Code returns the failure code, "" on success.
func (r Result[T]) Code() Code {
	if r.err == nil {
		return ""
	}
	return r.err.Code
}

// Unwrap adapts r to Go's (value, error) convention.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}

// Done is the successful Result of an operation without a value.
func Done() Result[struct{}] {
	return Ok(struct{}{})
}
