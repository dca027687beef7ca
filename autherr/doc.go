// Package autherr defines the error taxonomy and the explicit Result type
// returned by every aegis operation.
//
// Expected failures are values, never panics: operations return
// [Result] built with [Ok], [Err] or [Internal]. Unexpected store or cache
// faults become [InternalError] results whose message is generic; the
// underlying cause is logged by the caller and never surfaced.
//
// [Status] is the transport mapping owned by the HTTP boundary.
package autherr
